// ABOUTME: Parses human-written durations and times of day for reminders
// ABOUTME: Accepts English and French unit names and hh:mm clock times

package timeparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"
)

// ErrInvalid indicates the input is not a recognizable duration or time.
var ErrInvalid = errors.New("invalid duration")

const (
	day   = 24 * time.Hour
	week  = 7 * day
	month = 30 * day
	year  = 365 * day
)

var units = map[string]time.Duration{
	"s": time.Second, "sec": time.Second, "secs": time.Second, "second": time.Second, "seconds": time.Second,
	"seconde": time.Second, "secondes": time.Second,
	"m": time.Minute, "min": time.Minute, "mins": time.Minute, "minute": time.Minute, "minutes": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"heure": time.Hour, "heures": time.Hour,
	"d": day, "day": day, "days": day, "j": day, "jour": day, "jours": day,
	"w": week, "week": week, "weeks": week, "sem": week, "semaine": week, "semaines": week,
	"mo": month, "month": month, "months": month, "mois": month,
	"y": year, "year": year, "years": year, "an": year, "ans": year,
}

// ParseDuration parses a sequence of number+unit pairs, with optional spaces:
// "90s", "1h30m", "1 h 30", "2 days 4 hours". A trailing bare number after
// hours counts as minutes ("1h30"); a lone bare number is minutes.
func ParseDuration(s string) (time.Duration, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	if in == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalid)
	}

	var (
		total    time.Duration
		lastUnit time.Duration
		i        int
	)
	for i < len(in) {
		for i < len(in) && in[i] == ' ' {
			i++
		}
		if i >= len(in) {
			break
		}

		start := i
		for i < len(in) && (unicode.IsDigit(rune(in[i])) || in[i] == '.') {
			i++
		}
		if start == i {
			return 0, fmt.Errorf("%w: expected a number at '%s'", ErrInvalid, in[start:])
		}
		n, err := strconv.ParseFloat(in[start:i], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalid, in[start:i])
		}

		for i < len(in) && in[i] == ' ' {
			i++
		}
		ustart := i
		for i < len(in) && unicode.IsLetter(rune(in[i])) {
			i++
		}
		name := in[ustart:i]

		var unit time.Duration
		switch {
		case name != "":
			u, ok := units[name]
			if !ok {
				return 0, fmt.Errorf("%w: unknown unit '%s'", ErrInvalid, name)
			}
			unit = u
		case lastUnit == time.Hour:
			unit = time.Minute
		case lastUnit == time.Minute:
			unit = time.Second
		case lastUnit == 0:
			unit = time.Minute
		default:
			return 0, fmt.Errorf("%w: missing unit after %s", ErrInvalid, in[start:ustart])
		}
		total += time.Duration(n * float64(unit))
		lastUnit = unit
	}

	if total <= 0 {
		return 0, fmt.Errorf("%w: duration must be positive", ErrInvalid)
	}
	return total, nil
}

// ParseClock parses "hh:mm" or "hhhmm" (e.g. "18h45") and returns the next
// occurrence of that time of day after now, in now's location.
func ParseClock(s string, now time.Time) (time.Time, error) {
	in := strings.ToLower(strings.TrimSpace(s))
	sep := strings.IndexAny(in, ":h")
	if sep <= 0 || sep == len(in)-1 {
		return time.Time{}, fmt.Errorf("%w: '%s' is not a time of day", ErrInvalid, s)
	}
	hh, err1 := strconv.Atoi(in[:sep])
	mm, err2 := strconv.Atoi(in[sep+1:])
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return time.Time{}, fmt.Errorf("%w: '%s' is not a time of day", ErrInvalid, s)
	}

	at := time.Date(now.Year(), now.Month(), now.Day(), hh, mm, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, nil
}

// ParseWhen accepts either a "hh:mm" clock time or a duration from now. The
// "18h45" form is read as a duration here since "1h30" is more often meant
// that way.
func ParseWhen(s string, now time.Time) (time.Time, error) {
	if strings.Contains(s, ":") {
		return ParseClock(s, now)
	}
	d, err := ParseDuration(s)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(d), nil
}

// Format renders a duration compactly for replies, e.g. "1d 2h 5m".
func Format(d time.Duration) string {
	if d < time.Second {
		return "0s"
	}
	d = d.Round(time.Second)
	var parts []string
	for _, u := range []struct {
		size time.Duration
		sfx  string
	}{{day, "d"}, {time.Hour, "h"}, {time.Minute, "m"}, {time.Second, "s"}} {
		if d >= u.size {
			parts = append(parts, fmt.Sprintf("%d%s", d/u.size, u.sfx))
			d %= u.size
		}
	}
	return strings.Join(parts, " ")
}
