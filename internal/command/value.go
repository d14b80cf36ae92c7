// ABOUTME: Argument type tags and coercion of raw strings into typed values
// ABOUTME: ID-like types accept platform mentions and strip their wrappers

package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ArgType is the declared type of an argument.
type ArgType int

const (
	String ArgType = iota
	Integer
	Boolean
	Number
	User
	Channel
	Role
	Mentionable
)

var argTypeNames = map[ArgType]string{
	String:      "string",
	Integer:     "integer",
	Boolean:     "boolean",
	Number:      "number",
	User:        "user",
	Channel:     "channel",
	Role:        "role",
	Mentionable: "mentionable",
}

func (t ArgType) String() string {
	if name, ok := argTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("ArgType(%d)", int(t))
}

// IsID reports whether values of this type are platform identifiers.
func (t ArgType) IsID() bool {
	switch t {
	case User, Channel, Role, Mentionable:
		return true
	}
	return false
}

// OptionType returns the platform option type number used in registration
// payloads.
func (t ArgType) OptionType() int {
	switch t {
	case String:
		return OptionString
	case Integer:
		return OptionInteger
	case Boolean:
		return OptionBoolean
	case User:
		return OptionUser
	case Channel:
		return OptionChannel
	case Role:
		return OptionRole
	case Mentionable:
		return OptionMentionable
	case Number:
		return OptionNumber
	}
	return OptionString
}

// Value is an argument bound to a typed value.
type Value struct {
	Type ArgType
	// Raw is the string the value was coerced from.
	Raw string

	str string
	i   int64
	b   bool
	f   float64
}

// String returns string and ID values. Other types return Raw.
func (v Value) String() string {
	if v.Type == String || v.Type.IsID() {
		return v.str
	}
	return v.Raw
}

// Int returns an Integer value.
func (v Value) Int() int64 { return v.i }

// Bool returns a Boolean value.
func (v Value) Bool() bool { return v.b }

// Float returns a Number value. Integer values are widened.
func (v Value) Float() float64 {
	if v.Type == Integer {
		return float64(v.i)
	}
	return v.f
}

func (v Value) equal(o Value) bool {
	if v.Type != o.Type {
		return false
	}
	switch v.Type {
	case Integer:
		return v.i == o.i
	case Boolean:
		return v.b == o.b
	case Number:
		return v.f == o.f
	default:
		return v.str == o.str
	}
}

// Coerce converts raw into a value of type t.
func Coerce(t ArgType, raw string) (Value, bool) {
	v := Value{Type: t, Raw: raw}
	switch t {
	case String:
		v.str = raw
		return v, true
	case Integer:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return Value{}, false
		}
		v.i = n
		return v, true
	case Number:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return Value{}, false
		}
		v.f = f
		return v, true
	case Boolean:
		b, ok := parseBool(raw)
		if !ok {
			return Value{}, false
		}
		v.b = b
		return v, true
	case User, Channel, Role, Mentionable:
		id, ok := parseID(t, raw)
		if !ok {
			return Value{}, false
		}
		v.str = id
		return v, true
	}
	return Value{}, false
}

func parseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "yes", "y", "on", "1":
		return true, true
	case "false", "no", "n", "off", "0":
		return false, true
	}
	return false, false
}

// parseID accepts a numeric snowflake, a <@id>, <@!id>, <#id> or <@&id>
// mention, or a Matrix identifier with the sigil matching the type.
func parseID(t ArgType, raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}

	if strings.HasPrefix(s, "<") && strings.HasSuffix(s, ">") {
		inner := s[1 : len(s)-1]
		var prefixes []string
		switch t {
		case User:
			prefixes = []string{"@!", "@"}
		case Channel:
			prefixes = []string{"#"}
		case Role:
			prefixes = []string{"@&"}
		case Mentionable:
			prefixes = []string{"@&", "@!", "@"}
		}
		for _, p := range prefixes {
			if rest, ok := strings.CutPrefix(inner, p); ok && isDigits(rest) {
				return rest, true
			}
		}
		return "", false
	}

	if isDigits(s) {
		return s, true
	}

	// Matrix identifiers: @user:server, !room:server, #alias:server
	if len(s) > 1 && strings.Contains(s, ":") && !strings.ContainsAny(s, " \t\n") {
		switch s[0] {
		case '@':
			return s, t == User || t == Mentionable
		case '!', '#':
			return s, t == Channel
		}
	}
	return "", false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
