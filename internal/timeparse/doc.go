// Package timeparse reads human durations such as "10min", "1h30" or
// "2 days", and clock times such as "18:45".
package timeparse
