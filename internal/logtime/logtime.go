// Package logtime parses the heterogeneous timestamp dialects that agents
// write into their logs. Dispatch is structural: the first format whose
// marker characters are present wins, so no format flag travels with the
// upload.
package logtime

import (
	"strconv"
	"strings"
	"time"
)

var monthByName = map[string]time.Month{
	"Jan": time.January, "Feb": time.February, "Mar": time.March,
	"Apr": time.April, "May": time.May, "Jun": time.June,
	"Jul": time.July, "Aug": time.August, "Sep": time.September,
	"Oct": time.October, "Nov": time.November, "Dec": time.December,
}

// Canonical is the layout used when an instant is written back out
// (round resets, canonicalized template timestamps).
const Canonical = "2006-01-02 15:04:05"

// Parse attempts to turn a raw log timestamp into an instant.
// Supported, tried in order, first structural match wins:
//
//	D/MonName/YYYY HH:MM:SS   ("/" plus a letter)
//	YYYY-MM-DD HH:MM:SS       ("-")
//	YYYY/MM/DD HH:MM:SS       ("/", no letters)
//	YYYY.MM.DD HH:MM:SS       (".")
//
// ok is false when nothing matches or a component fails to parse.
// Callers must treat !ok as "exclude from time-windowed views", never
// as an error.
func Parse(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}

	if strings.Contains(s, "/") && hasLetter(s) {
		return parseMonthName(s)
	}
	if strings.Contains(s, "-") {
		return parseLayout(s, "2006-01-02 15:04:05")
	}
	if strings.Contains(s, "/") {
		return parseLayout(s, "2006/01/02 15:04:05")
	}
	if strings.Contains(s, ".") {
		return parseLayout(s, "2006.01.02 15:04:05")
	}
	return time.Time{}, false
}

// ParseDay parses a 10-character day bucket at midnight, accepting any of
// the supported date separators.
func ParseDay(day string) (time.Time, bool) {
	return Parse(day + " 00:00:00")
}

func parseLayout(s, layout string) (time.Time, bool) {
	t, err := time.ParseInLocation(layout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// parseMonthName handles the "6/Feb/2026 10:00:00" agent dialect.
func parseMonthName(s string) (time.Time, bool) {
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return time.Time{}, false
	}
	dParts := strings.Split(fields[0], "/")
	tParts := strings.Split(fields[1], ":")
	if len(dParts) != 3 || len(tParts) != 3 {
		return time.Time{}, false
	}

	month, ok := monthByName[dParts[1]]
	if !ok {
		return time.Time{}, false
	}
	day, err1 := strconv.Atoi(dParts[0])
	year, err2 := strconv.Atoi(dParts[2])
	hour, err3 := strconv.Atoi(tParts[0])
	min, err4 := strconv.Atoi(tParts[1])
	sec, err5 := strconv.Atoi(tParts[2])
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return time.Time{}, false
	}
	if day < 1 || day > 31 || hour > 23 || min > 59 || sec > 59 {
		return time.Time{}, false
	}

	return time.Date(year, month, day, hour, min, sec, 0, time.Local), true
}

func hasLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
