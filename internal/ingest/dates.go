package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoRe      = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}`)
	isoSpaceRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}(?: \d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?)?$`)
	timeRe     = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
)

// NormalizeDate convierte "DD/MM/YYYY[ HH:mm[:ss]]" o ISO a ISO-8601 sin zona.
// ok=false equivale a null.
func NormalizeDate(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if isoRe.MatchString(s) {
		// se conserva tal cual solo si ParseLeadTime lo entiende después
		if _, ok := ParseLeadTime(s, time.UTC); !ok {
			return "", false
		}
		return s, true
	}
	if isoSpaceRe.MatchString(s) {
		if len(s) == len("2006-01-02") {
			return validISO(s + "T00:00:00")
		}
		out := strings.Replace(s, " ", "T", 1)
		if len(out) == len("2006-01-02T15:04") {
			out += ":00"
		}
		return validISO(out)
	}

	datePart, timePart, _ := strings.Cut(s, " ")
	timePart = strings.TrimSpace(timePart)
	if timePart == "" {
		timePart = "00:00"
	}
	dmy := strings.Split(datePart, "/")
	if len(dmy) != 3 {
		return "", false
	}
	day, err1 := strconv.Atoi(dmy[0])
	month, err2 := strconv.Atoi(dmy[1])
	year, err3 := strconv.Atoi(dmy[2])
	if err1 != nil || err2 != nil || err3 != nil || len(dmy[2]) != 4 {
		return "", false
	}
	m := timeRe.FindStringSubmatch(timePart)
	if m == nil {
		return "", false
	}
	hour, _ := strconv.Atoi(m[1])
	sec := "00"
	if m[3] != "" {
		sec = m[3]
	}
	out := fmt.Sprintf("%04d-%02d-%02dT%02d:%s:%s", year, month, day, hour, m[2], sec)
	return validISO(out)
}

// validISO descarta fechas imposibles (31/02, 25:00...).
func validISO(s string) (string, bool) {
	if _, err := time.Parse("2006-01-02T15:04:05", s); err != nil {
		return "", false
	}
	return s, true
}

var leadTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700", // -0300, sin dos puntos
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseLeadTime interpreta un ISO normalizado; sin zona se asume loc.
func ParseLeadTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range leadTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
