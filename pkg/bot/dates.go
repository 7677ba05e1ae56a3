package bot

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	errPastDate    = errors.New("the date cannot be in the past")
	errBadDate     = errors.New("invalid date format")
	errBadClock    = errors.New("invalid time format")
	errBadTZOffset = errors.New("invalid timezone offset")
)

var dateTokenRe = regexp.MustCompile(
	`([0-9]{2}[.,\-/][0-9]{2}[.,\-/][0-9]{4}|[0-9]{2}[.,\-/][0-9]{2}|[0-9]{2})`)

var nonDigitRe = regexp.MustCompile(`\D`)

// parseCrewDate understands "today"/"tomorrow" words and numeric dates in
// DD, DD.MM and DD.MM.YYYY forms (separators . , - /). Day-only and
// day-month forms resolve to the nearest future occurrence: a day already
// past rolls to the next month, a month already past to the next year. A
// fully specified date in the past is rejected.
func parseCrewDate(input string, now time.Time) (time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if m := dateTokenRe.FindString(input); m != "" {
		digits := nonDigitRe.ReplaceAllString(m, "")
		return resolveDigits(digits, today)
	}

	switch strings.ToLower(strings.TrimSpace(input)) {
	case "today", "сегодня":
		return today, nil
	case "tomorrow", "завтра":
		return today.AddDate(0, 0, 1), nil
	}

	return time.Time{}, errBadDate
}

func resolveDigits(digits string, today time.Time) (time.Time, error) {
	switch len(digits) {
	case 2:
		day, _ := strconv.Atoi(digits)
		date, err := makeDate(today.Year(), int(today.Month()), day, today.Location())
		if err != nil {
			return time.Time{}, err
		}
		if date.Before(today) {
			if today.Month() == time.December {
				return makeDate(today.Year()+1, 1, day, today.Location())
			}
			return makeDate(today.Year(), int(today.Month())+1, day, today.Location())
		}
		return date, nil

	case 4:
		day, _ := strconv.Atoi(digits[:2])
		month, _ := strconv.Atoi(digits[2:])
		date, err := makeDate(today.Year(), month, day, today.Location())
		if err != nil {
			return time.Time{}, err
		}
		if date.Before(today) {
			return makeDate(today.Year()+1, month, day, today.Location())
		}
		return date, nil

	case 8:
		day, _ := strconv.Atoi(digits[:2])
		month, _ := strconv.Atoi(digits[2:4])
		year, _ := strconv.Atoi(digits[4:])
		date, err := makeDate(year, month, day, today.Location())
		if err != nil {
			return time.Time{}, err
		}
		if date.Before(today) {
			return time.Time{}, errPastDate
		}
		return date, nil
	}

	return time.Time{}, errBadDate
}

// makeDate rejects inputs that time.Date would silently normalize, e.g. 31.02.
func makeDate(year, month, day int, loc *time.Location) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, errBadDate
	}
	date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if date.Day() != day || date.Month() != time.Month(month) {
		return time.Time{}, errBadDate
	}
	return date, nil
}

var clockRe = regexp.MustCompile(`^([0-9]{1,2})[:.]([0-9]{2})$`)

// parseClock validates an HH:MM string and returns it normalized.
func parseClock(input string) (string, error) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return "", errBadClock
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	if hour > 23 || minute > 59 {
		return "", errBadClock
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

var tzOffsetRe = regexp.MustCompile(`^(?i)(?:UTC|GMT)?\s*([+-]?)([0-9]{1,2})(?::([0-9]{2}))?$`)

// parseTZOffset turns strings like "+3", "-03:30" or "UTC+5" into an offset
// in minutes.
func parseTZOffset(input string) (int, error) {
	m := tzOffsetRe.FindStringSubmatch(strings.TrimSpace(input))
	if m == nil {
		return 0, errBadTZOffset
	}

	hours, _ := strconv.Atoi(m[2])
	minutes := 0
	if m[3] != "" {
		minutes, _ = strconv.Atoi(m[3])
	}
	if minutes > 59 {
		return 0, errBadTZOffset
	}

	offset := hours*60 + minutes
	if m[1] == "-" {
		offset = -offset
	}
	if offset < -12*60 || offset > 14*60 {
		return 0, errBadTZOffset
	}
	return offset, nil
}

// formatTZOffset renders minutes as "UTC+05:30" for the settings card.
func formatTZOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, minutes/60, minutes%60)
}
