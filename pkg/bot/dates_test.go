package bot

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseCrewDate(t *testing.T) {
	now := time.Date(2024, time.February, 23, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"today", date(2024, time.February, 23)},
		{"Today", date(2024, time.February, 23)},
		{"сегодня", date(2024, time.February, 23)},
		{"tomorrow", date(2024, time.February, 24)},
		{"завтра", date(2024, time.February, 24)},
		{"25.02", date(2024, time.February, 25)},
		{"25,02", date(2024, time.February, 25)},
		{"25-02", date(2024, time.February, 25)},
		{"25/02", date(2024, time.February, 25)},
		{"25.02.2024", date(2024, time.February, 25)},
		// day alone: 25 is still ahead this month, 04 rolls to March
		{"25", date(2024, time.February, 25)},
		{"04", date(2024, time.March, 4)},
		// day.month already past rolls to next year
		{"22.01", date(2025, time.January, 22)},
		{"23.02", date(2024, time.February, 23)},
	}

	for _, tt := range tests {
		got, err := parseCrewDate(tt.input, now)
		if err != nil {
			t.Errorf("parseCrewDate(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseCrewDate(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestParseCrewDateDecemberRollover(t *testing.T) {
	now := time.Date(2024, time.December, 15, 10, 0, 0, 0, time.UTC)

	got, err := parseCrewDate("02", now)
	if err != nil {
		t.Fatalf("parseCrewDate(02) unexpected error: %v", err)
	}
	want := date(2025, time.January, 2)
	if !got.Equal(want) {
		t.Errorf("parseCrewDate(02) in December = %v, want %v", got, want)
	}
}

func TestParseCrewDateErrors(t *testing.T) {
	now := time.Date(2024, time.February, 23, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  error
	}{
		{"22.02.2024", errPastDate},
		{"yesterday", errBadDate},
		{"31.02", errBadDate},
		{"99.99.2024", errBadDate},
		{"", errBadDate},
		{"next friday", errBadDate},
	}

	for _, tt := range tests {
		_, err := parseCrewDate(tt.input, now)
		if !errors.Is(err, tt.want) {
			t.Errorf("parseCrewDate(%q) error = %v, want %v", tt.input, err, tt.want)
		}
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"09:30", "09:30", true},
		{"9:30", "09:30", true},
		{"9.30", "09:30", true},
		{"23:59", "23:59", true},
		{"00:00", "00:00", true},
		{"24:00", "", false},
		{"12:60", "", false},
		{"noon", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, err := parseClock(tt.input)
		if tt.ok && err != nil {
			t.Errorf("parseClock(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if !tt.ok && err == nil {
			t.Errorf("parseClock(%q) expected an error", tt.input)
			continue
		}
		if got != tt.want {
			t.Errorf("parseClock(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseTZOffset(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"+3", 180, true},
		{"3", 180, true},
		{"-5", -300, true},
		{"+05:30", 330, true},
		{"-03:30", -210, true},
		{"UTC+5", 300, true},
		{"utc+5", 300, true},
		{"GMT-4", -240, true},
		{"0", 0, true},
		{"+14", 840, true},
		{"+15", 0, false},
		{"-13", 0, false},
		{"+5:75", 0, false},
		{"east", 0, false},
	}

	for _, tt := range tests {
		got, err := parseTZOffset(tt.input)
		if tt.ok && err != nil {
			t.Errorf("parseTZOffset(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if !tt.ok && err == nil {
			t.Errorf("parseTZOffset(%q) expected an error", tt.input)
			continue
		}
		if got != tt.want {
			t.Errorf("parseTZOffset(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestFormatTZOffset(t *testing.T) {
	tests := []struct {
		minutes int
		want    string
	}{
		{0, "UTC+00:00"},
		{180, "UTC+03:00"},
		{330, "UTC+05:30"},
		{-210, "UTC-03:30"},
	}

	for _, tt := range tests {
		if got := formatTZOffset(tt.minutes); got != tt.want {
			t.Errorf("formatTZOffset(%d) = %q, want %q", tt.minutes, got, tt.want)
		}
	}
}
