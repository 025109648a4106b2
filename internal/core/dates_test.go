package core

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		want   time.Time
		wantOK bool
	}{
		{"05-Mar-25", day(2025, time.March, 5), true},
		{" 31-Dec-24 ", day(2024, time.December, 31), true},
		{"2025-03-05", time.Time{}, false},
		{"31-Feb-25", time.Time{}, false},
		{"", time.Time{}, false},
		{"soon", time.Time{}, false},
	}

	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if ok != tt.wantOK || !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseUploadDate(t *testing.T) {
	want := day(2025, time.March, 5)
	for _, in := range []string{
		"05-Mar-25",
		"5-Mar-25",
		"2025-03-05",
		"2025/03/05",
		"05-Mar-2025",
		"3/5/2025",
		"03/05/2025",
		"3/5/25",
		"45721",
	} {
		got, ok := ParseUploadDate(in)
		if !ok {
			t.Errorf("ParseUploadDate(%q) failed", in)
			continue
		}
		if !got.Equal(want) {
			t.Errorf("ParseUploadDate(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"", "tomorrow", "13/45/2025", "-3"} {
		if _, ok := ParseUploadDate(in); ok {
			t.Errorf("ParseUploadDate(%q) should fail", in)
		}
	}
}

func TestFormatDateRoundTrip(t *testing.T) {
	d := day(2025, time.January, 9)
	s := FormatDate(d)
	if s != "09-Jan-25" {
		t.Fatalf("FormatDate = %q, want 09-Jan-25", s)
	}
	back, ok := ParseDate(s)
	if !ok || !back.Equal(d) {
		t.Errorf("ParseDate(FormatDate(d)) = %v, %v", back, ok)
	}
}

func TestDaysBetween(t *testing.T) {
	morning := time.Date(2025, time.March, 10, 1, 0, 0, 0, time.UTC)
	evening := time.Date(2025, time.March, 11, 23, 0, 0, 0, time.UTC)
	if got := daysBetween(morning, evening); got != 1 {
		t.Errorf("daysBetween = %d, want 1", got)
	}
	if got := daysBetween(evening, morning); got != -1 {
		t.Errorf("daysBetween reversed = %d, want -1", got)
	}
}
