package timeutil

import (
	"testing"
	"time"
)

func TestParseClock(t *testing.T) {
	cases := []struct {
		input   string
		want    Clock
		wantErr bool
	}{
		{input: "09:00:00", want: 9 * 3600},
		{input: "17:30:45", want: 17*3600 + 30*60 + 45},
		{input: "00:00:00", want: 0},
		{input: "23:59:59", want: 23*3600 + 59*60 + 59},
		{input: "24:00:00", wantErr: true},
		{input: "09:60:00", wantErr: true},
		{input: "nonsense", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseClock(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseClock(%q): expected error, got %v", tc.input, got)
				}

				return
			}

			if err != nil {
				t.Fatalf("ParseClock(%q): unexpected error: %v", tc.input, err)
			}

			if got != tc.want {
				t.Errorf("ParseClock(%q) = %v, want %v", tc.input, got, tc.want)
			}
		})
	}
}

func TestClockRoundTrip(t *testing.T) {
	for _, s := range []string{"00:00:01", "09:05:30", "12:00:00", "23:59:59"} {
		c, err := ParseClock(s)
		if err != nil {
			t.Fatal(err)
		}

		if c.String() != s {
			t.Errorf("round trip of %q yielded %q", s, c.String())
		}
	}
}

func TestClockSub(t *testing.T) {
	in, _ := ParseClock("09:00:00")
	out, _ := ParseClock("17:30:00")

	if got := out.Sub(in); got != 8*time.Hour+30*time.Minute {
		t.Errorf("expected 8h30m, got %v", got)
	}

	// an out-signal behind the in-signal clamps at zero
	if got := in.Sub(out); got != 0 {
		t.Errorf("expected 0, got %v", got)
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{30 * time.Minute, "00:30:00"},
		{8*time.Hour + 30*time.Minute, "08:30:00"},
		{23*time.Hour + 45*time.Minute, "23:45:00"},
		{170 * time.Hour, "170:00:00"},
	}

	for _, tc := range cases {
		if got := FormatDuration(tc.d); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}

func TestMonthBounds(t *testing.T) {
	cases := []struct {
		month      string
		start, end string
		wantErr    bool
	}{
		{month: "2024-01", start: "2024-01-01", end: "2024-01-31"},
		{month: "2024-02", start: "2024-02-01", end: "2024-02-29"},
		{month: "2023-02", start: "2023-02-01", end: "2023-02-28"},
		{month: "2024-04", start: "2024-04-01", end: "2024-04-30"},
		{month: "2024", wantErr: true},
		{month: "January", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.month, func(t *testing.T) {
			start, end, err := MonthBounds(tc.month)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for %q", tc.month)
				}

				return
			}

			if err != nil {
				t.Fatal(err)
			}

			if start != tc.start || end != tc.end {
				t.Errorf(
					"MonthBounds(%q) = (%q, %q), want (%q, %q)",
					tc.month, start, end, tc.start, tc.end,
				)
			}
		})
	}
}

func TestDayKeys(t *testing.T) {
	at := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC) // a Monday

	if got := DayKey(at); got != "2024-01-15" {
		t.Errorf("DayKey = %q", got)
	}

	if got := DocumentKey(at); got != "2024.01.15 - Mon" {
		t.Errorf("DocumentKey = %q", got)
	}
}
