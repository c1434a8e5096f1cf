package scheduler

import "testing"

func TestParseClock(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw    string
		hour   int
		minute int
	}{
		{raw: "10:50", hour: 10, minute: 50},
		{raw: "13:00", hour: 13, minute: 0},
		{raw: "0:05", hour: 0, minute: 5},
		{raw: " 23:59 ", hour: 23, minute: 59},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()
			h, m, err := ParseClock(tt.raw)
			if err != nil {
				t.Fatalf("ParseClock(%q) error: %v", tt.raw, err)
			}
			if h != tt.hour || m != tt.minute {
				t.Fatalf("ParseClock(%q) = %d:%d, want %d:%d", tt.raw, h, m, tt.hour, tt.minute)
			}
		})
	}
}

func TestParseClockInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "24:00", "12:60", "1250", "12:5", "ab:cd", "12:00:00"} {
		if _, _, err := ParseClock(raw); err == nil {
			t.Fatalf("ParseClock(%q) expected error", raw)
		}
	}
}

func TestCronSpec(t *testing.T) {
	t.Parallel()
	if got := cronSpec(10, 50); got != "50 10 * * *" {
		t.Fatalf("cronSpec = %q", got)
	}
}
