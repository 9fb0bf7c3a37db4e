package main

import "testing"

func TestParsePushTime(t *testing.T) {
	cases := []struct {
		in           string
		hour, minute int
		ok           bool
	}{
		{"09:00", 9, 0, true},
		{"16:30", 16, 30, true},
		{"23:59", 23, 59, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"noon", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, c := range cases {
		h, m, err := parsePushTime(c.in)
		if c.ok {
			if err != nil {
				t.Errorf("parsePushTime(%q): %v", c.in, err)
				continue
			}
			if h != c.hour || m != c.minute {
				t.Errorf("parsePushTime(%q) = %d:%d, want %d:%d", c.in, h, m, c.hour, c.minute)
			}
		} else if err == nil {
			t.Errorf("parsePushTime(%q) should fail", c.in)
		}
	}
}

func TestNewSchedulerRejectsBadInput(t *testing.T) {
	if _, err := newScheduler([]string{"09:00"}, "Not/AZone", func() {}); err == nil {
		t.Error("bad timezone should fail")
	}
	if _, err := newScheduler([]string{"nine"}, "Asia/Taipei", func() {}); err == nil {
		t.Error("bad push time should fail")
	}
}

func TestNewSchedulerRegistersEntries(t *testing.T) {
	c, err := newScheduler([]string{"09:00", "16:00"}, "Asia/Taipei", func() {})
	if err != nil {
		t.Fatalf("newScheduler: %v", err)
	}
	if got := len(c.Entries()); got != 2 {
		t.Errorf("registered %d cron entries, want 2", got)
	}
}
