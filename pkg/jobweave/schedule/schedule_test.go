package schedule

import "testing"

func TestEvery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		interval string
		cron     string
		wantErr  bool
	}{
		{"15m", "*/15 * * * *", false},
		{"2h", "0 */2 * * *", false},
		{"30s", "*/30 * * * * *", false},
		{"1d", "0 0 * * *", false},
		{"0m", "", true},
		{"5x", "", true},
	}

	for _, tt := range tests {
		d, err := Every(tt.interval)
		if tt.wantErr {
			if err == nil {
				t.Errorf("Every(%q): expected error, got none", tt.interval)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Every(%q): unexpected error: %v", tt.interval, err)
		}
		if d.Cron != tt.cron {
			t.Errorf("Every(%q).Cron = %q, want %q", tt.interval, d.Cron, tt.cron)
		}
	}
}

func TestDaily(t *testing.T) {
	t.Parallel()

	d, err := Daily("09:00", "17:00")
	if err != nil {
		t.Fatalf("Daily: unexpected error: %v", err)
	}
	if want := "0 9,17 * * *"; d.Cron != want {
		t.Errorf("Cron = %q, want %q", d.Cron, want)
	}
	if want := "daily at 9:00 AM and 5:00 PM"; d.HumanReadable != want {
		t.Errorf("HumanReadable = %q, want %q", d.HumanReadable, want)
	}

	if _, err := Daily("09:30", "17:45"); err == nil {
		t.Error("Daily(09:30, 17:45): expected error for mismatched hour and minute, got none")
	}
}

func TestWeekly(t *testing.T) {
	t.Parallel()

	d, err := Weekly([]string{"fri", "mon", "wed"}, "09:00")
	if err != nil {
		t.Fatalf("Weekly: unexpected error: %v", err)
	}
	if want := "0 9 * * 1,3,5"; d.Cron != want {
		t.Errorf("Cron = %q, want %q", d.Cron, want)
	}
	if want := "every Monday, Wednesday, and Friday at 9:00 AM"; d.HumanReadable != want {
		t.Errorf("HumanReadable = %q, want %q", d.HumanReadable, want)
	}

	if _, err := Weekly([]string{"funday"}, "09:00"); err == nil {
		t.Error("Weekly([funday]): expected error for unknown day, got none")
	}
}

func TestMonthly(t *testing.T) {
	t.Parallel()

	d, err := Monthly("last-fri", "17:00")
	if err != nil {
		t.Fatalf("Monthly: unexpected error: %v", err)
	}
	if want := "0 17 * * 5L"; d.Cron != want {
		t.Errorf("Cron = %q, want %q", d.Cron, want)
	}

	d2, err := Monthly("15", "09:00")
	if err != nil {
		t.Fatalf("Monthly: unexpected error: %v", err)
	}
	if want := "0 9 15 * *"; d2.Cron != want {
		t.Errorf("Cron = %q, want %q", d2.Cron, want)
	}

	if _, err := Monthly("32", "09:00"); err == nil {
		t.Error("Monthly(32): expected error for out-of-range day, got none")
	}
}

func TestCron(t *testing.T) {
	t.Parallel()

	d, err := Cron("0  17   *  *  5L")
	if err != nil {
		t.Fatalf("Cron: unexpected error: %v", err)
	}
	if want := "0 17 * * 5L"; d.Cron != want {
		t.Errorf("Cron = %q, want %q (fields should be canonicalized)", d.Cron, want)
	}

	if _, err := Cron("* * * *"); err == nil {
		t.Error("Cron with 4 fields: expected error, got none")
	}
	if _, err := Cron("* * * * $"); err == nil {
		t.Error("Cron with invalid field character: expected error, got none")
	}
}

func TestWithTimezone(t *testing.T) {
	t.Parallel()

	d, err := Every("15m")
	if err != nil {
		t.Fatalf("Every: unexpected error: %v", err)
	}

	tz, err := d.WithTimezone("America/New_York")
	if err != nil {
		t.Fatalf("WithTimezone: unexpected error: %v", err)
	}
	if tz.Timezone != "America/New_York" {
		t.Errorf("Timezone = %q, want America/New_York", tz.Timezone)
	}
	if d.Timezone != "" {
		t.Errorf("original Descriptor mutated: Timezone = %q, want empty", d.Timezone)
	}

	if _, err := d.WithTimezone("Not/AZone"); err == nil {
		t.Error("WithTimezone(Not/AZone): expected error, got none")
	}
}
