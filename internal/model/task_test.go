package model

import (
	"testing"
	"time"
)

func TestParseDueDateLayouts(t *testing.T) {
	loc := time.FixedZone("test", 3*3600)
	cases := []struct {
		in   string
		ok   bool
		want time.Time
	}{
		{"2026-10-16T08:30:00Z", true, time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)},
		{"2026-10-16T08:30:00.123Z", true, time.Date(2026, 10, 16, 8, 30, 0, 123000000, time.UTC)},
		{"2026-10-16", true, time.Date(2026, 10, 16, 0, 0, 0, 0, loc)},
		{"2026-10-16 09:00:00", true, time.Date(2026, 10, 16, 9, 0, 0, 0, loc)},
		{"not a date", false, time.Time{}},
		{"", false, time.Time{}},
	}
	for _, tc := range cases {
		got, ok := ParseDueDate(tc.in, loc)
		if ok != tc.ok {
			t.Fatalf("ParseDueDate(%q) ok=%v, want %v", tc.in, ok, tc.ok)
		}
		if ok && !got.Equal(tc.want) {
			t.Fatalf("ParseDueDate(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeDueDateIsUTC(t *testing.T) {
	got, err := NormalizeDueDate("2026-10-16T03:00:00+03:00", time.UTC)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if got != "2026-10-16T00:00:00Z" {
		t.Fatalf("unexpected normalized value %q", got)
	}
	if _, err := NormalizeDueDate("tomorrow", time.UTC); err == nil {
		t.Fatalf("expected error for unparsable date")
	}
}

func TestNeedsDailyReset(t *testing.T) {
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)

	cases := []struct {
		name string
		task Task
		want bool
	}{
		{"recurring completed yesterday", Task{IsRecurring: true, IsCompleted: true, CompletedAt: &yesterday}, true},
		{"recurring completed today", Task{IsRecurring: true, IsCompleted: true, CompletedAt: &now}, false},
		{"legacy row uses updatedAt", Task{IsRecurring: true, IsCompleted: true, UpdatedAt: yesterday}, true},
		{"recurring pending", Task{IsRecurring: true, UpdatedAt: yesterday}, false},
		{"one-time completed yesterday", Task{IsCompleted: true, CompletedAt: &yesterday}, false},
	}
	for _, tc := range cases {
		if got := tc.task.NeedsDailyReset(now); got != tc.want {
			t.Fatalf("%s: NeedsDailyReset = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestFlagScanAndValue(t *testing.T) {
	var f Flag
	for _, src := range []any{int64(1), true, []byte("1"), "1"} {
		f = false
		if err := f.Scan(src); err != nil || !f {
			t.Fatalf("scan %#v: got %v err %v", src, f, err)
		}
	}
	if err := f.Scan(int64(0)); err != nil || f {
		t.Fatalf("scan 0: got %v err %v", f, err)
	}
	if err := f.Scan(3.5); err == nil {
		t.Fatalf("expected error for float source")
	}
	v, _ := Flag(true).Value()
	if v != int64(1) {
		t.Fatalf("Value(true) = %#v", v)
	}
}

func TestAppSettingsMerge(t *testing.T) {
	name := "Ada"
	off := false
	got := DefaultAppSettings().Merge(AppSettingsPatch{UserName: &name, EnableNotifications: &off})
	want := AppSettings{UserName: "Ada", EnableNotifications: false, SoundVolume: 75}
	if got != want {
		t.Fatalf("merge = %#v, want %#v", got, want)
	}
	row := SettingsFromApp(got)
	if row.ID != SettingsID || row.AppSettings() != got {
		t.Fatalf("round trip through row lost data: %#v", row)
	}
}
