package template

import (
	"strings"
	"testing"
	"time"
)

func TestNewTimeFacts(t *testing.T) {
	loc := time.FixedZone("CST", 8*3600)
	f := NewTimeFacts(time.Date(2024, 2, 10, 9, 5, 7, 0, loc))

	if f.Date != "2024/2/10" {
		t.Errorf("Date = %q, want 2024/2/10", f.Date)
	}
	if f.Time != "09:05:07" {
		t.Errorf("Time = %q, want 09:05:07", f.Time)
	}
	if f.DateTime() != "2024/2/10 09:05:07" {
		t.Errorf("DateTime() = %q", f.DateTime())
	}
	if f.Today != "星期六" {
		t.Errorf("Today = %q, want 星期六", f.Today)
	}
	if f.Festival != "甲辰龙年正月初一" {
		t.Errorf("Festival = %q, want 甲辰龙年正月初一", f.Festival)
	}
}

func TestNewTimeFacts_SolarTermSuffix(t *testing.T) {
	f := NewTimeFacts(time.Date(2024, 6, 21, 12, 0, 0, 0, time.UTC))
	if !strings.HasSuffix(f.Festival, " 夏至") {
		t.Errorf("Festival = %q, want solar term suffix 夏至", f.Festival)
	}
}

func TestTimeFacts_Apply(t *testing.T) {
	f := TimeFacts{Date: "2024/1/2", Time: "03:04:05", Today: "星期二", Festival: "F"}

	got := f.Apply("{{Date::time}}|{{Date}}|{{Time}}|{{Today}}|{{Festival}}|{{Other}}")
	want := "2024/1/2 03:04:05|2024/1/2|03:04:05|星期二|F|{{Other}}"
	if got != want {
		t.Errorf("Apply() = %q, want %q", got, want)
	}
}
