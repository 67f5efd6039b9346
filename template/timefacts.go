package template

import (
	"strings"
	"time"

	"github.com/6tail/lunar-go/calendar"
)

var weekdays = [...]string{"星期日", "星期一", "星期二", "星期三", "星期四", "星期五", "星期六"}

// TimeFacts holds every time-derived fact for one instant.
type TimeFacts struct {
	Date     string // 2024/1/2
	Time     string // 15:04:05
	Today    string // 星期二
	Festival string // 甲辰龙年正月初一, plus " <solar term>" on a term day
}

// NewTimeFacts computes the facts for t in t's location.
func NewTimeFacts(t time.Time) TimeFacts {
	return TimeFacts{
		Date:     t.Format("2006/1/2"),
		Time:     t.Format("15:04:05"),
		Today:    weekdays[t.Weekday()],
		Festival: lunarLabel(t),
	}
}

// DateTime is the {{Date::time}} value.
func (f TimeFacts) DateTime() string {
	return f.Date + " " + f.Time
}

// Apply replaces every time placeholder in text.
func (f TimeFacts) Apply(text string) string {
	if !strings.Contains(text, "{{") {
		return text
	}
	return strings.NewReplacer(
		"{{Date::time}}", f.DateTime(),
		"{{Date}}", f.Date,
		"{{Time}}", f.Time,
		"{{Today}}", f.Today,
		"{{Festival}}", f.Festival,
	).Replace(text)
}

func lunarLabel(t time.Time) string {
	l := calendar.NewLunarFromDate(t)

	var b strings.Builder
	b.WriteString(l.GetYearInGanZhi())
	b.WriteString(l.GetYearShengXiao())
	b.WriteString("年")
	b.WriteString(l.GetMonthInChinese())
	b.WriteString("月")
	b.WriteString(l.GetDayInChinese())
	if term := l.GetJieQi(); term != "" {
		b.WriteString(" ")
		b.WriteString(term)
	}
	return b.String()
}
