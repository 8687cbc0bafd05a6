package render

import (
	"html/template"
	"strings"
	"time"

	"github.com/yigit/tuitiontrack/internal/domain"
)

// FuncMap returns the helpers available to page templates. loc is the
// business timezone used by the time formatters.
func FuncMap(loc *time.Location) template.FuncMap {
	return template.FuncMap{
		"markdown": Markdown,
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format("02 Jan 2006")
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.In(loc).Format("02 Jan 2006 15:04")
		},
		"isoDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return domain.DateOf(t).String()
		},
		"dayLabel": func(d domain.Date) string {
			return d.UTC().Format("Mon 02")
		},
		"statusClass": func(s domain.Status) string {
			return strings.ToLower(s.String())
		},
		"hasDay": func(days string, code string) bool {
			for _, c := range domain.DaySetOf(days).Codes() {
				if c == code {
					return true
				}
			}
			return false
		},
		"weekdayCodes": func() []string { return domain.WeekdayCodes },
		"upper":        strings.ToUpper,
		"add":          func(a, b int) int { return a + b },
		"seq": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i + 1
			}
			return out
		},
		"idValue": func(p *int64) int64 {
			if p == nil {
				return 0
			}
			return *p
		},
	}
}
