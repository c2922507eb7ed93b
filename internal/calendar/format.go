package calendar

import (
	"fmt"
	"time"

	"github.com/goodsign/monday"
)

// DefaultLocale matches the audience of the bot.
const DefaultLocale = monday.LocaleRuRU

// Formatter turns dates into localized labels.
type Formatter interface {
	// MonthTitle renders the header, e.g. "Октябрь 2025".
	MonthTitle(c Cursor) string
	// Weekdays returns short weekday names, Monday first.
	Weekdays() [7]string
	// OptionLabel renders a poll option, e.g. "10 октября (Пт)".
	OptionLabel(t time.Time) string
}

// LocaleFormatter formats with goodsign/monday month and day names.
type LocaleFormatter struct {
	locale   monday.Locale
	weekdays [7]string
}

// NewFormatter returns a formatter for a monday locale such as "ru_RU".
// An empty locale selects DefaultLocale.
func NewFormatter(locale string) (*LocaleFormatter, error) {
	loc := monday.Locale(locale)
	if locale == "" {
		loc = DefaultLocale
	}
	if !supported(loc) {
		return nil, fmt.Errorf("calendar: unsupported locale %q", locale)
	}
	f := &LocaleFormatter{locale: loc}
	// 2024-01-01 is a Monday.
	monday0 := time.Date(2024, time.January, 1, 12, 0, 0, 0, time.UTC)
	for i := range f.weekdays {
		f.weekdays[i] = monday.Format(monday0.AddDate(0, 0, i), "Mon", loc)
	}
	return f, nil
}

func supported(loc monday.Locale) bool {
	for _, l := range monday.ListLocales() {
		if l == loc {
			return true
		}
	}
	return false
}

// Locale returns the configured locale.
func (f *LocaleFormatter) Locale() string { return string(f.locale) }

// MonthTitle implements Formatter.
func (f *LocaleFormatter) MonthTitle(c Cursor) string {
	return monday.Format(c.First(time.UTC), "January 2006", f.locale)
}

// Weekdays implements Formatter.
func (f *LocaleFormatter) Weekdays() [7]string { return f.weekdays }

// OptionLabel implements Formatter. Day-before-month layouts make monday use
// genitive month names where the locale has them ("10 октября").
func (f *LocaleFormatter) OptionLabel(t time.Time) string {
	return monday.Format(t, "2 January (Mon)", f.locale)
}
