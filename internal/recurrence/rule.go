// Package recurrence expands recurrence specifications into concrete
// occurrence instants. Expansion is deterministic: the same rule, anchor and
// window always yield the same occurrence list, and nothing here reads the
// clock.
package recurrence

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	appErrors "github.com/studyplanhq/calsync-api/pkg/errors"
)

// Frequency enumerates supported recurrence frequencies.
type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

// Rule is a recurrence specification. Count and Until are mutually optional;
// when both are zero-valued the rule is unbounded and only the caller's
// window limits expansion.
type Rule struct {
	Freq      Frequency
	Interval  int
	Count     int
	Until     *time.Time
	ByWeekday []time.Weekday
}

var freqToRRule = map[Frequency]rrule.Frequency{
	Daily:   rrule.DAILY,
	Weekly:  rrule.WEEKLY,
	Monthly: rrule.MONTHLY,
	Yearly:  rrule.YEARLY,
}

var rruleToFreq = map[rrule.Frequency]Frequency{
	rrule.DAILY:   Daily,
	rrule.WEEKLY:  Weekly,
	rrule.MONTHLY: Monthly,
	rrule.YEARLY:  Yearly,
}

var weekdayToRRule = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

var weekdayShort = map[time.Weekday]string{
	time.Sunday:    "SU",
	time.Monday:    "MO",
	time.Tuesday:   "TU",
	time.Wednesday: "WE",
	time.Thursday:  "TH",
	time.Friday:    "FR",
	time.Saturday:  "SA",
}

// Parse converts RFC 5545 RRULE text into a Rule. Malformed or unsupported
// text fails with ErrRuleParse; there are no partial results.
func Parse(text string) (Rule, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(text), "RRULE:"))
	if trimmed == "" {
		return Rule{}, appErrors.Clone(appErrors.ErrRuleParse, "empty recurrence rule")
	}

	opt, err := rrule.StrToROption(trimmed)
	if err != nil {
		return Rule{}, appErrors.Wrap(err, appErrors.ErrRuleParse.Code, appErrors.ErrRuleParse.Status, "invalid recurrence rule")
	}

	freq, ok := rruleToFreq[opt.Freq]
	if !ok {
		return Rule{}, appErrors.Clone(appErrors.ErrRuleParse, fmt.Sprintf("unsupported frequency in rule %q", trimmed))
	}

	rule := Rule{
		Freq:     freq,
		Interval: opt.Interval,
		Count:    opt.Count,
	}
	if rule.Interval <= 0 {
		rule.Interval = 1
	}
	if !opt.Until.IsZero() {
		until := opt.Until.UTC()
		rule.Until = &until
	}
	for _, wd := range opt.Byweekday {
		// rrule-go weekdays are Monday=0 based.
		rule.ByWeekday = append(rule.ByWeekday, time.Weekday((wd.Day()+1)%7))
	}
	sort.Slice(rule.ByWeekday, func(i, j int) bool { return rule.ByWeekday[i] < rule.ByWeekday[j] })

	return rule, nil
}

// String serializes the rule to RRULE grammar. Round-tripping through Parse
// yields a semantically equivalent rule, not necessarily identical text.
func (r Rule) String() string {
	parts := []string{fmt.Sprintf("FREQ=%s", r.Freq)}
	if r.Interval > 1 {
		parts = append(parts, fmt.Sprintf("INTERVAL=%d", r.Interval))
	}
	if r.Count > 0 {
		parts = append(parts, fmt.Sprintf("COUNT=%d", r.Count))
	}
	if r.Until != nil {
		parts = append(parts, fmt.Sprintf("UNTIL=%s", r.Until.UTC().Format("20060102T150405Z")))
	}
	if len(r.ByWeekday) > 0 {
		days := make([]string, len(r.ByWeekday))
		for i, wd := range r.ByWeekday {
			days[i] = weekdayShort[wd]
		}
		parts = append(parts, "BYDAY="+strings.Join(days, ","))
	}
	return strings.Join(parts, ";")
}

// Describe renders a human-readable description, e.g.
// "Every 2 weeks on Mon, Wed until Jun 30, 2026".
func (r Rule) Describe() string {
	unit := map[Frequency]string{Daily: "day", Weekly: "week", Monthly: "month", Yearly: "year"}[r.Freq]
	if unit == "" {
		unit = strings.ToLower(string(r.Freq))
	}

	var b strings.Builder
	if r.Interval > 1 {
		fmt.Fprintf(&b, "Every %d %ss", r.Interval, unit)
	} else {
		fmt.Fprintf(&b, "Every %s", unit)
	}

	if len(r.ByWeekday) > 0 {
		names := make([]string, len(r.ByWeekday))
		for i, wd := range r.ByWeekday {
			names[i] = wd.String()[:3]
		}
		fmt.Fprintf(&b, " on %s", strings.Join(names, ", "))
	}

	switch {
	case r.Count == 1:
		b.WriteString(", once")
	case r.Count > 1:
		fmt.Fprintf(&b, ", %d times", r.Count)
	case r.Until != nil:
		fmt.Fprintf(&b, " until %s", r.Until.Format("Jan 2, 2006"))
	}

	return b.String()
}

// Expand returns the ordered occurrence start instants for the rule anchored
// at anchor that fall within [rangeStart, rangeEnd). An empty slice is
// returned when the anchor is after the window or the rule terminates before
// it.
func (r Rule) Expand(anchor, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	if !rangeEnd.After(rangeStart) {
		return nil, nil
	}

	freq, ok := freqToRRule[r.Freq]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrRuleParse, fmt.Sprintf("unsupported frequency %q", r.Freq))
	}

	opt := rrule.ROption{
		Freq:     freq,
		Interval: r.Interval,
		Dtstart:  anchor,
	}
	if opt.Interval <= 0 {
		opt.Interval = 1
	}
	if r.Count > 0 {
		opt.Count = r.Count
	}
	if r.Until != nil {
		opt.Until = *r.Until
	}
	for _, wd := range r.ByWeekday {
		opt.Byweekday = append(opt.Byweekday, weekdayToRRule[wd])
	}

	rr, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrRuleParse.Code, appErrors.ErrRuleParse.Status, "invalid recurrence rule")
	}

	// rrule Between is inclusive on both ends; drop the upper boundary to
	// keep the half-open window contract.
	raw := rr.Between(rangeStart, rangeEnd, true)
	occurrences := make([]time.Time, 0, len(raw))
	for _, t := range raw {
		if t.Before(rangeEnd) {
			occurrences = append(occurrences, t)
		}
	}
	return occurrences, nil
}

// ExpandText parses rule text and expands it in one step.
func ExpandText(text string, anchor, rangeStart, rangeEnd time.Time) ([]time.Time, error) {
	rule, err := Parse(text)
	if err != nil {
		return nil, err
	}
	return rule.Expand(anchor, rangeStart, rangeEnd)
}
