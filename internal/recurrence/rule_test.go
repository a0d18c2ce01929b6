package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/studyplanhq/calsync-api/pkg/errors"
)

func TestExpandDailyWithinWindow(t *testing.T) {
	anchor := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	rule := Rule{Freq: Daily, Interval: 1}

	rangeStart := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)

	occ, err := rule.Expand(anchor, rangeStart, rangeEnd)
	require.NoError(t, err)
	require.Len(t, occ, 3)
	assert.Equal(t, time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC), occ[0])
	assert.Equal(t, time.Date(2025, 3, 7, 9, 0, 0, 0, time.UTC), occ[2])

	for i, o := range occ {
		assert.True(t, !o.Before(rangeStart) && o.Before(rangeEnd), "occurrence %d outside window", i)
		if i > 0 {
			assert.True(t, o.After(occ[i-1]), "occurrences must be strictly increasing")
		}
	}
}

func TestExpandWindowIsHalfOpen(t *testing.T) {
	anchor := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rule := Rule{Freq: Daily, Interval: 1}

	occ, err := rule.Expand(anchor,
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, occ, 2)
	assert.Equal(t, anchor, occ[0], "rangeStart boundary is inclusive")
	assert.Equal(t, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC), occ[1], "rangeEnd boundary is exclusive")
}

func TestExpandWeeklyByWeekdayInterval(t *testing.T) {
	// Anchor on a Monday; every 2 weeks on Mon and Wed.
	anchor := time.Date(2025, 1, 6, 18, 30, 0, 0, time.UTC)
	rule := Rule{Freq: Weekly, Interval: 2, ByWeekday: []time.Weekday{time.Monday, time.Wednesday}}

	occ, err := rule.Expand(anchor, anchor, anchor.AddDate(0, 0, 28))
	require.NoError(t, err)
	require.Len(t, occ, 4)
	assert.Equal(t, time.Date(2025, 1, 6, 18, 30, 0, 0, time.UTC), occ[0])
	assert.Equal(t, time.Date(2025, 1, 8, 18, 30, 0, 0, time.UTC), occ[1])
	assert.Equal(t, time.Date(2025, 1, 20, 18, 30, 0, 0, time.UTC), occ[2])
	assert.Equal(t, time.Date(2025, 1, 22, 18, 30, 0, 0, time.UTC), occ[3])
}

func TestExpandCountTerminatesBeforeWindow(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	rule := Rule{Freq: Daily, Interval: 1, Count: 3}

	occ, err := rule.Expand(anchor,
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, occ)
}

func TestExpandAnchorAfterWindow(t *testing.T) {
	anchor := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	rule := Rule{Freq: Weekly, Interval: 1}

	occ, err := rule.Expand(anchor,
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, occ)
}

func TestExpandUntil(t *testing.T) {
	anchor := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	until := time.Date(2025, 1, 3, 23, 59, 59, 0, time.UTC)
	rule := Rule{Freq: Daily, Interval: 1, Until: &until}

	occ, err := rule.Expand(anchor, anchor, anchor.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, occ, 3)
}

func TestParseSerializeRoundTrip(t *testing.T) {
	cases := []Rule{
		{Freq: Daily, Interval: 1},
		{Freq: Weekly, Interval: 2, ByWeekday: []time.Weekday{time.Monday, time.Wednesday}},
		{Freq: Monthly, Interval: 1, Count: 5},
		{Freq: Yearly, Interval: 1},
	}

	anchor := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	rangeStart := anchor
	rangeEnd := anchor.AddDate(1, 0, 0)

	for _, rule := range cases {
		parsed, err := Parse(rule.String())
		require.NoError(t, err, "rule %s", rule.String())

		want, err := rule.Expand(anchor, rangeStart, rangeEnd)
		require.NoError(t, err)
		got, err := parsed.Expand(anchor, rangeStart, rangeEnd)
		require.NoError(t, err)
		assert.Equal(t, want, got, "occurrence sets must match for %s", rule.String())
	}
}

func TestParseAcceptsRRulePrefix(t *testing.T) {
	rule, err := Parse("RRULE:FREQ=WEEKLY;INTERVAL=3;BYDAY=FR")
	require.NoError(t, err)
	assert.Equal(t, Weekly, rule.Freq)
	assert.Equal(t, 3, rule.Interval)
	assert.Equal(t, []time.Weekday{time.Friday}, rule.ByWeekday)
}

func TestParseMalformedRule(t *testing.T) {
	for _, text := range []string{"", "FREQ=SOMETIMES", "not a rule at all"} {
		_, err := Parse(text)
		require.Error(t, err, "text %q", text)
		assert.True(t, errors.Is(err, appErrors.ErrRuleParse), "want rule parse error for %q, got %v", text, err)
	}
}

func TestDescribe(t *testing.T) {
	until := time.Date(2026, 6, 30, 0, 0, 0, 0, time.UTC)
	cases := map[string]Rule{
		"Every day":                          {Freq: Daily, Interval: 1},
		"Every 2 weeks on Mon, Wed":          {Freq: Weekly, Interval: 2, ByWeekday: []time.Weekday{time.Monday, time.Wednesday}},
		"Every month, 5 times":               {Freq: Monthly, Interval: 1, Count: 5},
		"Every year until Jun 30, 2026":      {Freq: Yearly, Interval: 1, Until: &until},
	}
	for want, rule := range cases {
		assert.Equal(t, want, rule.Describe())
	}
}

func TestExpandDeterministic(t *testing.T) {
	anchor := time.Date(2025, 4, 1, 7, 15, 0, 0, time.UTC)
	rule := Rule{Freq: Weekly, Interval: 1, ByWeekday: []time.Weekday{time.Tuesday, time.Thursday}}
	start := anchor
	end := anchor.AddDate(0, 2, 0)

	first, err := rule.Expand(anchor, start, end)
	require.NoError(t, err)
	second, err := rule.Expand(anchor, start, end)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
