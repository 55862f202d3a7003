package model

import "time"

// TimeRangeKind discriminates the TimeRange tagged union.
type TimeRangeKind string

const (
	TimeRangeNone     TimeRangeKind = ""
	TimeRangeRelative TimeRangeKind = "relative"
	TimeRangeAbsolute TimeRangeKind = "absolute"
)

// RelativeUnit is the closed set of units a relative TimeRange may use.
type RelativeUnit string

const (
	UnitHour  RelativeUnit = "h"
	UnitDay   RelativeUnit = "d"
	UnitWeek  RelativeUnit = "w"
	UnitMonth RelativeUnit = "m"
)

var relativeBounds = map[RelativeUnit][2]int{
	UnitHour:  {1, 720},
	UnitDay:   {1, 365},
	UnitWeek:  {1, 52},
	UnitMonth: {1, 12},
}

// TimeRange is the structured time filter produced either by a frontend
// modal or by the filter-extraction LLM call. Exactly one of Relative or
// Absolute is meaningful, selected by Kind.
type TimeRange struct {
	Kind     TimeRangeKind
	Relative RelativeRange
	Absolute AbsoluteRange
}

type RelativeRange struct {
	Value int
	Unit  RelativeUnit
}

type AbsoluteRange struct {
	Start time.Time
	End   time.Time
}

// Validate checks t against the bounds in spec.md §4.6.2. A zero-kind
// TimeRange is always valid (no time filter requested). now is the
// reference instant used to bound Absolute.End and its span.
func (t TimeRange) Validate(now time.Time) (bool, string) {
	switch t.Kind {
	case TimeRangeNone:
		return true, ""
	case TimeRangeRelative:
		bounds, ok := relativeBounds[t.Relative.Unit]
		if !ok {
			return false, "unknown relative unit"
		}
		if t.Relative.Value < bounds[0] || t.Relative.Value > bounds[1] {
			return false, "relative value out of range for unit"
		}
		return true, ""
	case TimeRangeAbsolute:
		if !t.Absolute.Start.Before(t.Absolute.End) {
			return false, "start must be before end"
		}
		if t.Absolute.End.After(now) {
			return false, "end must not be in the future"
		}
		if t.Absolute.End.Sub(t.Absolute.Start) > 365*24*time.Hour {
			return false, "span exceeds 365 days"
		}
		return true, ""
	default:
		return false, "unknown time range kind"
	}
}
