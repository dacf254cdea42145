package service

import "time"

// Recurrence rule types accepted by ExpandRecurrence.
const (
	RecurrenceDaily   = "daily"
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"
	RecurrenceYearly  = "yearly"
)

// maxOccurrences bounds fan-out: at most 52 dates are generated after
// the start date, 53 in total.
const maxOccurrences = 52

// RecurrenceRule describes how a lesson series repeats.
type RecurrenceRule struct {
	Type     string
	Interval int
	Until    *time.Time
}

// ExpandRecurrence returns the ordered list of dates a series spans,
// starting with the start date itself. Each subsequent date advances
// the previous one by one rule unit times the interval; monthly and
// yearly steps use native calendar rollover. Expansion stops, discarding
// the just-computed date, once a date exceeds the rule's end date. An
// unrecognized rule type terminates expansion with the dates
// accumulated so far. Pure and deterministic.
func ExpandRecurrence(start time.Time, rule RecurrenceRule) []time.Time {
	dates := []time.Time{start}

	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}

	current := start
	for i := 0; i < maxOccurrences; i++ {
		switch rule.Type {
		case RecurrenceDaily:
			current = current.AddDate(0, 0, interval)
		case RecurrenceWeekly:
			current = current.AddDate(0, 0, 7*interval)
		case RecurrenceMonthly:
			current = current.AddDate(0, interval, 0)
		case RecurrenceYearly:
			current = current.AddDate(interval, 0, 0)
		default:
			return dates
		}

		if rule.Until != nil && current.After(*rule.Until) {
			break
		}

		dates = append(dates, current)
	}

	return dates
}
