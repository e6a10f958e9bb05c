// Package scheduler carves an item's required minutes into non-overlapping
// chunks, walking day by day from the start date towards the deadline.
//
// The package is free of persistence: PlaceChunk works on an immutable
// snapshot of one day's busy intervals, and Walk drives the day loop through
// caller-supplied load and commit functions.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

// ErrInvalidScheduleRequest indicates malformed scheduling input. No chunk is
// written when it is returned.
var ErrInvalidScheduleRequest = errors.New("invalid schedule request")

// Interval is a half-open [Start, End) block of time.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Minutes returns the interval length in whole minutes.
func (i Interval) Minutes() int {
	return int(i.End.Sub(i.Start) / time.Minute)
}

// Overlaps reports whether the two intervals share any instant.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End) && other.Start.Before(i.End)
}

// Request describes one item's scheduling needs.
type Request struct {
	// StartDate is the first calendar day that may receive chunks. Only its date part is used.
	StartDate time.Time

	// Due is the deadline; chunks are placed strictly before its calendar day.
	Due time.Time

	TotalMinutes    int
	MaxChunkMinutes int
}

// Validate rejects requests that can never be scheduled.
func (r Request) Validate(loc *time.Location) error {
	if r.TotalMinutes <= 0 {
		return fmt.Errorf("%w: total time needed must be positive", ErrInvalidScheduleRequest)
	}
	if r.MaxChunkMinutes <= 0 {
		return fmt.Errorf("%w: max chunk duration must be positive", ErrInvalidScheduleRequest)
	}
	if r.Due.IsZero() {
		return fmt.Errorf("%w: due date is required", ErrInvalidScheduleRequest)
	}
	if !r.firstDay(loc).Before(r.dueDay(loc)) {
		return fmt.Errorf("%w: start date must be before the due date", ErrInvalidScheduleRequest)
	}
	return nil
}

// Days lists midnight of every schedulable day, from the start date up to the
// day before the due date.
func (r Request) Days(loc *time.Location) []time.Time {
	last := r.dueDay(loc)
	days := make([]time.Time, 0)
	for day := r.firstDay(loc); day.Before(last); day = NextDay(day) {
		days = append(days, day)
	}
	return days
}

func (r Request) firstDay(loc *time.Location) time.Time {
	y, m, d := r.StartDate.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, locationOrUTC(loc))
}

func (r Request) dueDay(loc *time.Location) time.Time {
	return Midnight(r.Due, loc)
}

// Midnight returns the start of t's calendar day in loc.
func Midnight(t time.Time, loc *time.Location) time.Time {
	loc = locationOrUTC(loc)
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// NextDay returns midnight of the following calendar day.
func NextDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, day.Location())
}

func locationOrUTC(loc *time.Location) *time.Location {
	if loc == nil {
		return time.UTC
	}
	return loc
}

// PlaceChunk finds the first gap on day that can hold part of the remaining
// need. day must be a midnight; busy holds the day's committed chunks in any
// order. The boolean is false when the day has no usable gap.
func PlaceChunk(day time.Time, busy []Interval, remaining, maxChunk int, policy Policy) (Interval, bool) {
	if remaining <= 0 || maxChunk <= 0 {
		return Interval{}, false
	}

	cutoff := dayEnd(day, policy.DayEnd)
	ordered := make([]Interval, 0, len(busy)+1)
	for _, interval := range busy {
		if interval.Start.After(cutoff) {
			continue
		}
		ordered = append(ordered, interval)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Start.Before(ordered[j].Start)
	})
	ordered = append(ordered, Interval{Start: cutoff, End: cutoff})

	cursor := day
	for _, chunk := range ordered {
		gap := int(chunk.Start.Sub(cursor)/time.Minute) - 2*policy.BreakTime
		if gap >= policy.MinChunkDuration || remaining < policy.MinChunkDuration {
			if size := min(remaining, gap, maxChunk); size > 0 {
				start := cursor.Add(minutes(policy.BreakTime))
				return Interval{Start: start, End: start.Add(minutes(size))}, true
			}
		}
		if chunk.End.After(cursor) {
			cursor = chunk.End
		}
	}

	return Interval{}, false
}

// LoadFunc returns the busy intervals for the day starting at midnight day.
type LoadFunc func(ctx context.Context, day time.Time) ([]Interval, error)

// CommitFunc persists one placement. An error aborts the walk.
type CommitFunc func(ctx context.Context, chunk Interval) error

// Outcome summarises a walk. Remaining > 0 means the deadline was reached
// before the whole need could be placed.
type Outcome struct {
	Placed    []Interval
	Scheduled int
	Remaining int
}

// Complete reports whether every required minute was placed.
func (o Outcome) Complete() bool {
	return o.Remaining <= 0
}

// Walk places chunks day by day until the request is satisfied or the
// deadline day is reached. After each placement the same day is reloaded and
// scanned again. Chunks committed before an error are kept and reported.
func Walk(ctx context.Context, req Request, policy Policy, loc *time.Location, load LoadFunc, commit CommitFunc) (Outcome, error) {
	outcome := Outcome{Remaining: req.TotalMinutes}

	if err := req.Validate(loc); err != nil {
		return outcome, err
	}
	if err := policy.Validate(); err != nil {
		return outcome, err
	}

	for _, day := range req.Days(loc) {
		for outcome.Remaining > 0 {
			if err := ctx.Err(); err != nil {
				return outcome, err
			}

			busy, err := load(ctx, day)
			if err != nil {
				return outcome, err
			}

			chunk, ok := PlaceChunk(day, busy, outcome.Remaining, req.MaxChunkMinutes, policy)
			if !ok {
				break
			}

			if err := commit(ctx, chunk); err != nil {
				return outcome, err
			}

			outcome.Placed = append(outcome.Placed, chunk)
			outcome.Scheduled += chunk.Minutes()
			outcome.Remaining -= chunk.Minutes()
		}

		if outcome.Remaining <= 0 {
			break
		}
	}

	return outcome, nil
}

// dayEnd returns the wall-clock cutoff on day. Building it from date fields
// keeps it at the configured time on days with a DST transition.
func dayEnd(day time.Time, dayEndMinutes int) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, 0, dayEndMinutes, 0, 0, day.Location())
}

func minutes(n int) time.Duration {
	return time.Duration(n) * time.Minute
}
