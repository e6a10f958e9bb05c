package scheduler

import "fmt"

// System defaults applied when a user has no explicit overrides.
const (
	DefaultBreakTime        = 15
	DefaultMinChunkDuration = 10
	DefaultDayEnd           = 23 * 60
)

const minutesPerDay = 24 * 60

// Policy holds the per-user placement parameters, all expressed in minutes.
type Policy struct {
	// BreakTime is reserved before every new chunk and after the previous one.
	BreakTime int

	// MinChunkDuration is the smallest gap worth using while the remaining need is at least this large.
	MinChunkDuration int

	// DayEnd is the offset from midnight after which a day is unavailable.
	DayEnd int
}

// DefaultPolicy returns the system-wide fallback policy.
func DefaultPolicy() Policy {
	return Policy{
		BreakTime:        DefaultBreakTime,
		MinChunkDuration: DefaultMinChunkDuration,
		DayEnd:           DefaultDayEnd,
	}
}

// Validate reports whether the policy can drive a schedule.
func (p Policy) Validate() error {
	if p.BreakTime < 0 {
		return fmt.Errorf("%w: break time must not be negative", ErrInvalidScheduleRequest)
	}
	if p.MinChunkDuration < 0 {
		return fmt.Errorf("%w: minimum chunk duration must not be negative", ErrInvalidScheduleRequest)
	}
	if p.DayEnd <= 0 || p.DayEnd > minutesPerDay {
		return fmt.Errorf("%w: day end must be within the day", ErrInvalidScheduleRequest)
	}
	return nil
}
