package resilience

import "time"

// Counts tracks the rolling statistics a circuit breaker uses to decide
// when to trip and when to recover.
type Counts struct {
	Requests             int
	Successes            int
	Failures             int
	ConsecutiveSuccesses int
	ConsecutiveFailures  int

	Timeout        int
	ShortCircuited int
	Rejected       int

	LastSuccess time.Time
	LastFailure time.Time
	LastTimeout time.Time

	TotalSuccesses uint32
	TotalFailures  uint32
}

// NewCounts returns a zeroed Counts.
func NewCounts() Counts {
	return Counts{}
}

func (c *Counts) RecordSuccess() {
	c.Requests++
	c.Successes++
	c.TotalSuccesses++
	c.ConsecutiveSuccesses++
	c.ConsecutiveFailures = 0
	c.LastSuccess = time.Now()
}

func (c *Counts) RecordFailure() {
	c.Requests++
	c.Failures++
	c.TotalFailures++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
	c.LastFailure = time.Now()
}

func (c *Counts) RecordTimeout() {
	c.Requests++
	c.Failures++
	c.TotalFailures++
	c.Timeout++
	c.ConsecutiveFailures++
	c.ConsecutiveSuccesses = 0
	c.LastTimeout = time.Now()
	c.LastFailure = time.Now()
}

func (c *Counts) RecordRejected() {
	c.Rejected++
}

func (c *Counts) RecordShortCircuited() {
	c.ShortCircuited++
}

func (c *Counts) Reset() {
	c.Requests = 0
	c.Successes = 0
	c.Failures = 0
	c.ConsecutiveSuccesses = 0
	c.ConsecutiveFailures = 0
	c.Timeout = 0
	c.ShortCircuited = 0
	c.Rejected = 0
}
