package admission

import "time"

// Option applies a configuration option to the Controller.
type Option func(*Controller)

// WithClock sets the time source used for the past-event check and
// registration timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}
