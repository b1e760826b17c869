package metrics

import (
	"time"

	"github.com/google/uuid"
)

// Conn is a point in time view of one pool slot.
type Conn struct {
	Time time.Time

	Slot  int
	ID    uuid.UUID
	State ConnState
	Since time.Time

	CreatedAt     time.Time
	LastCheckinAt time.Time

	// Utilization is the time spent in each state since the last read.
	Utilization   [ConnStateCount]time.Duration
	CheckoutCount int
}

func (T *Conn) Age() time.Duration {
	return T.Time.Sub(T.CreatedAt)
}
