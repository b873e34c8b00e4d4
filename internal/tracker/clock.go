package tracker

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Clock abstracts time retrieval so business logic is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// IDGenerator abstracts unique ID generation so tests are deterministic.
type IDGenerator interface {
	New() string
}

// TimestampIDGenerator produces ids of the form <unix-millis>-<random>.
// The millisecond prefix keeps ids roughly ordered by creation time and the
// random suffix prevents collisions across process restarts.
type TimestampIDGenerator struct {
	clock Clock
}

func NewTimestampIDGenerator(clock Clock) *TimestampIDGenerator {
	return &TimestampIDGenerator{clock: clock}
}

func (g *TimestampIDGenerator) New() string {
	return fmt.Sprintf("%d-%s", g.clock.Now().UnixMilli(), uuid.NewString()[:8])
}
