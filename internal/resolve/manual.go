package resolve

import (
	"context"
	"time"

	"github.com/rotorhq/rotor/internal/oncall"
)

// ManualStrategy performs no computation. Manual rotations are
// populated solely through the external shift-recording pipeline;
// callers wanting the current assignment query materialized shift
// rows directly. Resolution reports "nothing scheduled" rather than
// an error: an empty answer here is the designed behavior, not a
// coverage gap.
type ManualStrategy struct{}

// Resolve always returns (nil, nil).
func (ManualStrategy) Resolve(ctx context.Context, rot *oncall.Rotation, participants []oncall.Participant, at time.Time) (*oncall.CurrentOnCall, error) {
	return nil, nil
}
