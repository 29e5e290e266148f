package resolve

import (
	"context"
	"log/slog"
	"time"

	"github.com/rotorhq/rotor/internal/oncall"
)

// Source provides read-only snapshot access to rotation configuration.
// Implemented by the SQLite store; tests use in-memory fakes.
type Source interface {
	// Rotation returns the rotation by id, or (nil, nil) if it does
	// not exist.
	Rotation(ctx context.Context, id string) (*oncall.Rotation, error)

	// Participants returns all participant slots of a rotation,
	// ordered by order_index.
	Participants(ctx context.Context, rotationID string) ([]oncall.Participant, error)

	// ActiveOverrides returns overrides covering instant at
	// (start <= at < end), ordered by start_datetime then id.
	ActiveOverrides(ctx context.Context, rotationID string, at time.Time) ([]oncall.Override, error)

	// EscalationPolicies returns a rotation's escalation steps ordered
	// ascending by level.
	EscalationPolicies(ctx context.Context, rotationID string) ([]oncall.EscalationPolicy, error)
}

// GroupDirectory resolves identity-group membership. Lookups are live:
// membership edits take effect on the next resolution, nothing is
// cached here.
type GroupDirectory interface {
	ActiveMembers(ctx context.Context, groupID string) ([]string, error)
}

// AnchorCache persists cron iteration checkpoints per rotation. A nil
// cache is legal; cron resolution then replays from the epoch.
type AnchorCache interface {
	// Anchor returns the stored checkpoint, or (nil, nil) if none.
	Anchor(ctx context.Context, rotationID string) (*oncall.ShiftAnchor, error)

	// SaveAnchor stores a checkpoint. Implementations must never move
	// an existing anchor backwards (see store.SaveAnchor).
	SaveAnchor(ctx context.Context, a oncall.ShiftAnchor) error
}

// Strategy computes the scheduled shift for one schedule type.
//
// Strategies are stateless and safe for concurrent use; all inputs
// arrive as arguments. A (nil, nil) return means the type computes no
// schedule (manual rotations).
type Strategy interface {
	Resolve(ctx context.Context, rot *oncall.Rotation, participants []oncall.Participant, at time.Time) (*oncall.CurrentOnCall, error)
}

// DefaultMaxDepth bounds rotation_participant delegation during
// escalation expansion. The data model does not forbid cyclic
// references, so expansion must not rely on the call stack to
// terminate.
const DefaultMaxDepth = 5

// Resolver answers "who is on call for rotation R at instant T".
//
// Control flow per query: override precedence first, then strategy
// dispatch by schedule type. All computation is a pure read over
// (configuration, participants, overrides, T); the only mutable state
// nearby is the cron anchor cache, which is an optimization and never
// affects the answer.
type Resolver struct {
	src     Source
	groups  GroupDirectory
	anchors AnchorCache
	clock   Clock
	log     *slog.Logger

	strategies map[oncall.ScheduleType]Strategy
	maxDepth   int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(c Clock) Option {
	return func(r *Resolver) { r.clock = c }
}

// WithGroupDirectory wires live group-membership lookup for
// group-typed escalation steps.
func WithGroupDirectory(g GroupDirectory) Option {
	return func(r *Resolver) { r.groups = g }
}

// WithAnchorCache wires the cron iteration checkpoint cache.
func WithAnchorCache(a AnchorCache) Option {
	return func(r *Resolver) { r.anchors = a }
}

// WithMaxDepth overrides the escalation delegation bound.
// Use small values only in tests.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) { r.maxDepth = n }
}

// WithLogger replaces the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.log = l }
}

// New creates a Resolver over the given configuration source.
func New(src Source, opts ...Option) *Resolver {
	r := &Resolver{
		src:      src,
		clock:    WallClock{},
		log:      slog.Default(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.strategies = map[oncall.ScheduleType]Strategy{
		oncall.ScheduleWeekly:       WeeklyStrategy{},
		oncall.ScheduleCron:         CronStrategy{Anchors: r.anchors, Log: r.log},
		oncall.ScheduleFollowTheSun: FollowTheSunStrategy{},
		oncall.ScheduleManual:       ManualStrategy{},
	}
	return r
}

// CurrentOnCall resolves who is on call for rotationID at instant at.
//
// An active override wins over any computed schedule. Without one, the
// rotation's strategy computes the shift. A (nil, nil) return means
// the rotation legitimately has nobody scheduled (manual rotations);
// typed errors distinguish coverage gaps from broken configuration.
func (r *Resolver) CurrentOnCall(ctx context.Context, rotationID string, at time.Time) (*oncall.CurrentOnCall, error) {
	at = at.UTC()

	rot, err := r.src.Rotation(ctx, rotationID)
	if err != nil {
		return nil, err
	}
	if rot == nil || !rot.IsActive {
		return nil, rotationNotFound(rotationID)
	}

	// Manual overrides take precedence before any schedule math, and
	// before the not-yet-started check: an override is an explicit
	// human statement of coverage.
	if cur, err := r.activeOverride(ctx, rotationID, at); err != nil || cur != nil {
		return cur, err
	}

	strat, ok := r.strategies[rot.ScheduleType]
	if !ok {
		return nil, configInvalid(rotationID, "unknown schedule type "+string(rot.ScheduleType), nil)
	}

	participants, err := r.src.Participants(ctx, rotationID)
	if err != nil {
		return nil, err
	}

	return strat.Resolve(ctx, rot, participants, at)
}

// CurrentOnCallNow resolves against the injected clock.
func (r *Resolver) CurrentOnCallNow(ctx context.Context, rotationID string) (*oncall.CurrentOnCall, error) {
	return r.CurrentOnCall(ctx, rotationID, r.clock.Now())
}
