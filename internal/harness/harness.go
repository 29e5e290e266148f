package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rotorhq/rotor/internal/config"
	"github.com/rotorhq/rotor/internal/oncall"
	"github.com/rotorhq/rotor/internal/resolve"
	"github.com/rotorhq/rotor/internal/store"
)

// QueryEvent records the outcome of one executed query. Exactly one of
// OnCall, Chain, or ErrorCode is populated, except for manual rotations
// where all three stay empty (nobody computed, no error).
type QueryEvent struct {
	Seq      int       `json:"seq"`
	Op       string    `json:"op"`
	Rotation string    `json:"rotation"`
	At       time.Time `json:"at"`

	OnCall    *oncall.CurrentOnCall    `json:"on_call,omitempty"`
	Chain     []resolve.EscalationStep `json:"chain,omitempty"`
	ErrorCode string                   `json:"error,omitempty"`
}

// Result holds the outcome of running one scenario.
type Result struct {
	// Trace lists all executed queries in order with their outcomes.
	Trace []QueryEvent

	// Failures lists expect-clause mismatches. Empty means all inline
	// expectations held.
	Failures []string
}

// Passed reports whether every expect clause held.
func (r *Result) Passed() bool {
	return len(r.Failures) == 0
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. The
// definitions travel through the same loader and importer the CLI uses,
// and queries execute against the real resolver with the store wired as
// source, group directory, and anchor cache.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.OpenMemory()
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	for _, defPath := range scenario.Definitions {
		doc, errs := config.LoadFile(defPath)
		if len(errs) > 0 {
			return nil, fmt.Errorf("definition %s: %w", defPath, errs[0])
		}
		if _, err := config.Import(ctx, st, doc, oncall.UUIDv7Generator{}); err != nil {
			return nil, fmt.Errorf("importing %s: %w", defPath, err)
		}
	}

	// Suppress resolver diagnostics; scenarios assert on outcomes, not
	// log output.
	r := resolve.New(st,
		resolve.WithGroupDirectory(st),
		resolve.WithAnchorCache(st),
		resolve.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)

	result := &Result{}
	for i, q := range scenario.Queries {
		event, err := executeQuery(ctx, r, i+1, q)
		if err != nil {
			return nil, fmt.Errorf("queries[%d]: %w", i, err)
		}
		result.Trace = append(result.Trace, event)
		checkExpect(result, i, q, event)
	}
	return result, nil
}

// executeQuery runs one query and records its outcome. Typed resolution
// errors become trace events; anything else aborts the scenario.
func executeQuery(ctx context.Context, r *resolve.Resolver, seq int, q QueryStep) (QueryEvent, error) {
	at, err := time.Parse(time.RFC3339, q.At)
	if err != nil {
		return QueryEvent{}, err
	}
	at = at.UTC()

	op := q.Op
	if op == "" {
		op = OpWhois
	}
	event := QueryEvent{Seq: seq, Op: op, Rotation: q.Rotation, At: at}

	switch op {
	case OpWhois:
		cur, err := r.CurrentOnCall(ctx, q.Rotation, at)
		if err != nil {
			code := resolve.CodeOf(err)
			if code == "" {
				return QueryEvent{}, err
			}
			event.ErrorCode = string(code)
			return event, nil
		}
		event.OnCall = cur

	case OpChain:
		steps, err := r.EscalationChain(ctx, q.Rotation, at)
		if err != nil {
			code := resolve.CodeOf(err)
			if code == "" {
				return QueryEvent{}, err
			}
			event.ErrorCode = string(code)
			return event, nil
		}
		event.Chain = steps
	}
	return event, nil
}

// checkExpect evaluates a query's expect clause against its outcome.
func checkExpect(result *Result, index int, q QueryStep, event QueryEvent) {
	e := q.Expect
	if e == nil {
		return
	}

	fail := func(format string, args ...any) {
		result.Failures = append(result.Failures,
			fmt.Sprintf("queries[%d] (%s %s): %s", index, event.Op, q.Rotation, fmt.Sprintf(format, args...)))
	}

	switch {
	case e.Error != "":
		if event.ErrorCode != e.Error {
			fail("want error %s, got %q", e.Error, event.ErrorCode)
		}
	case e.Nobody:
		if event.ErrorCode != "" {
			fail("want nobody, got error %s", event.ErrorCode)
		} else if event.OnCall != nil {
			fail("want nobody, got %s", event.OnCall.IdentityID)
		}
	case e.Identity != "":
		if event.ErrorCode != "" {
			fail("want %s, got error %s", e.Identity, event.ErrorCode)
		} else if event.OnCall == nil {
			fail("want %s, got nobody", e.Identity)
		} else if event.OnCall.IdentityID != e.Identity {
			fail("want %s, got %s", e.Identity, event.OnCall.IdentityID)
		}
	}

	if e.Override != nil && event.OnCall != nil && event.OnCall.IsOverride != *e.Override {
		fail("want is_override=%v, got %v", *e.Override, event.OnCall.IsOverride)
	}
}
