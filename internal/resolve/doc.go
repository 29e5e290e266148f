// Package resolve implements the on-call rotation resolution engine.
//
// Given a rotation's configuration and a point in time, the resolver
// determines who is currently responsible for incident response,
// honoring manual overrides and computing escalation fallback chains.
//
// CONTROL FLOW:
//
// A query "who is on call for rotation R at instant T" proceeds:
//  1. Override precedence: an active override covering T wins
//     unconditionally over any computed schedule.
//  2. Strategy dispatch: the rotation's schedule_type selects one of
//     four stateless strategies (weekly, cron, follow_the_sun,
//     manual).
//  3. The strategy returns (identity, shift_start, shift_end) or a
//     typed error distinguishing coverage gaps from broken
//     configuration.
//
// DETERMINISM:
//
// Every resolution is a pure read over (configuration, participants,
// overrides, T). The current time is always injected via Clock, never
// read ambiently, so tests can time-travel. Concurrent callers get
// consistent answers; the only mutable state near this package is the
// cron anchor cache, which is a per-rotation checkpoint optimization
// and never changes an answer.
//
// TERMINATION:
//
// Escalation steps may delegate to other rotations, and the data model
// does not forbid cyclic references. Expansion carries an explicit
// depth counter (DefaultMaxDepth hops) and fails with
// RECURSION_LIMIT_EXCEEDED instead of relying on the call stack.
package resolve
