package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rotorhq/rotor/internal/oncall"
)

// The read side implements resolve.Source, resolve.GroupDirectory and
// the anchor half of resolve.AnchorCache. All queries order results
// deterministically so concurrent callers see identical snapshots.

// Rotation returns the rotation by id, or (nil, nil) if absent.
func (s *Store) Rotation(ctx context.Context, id string) (*oncall.Rotation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scope_kind, scope_id, schedule_type,
		       rotation_length_days, rotation_start_date,
		       schedule_cron, shift_config, is_active
		FROM rotations
		WHERE id = ?
	`, id)

	var (
		rot        oncall.Rotation
		lengthDays sql.NullInt64
		startDate  sql.NullString
		cronExpr   sql.NullString
		shiftCfg   sql.NullString
	)
	err := row.Scan(&rot.ID, &rot.Scope.Kind, &rot.Scope.ID, &rot.ScheduleType,
		&lengthDays, &startDate, &cronExpr, &shiftCfg, &rot.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query rotation: %w", err)
	}

	if lengthDays.Valid {
		rot.RotationLengthDays = int(lengthDays.Int64)
	}
	if startDate.Valid {
		t, err := timeFromDB(startDate.String)
		if err != nil {
			return nil, err
		}
		rot.RotationStartDate = t
	}
	if cronExpr.Valid {
		rot.ScheduleCron = cronExpr.String
	}
	windows, err := windowsFromDB(shiftCfg)
	if err != nil {
		return nil, err
	}
	rot.ShiftConfig = windows

	return &rot, nil
}

// Participants returns all participant slots of a rotation, ordered by
// order_index then id.
func (s *Store) Participants(ctx context.Context, rotationID string) ([]oncall.Participant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rotation_id, identity_id, order_index, is_active, start_date, end_date
		FROM participants
		WHERE rotation_id = ?
		ORDER BY order_index ASC, id ASC
	`, rotationID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var out []oncall.Participant
	for rows.Next() {
		var (
			p          oncall.Participant
			start, end sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.RotationID, &p.IdentityID, &p.OrderIndex,
			&p.IsActive, &start, &end); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if p.StartDate, err = nullTimeFromDB(start); err != nil {
			return nil, err
		}
		if p.EndDate, err = nullTimeFromDB(end); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate participants: %w", err)
	}
	return out, nil
}

// ActiveOverrides returns overrides covering instant at, using the
// half-open interval [start_datetime, end_datetime). Ordered by
// start_datetime then id, which is the precedence order for overlaps.
func (s *Store) ActiveOverrides(ctx context.Context, rotationID string, at time.Time) ([]oncall.Override, error) {
	ts := timeToDB(at)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rotation_id, original_identity_id, override_identity_id,
		       start_datetime, end_datetime, reason
		FROM overrides
		WHERE rotation_id = ? AND start_datetime <= ? AND ? < end_datetime
		ORDER BY start_datetime ASC, id ASC
	`, rotationID, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("query overrides: %w", err)
	}
	defer rows.Close()

	var out []oncall.Override
	for rows.Next() {
		var (
			o                oncall.Override
			original, reason sql.NullString
			start, end       string
		)
		if err := rows.Scan(&o.ID, &o.RotationID, &original, &o.OverrideIdentityID,
			&start, &end, &reason); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		o.OriginalIdentityID = original.String
		o.Reason = reason.String
		if o.StartDatetime, err = timeFromDB(start); err != nil {
			return nil, err
		}
		if o.EndDatetime, err = timeFromDB(end); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	return out, nil
}

// EscalationPolicies returns a rotation's escalation steps ordered
// ascending by level.
func (s *Store) EscalationPolicies(ctx context.Context, rotationID string) ([]oncall.EscalationPolicy, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rotation_id, level, escalation_type, target_id,
		       escalation_delay_minutes, notification_channels
		FROM escalation_policies
		WHERE rotation_id = ?
		ORDER BY level ASC
	`, rotationID)
	if err != nil {
		return nil, fmt.Errorf("query escalation policies: %w", err)
	}
	defer rows.Close()

	var out []oncall.EscalationPolicy
	for rows.Next() {
		var (
			p        oncall.EscalationPolicy
			channels string
		)
		if err := rows.Scan(&p.ID, &p.RotationID, &p.Level, &p.EscalationType,
			&p.TargetID, &p.EscalationDelayMinutes, &channels); err != nil {
			return nil, fmt.Errorf("scan escalation policy: %w", err)
		}
		if p.NotificationChannels, err = channelsFromDB(channels); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate escalation policies: %w", err)
	}
	return out, nil
}

// ActiveMembers returns the currently-active identities of a group,
// ordered by identity id. This is the live lookup behind group-typed
// escalation steps.
func (s *Store) ActiveMembers(ctx context.Context, groupID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity_id
		FROM group_members
		WHERE group_id = ? AND is_active = 1
		ORDER BY identity_id ASC
	`, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group members: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group member: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group members: %w", err)
	}
	return out, nil
}

// Anchor returns the cron checkpoint for a rotation, or (nil, nil).
func (s *Store) Anchor(ctx context.Context, rotationID string) (*oncall.ShiftAnchor, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT rotation_id, expression, handoff_count, handoff_time
		FROM shift_anchors
		WHERE rotation_id = ?
	`, rotationID)

	var (
		a  oncall.ShiftAnchor
		ts string
	)
	err := row.Scan(&a.RotationID, &a.Expression, &a.HandoffCount, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query shift anchor: %w", err)
	}
	if a.HandoffTime, err = timeFromDB(ts); err != nil {
		return nil, err
	}
	return &a, nil
}

// Shifts returns the most recent materialized shifts for a rotation,
// newest first. Manual rotations are read exclusively through here.
func (s *Store) Shifts(ctx context.Context, rotationID string, limit int) ([]oncall.Shift, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT rotation_id, identity_id, shift_start, shift_end,
		       is_override, override_id, alerts_received, incidents_created
		FROM shifts
		WHERE rotation_id = ?
		ORDER BY shift_start DESC
		LIMIT ?
	`, rotationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query shifts: %w", err)
	}
	defer rows.Close()

	var out []oncall.Shift
	for rows.Next() {
		var (
			sh         oncall.Shift
			overrideID sql.NullString
			start, end string
		)
		if err := rows.Scan(&sh.RotationID, &sh.IdentityID, &start, &end,
			&sh.IsOverride, &overrideID, &sh.AlertsReceived, &sh.IncidentsCreated); err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		sh.OverrideID = overrideID.String
		if sh.ShiftStart, err = timeFromDB(start); err != nil {
			return nil, err
		}
		if sh.ShiftEnd, err = timeFromDB(end); err != nil {
			return nil, err
		}
		out = append(out, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shifts: %w", err)
	}
	return out, nil
}

// RotationIDs returns all rotation ids, ordered. Used by the CLI to
// enumerate importable state.
func (s *Store) RotationIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM rotations ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query rotation ids: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan rotation id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rotation ids: %w", err)
	}
	return out, nil
}
