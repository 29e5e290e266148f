package store

import (
	"context"
	"fmt"

	"github.com/rotorhq/rotor/internal/oncall"
)

// Configuration rows are upserted: the admin surface re-imports whole
// definition documents, so writes must be idempotent.

// PutRotation inserts or replaces a rotation configuration row.
func (s *Store) PutRotation(ctx context.Context, rot oncall.Rotation) error {
	shiftCfg, err := windowsToDB(rot.ShiftConfig)
	if err != nil {
		return fmt.Errorf("put rotation: %w", err)
	}

	var startDate any
	if !rot.RotationStartDate.IsZero() {
		startDate = timeToDB(rot.RotationStartDate)
	}
	var lengthDays any
	if rot.RotationLengthDays != 0 {
		lengthDays = rot.RotationLengthDays
	}
	var cronExpr any
	if rot.ScheduleCron != "" {
		cronExpr = rot.ScheduleCron
	}
	var cfg any
	if shiftCfg != "" {
		cfg = shiftCfg
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rotations
		(id, scope_kind, scope_id, schedule_type, rotation_length_days,
		 rotation_start_date, schedule_cron, shift_config, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			scope_kind = excluded.scope_kind,
			scope_id = excluded.scope_id,
			schedule_type = excluded.schedule_type,
			rotation_length_days = excluded.rotation_length_days,
			rotation_start_date = excluded.rotation_start_date,
			schedule_cron = excluded.schedule_cron,
			shift_config = excluded.shift_config,
			is_active = excluded.is_active
	`,
		rot.ID, rot.Scope.Kind, rot.Scope.ID, rot.ScheduleType,
		lengthDays, startDate, cronExpr, cfg, rot.IsActive,
	)
	if err != nil {
		return fmt.Errorf("put rotation: %w", err)
	}
	return nil
}

// PutParticipant inserts or replaces a participant slot.
func (s *Store) PutParticipant(ctx context.Context, p oncall.Participant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO participants
		(id, rotation_id, identity_id, order_index, is_active, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rotation_id = excluded.rotation_id,
			identity_id = excluded.identity_id,
			order_index = excluded.order_index,
			is_active = excluded.is_active,
			start_date = excluded.start_date,
			end_date = excluded.end_date
	`,
		p.ID, p.RotationID, p.IdentityID, p.OrderIndex, p.IsActive,
		nullTimeToDB(p.StartDate), nullTimeToDB(p.EndDate),
	)
	if err != nil {
		return fmt.Errorf("put participant: %w", err)
	}
	return nil
}

// PutOverride inserts or replaces an override.
func (s *Store) PutOverride(ctx context.Context, o oncall.Override) error {
	var original, reason any
	if o.OriginalIdentityID != "" {
		original = o.OriginalIdentityID
	}
	if o.Reason != "" {
		reason = o.Reason
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO overrides
		(id, rotation_id, original_identity_id, override_identity_id,
		 start_datetime, end_datetime, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rotation_id = excluded.rotation_id,
			original_identity_id = excluded.original_identity_id,
			override_identity_id = excluded.override_identity_id,
			start_datetime = excluded.start_datetime,
			end_datetime = excluded.end_datetime,
			reason = excluded.reason
	`,
		o.ID, o.RotationID, original, o.OverrideIdentityID,
		timeToDB(o.StartDatetime), timeToDB(o.EndDatetime), reason,
	)
	if err != nil {
		return fmt.Errorf("put override: %w", err)
	}
	return nil
}

// PutEscalationPolicy inserts or replaces an escalation step.
func (s *Store) PutEscalationPolicy(ctx context.Context, p oncall.EscalationPolicy) error {
	channels, err := channelsToDB(p.NotificationChannels)
	if err != nil {
		return fmt.Errorf("put escalation policy: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO escalation_policies
		(id, rotation_id, level, escalation_type, target_id,
		 escalation_delay_minutes, notification_channels)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			rotation_id = excluded.rotation_id,
			level = excluded.level,
			escalation_type = excluded.escalation_type,
			target_id = excluded.target_id,
			escalation_delay_minutes = excluded.escalation_delay_minutes,
			notification_channels = excluded.notification_channels
	`,
		p.ID, p.RotationID, p.Level, p.EscalationType, p.TargetID,
		p.EscalationDelayMinutes, channels,
	)
	if err != nil {
		return fmt.Errorf("put escalation policy: %w", err)
	}
	return nil
}

// PutGroupMember inserts or replaces a group membership row.
func (s *Store) PutGroupMember(ctx context.Context, groupID, identityID string, active bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO group_members (group_id, identity_id, is_active)
		VALUES (?, ?, ?)
		ON CONFLICT(group_id, identity_id) DO UPDATE SET
			is_active = excluded.is_active
	`, groupID, identityID, active)
	if err != nil {
		return fmt.Errorf("put group member: %w", err)
	}
	return nil
}

// RecordShift appends a materialized shift and reports whether a new
// row was inserted.
//
// Shift history is append-only. ON CONFLICT(rotation_id, shift_start)
// DO NOTHING makes racing materializers idempotent: whichever worker
// lands first wins and the rest observe inserted=false. No
// application-level locking is involved.
func (s *Store) RecordShift(ctx context.Context, id string, sh oncall.Shift) (inserted bool, err error) {
	var overrideID any
	if sh.OverrideID != "" {
		overrideID = sh.OverrideID
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO shifts
		(id, rotation_id, identity_id, shift_start, shift_end,
		 is_override, override_id, alerts_received, incidents_created)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(rotation_id, shift_start) DO NOTHING
	`,
		id, sh.RotationID, sh.IdentityID,
		timeToDB(sh.ShiftStart), timeToDB(sh.ShiftEnd),
		sh.IsOverride, overrideID, sh.AlertsReceived, sh.IncidentsCreated,
	)
	if err != nil {
		return false, fmt.Errorf("record shift: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record shift: %w", err)
	}
	return n > 0, nil
}

// SaveAnchor stores a cron iteration checkpoint.
//
// The guarded upsert never moves an existing anchor backwards: racing
// resolutions may write in any order, and an anchor that regressed
// would silently grow the next walk. A changed expression replaces the
// anchor outright since the occurrence numbering restarted.
func (s *Store) SaveAnchor(ctx context.Context, a oncall.ShiftAnchor) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO shift_anchors (rotation_id, expression, handoff_count, handoff_time)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(rotation_id) DO UPDATE SET
			expression = excluded.expression,
			handoff_count = excluded.handoff_count,
			handoff_time = excluded.handoff_time
		WHERE excluded.expression != shift_anchors.expression
		   OR excluded.handoff_count > shift_anchors.handoff_count
	`,
		a.RotationID, a.Expression, a.HandoffCount, timeToDB(a.HandoffTime),
	)
	if err != nil {
		return fmt.Errorf("save shift anchor: %w", err)
	}
	return nil
}
