package oncall

import (
	"fmt"
	"strings"
	"time"
)

// Validation error codes (E100-E149).
const (
	// Rotation errors (E100-E119)
	ErrRotationIDEmpty      = "E100" // rotation id is required
	ErrInvalidScope         = "E101" // scope kind must be organization or service
	ErrInvalidScheduleType  = "E102" // unknown schedule_type
	ErrMissingStartDate     = "E103" // rotation_start_date required for this type
	ErrInvalidLengthDays    = "E104" // rotation_length_days must be >= 1
	ErrMissingCron          = "E105" // schedule_cron required for cron type
	ErrMissingShiftConfig   = "E106" // shift_config required for follow_the_sun
	ErrFieldForbidden       = "E107" // field populated that the type does not use
	ErrInvalidWindowHours   = "E108" // window hours out of range or inverted
	ErrWindowNoParticipants = "E109" // window has no participant ids
	ErrInvalidTimezone      = "E110" // timezone is not a valid IANA name
	ErrMalformedCron        = "E111" // schedule_cron does not parse as 5-field cron

	// Participant errors (E120-E129)
	ErrParticipantIdentityEmpty = "E120" // identity_id is required
	ErrNegativeOrderIndex       = "E121" // order_index must be >= 0
	ErrDuplicateOrderIndex      = "E122" // duplicate order_index among active participants
	ErrOrderIndexGap            = "E123" // active order_index values not contiguous from 0
	ErrInvalidParticipantWindow = "E124" // start_date must precede end_date

	// Override errors (E130-E139)
	ErrOverrideIdentityEmpty = "E130" // override_identity_id is required
	ErrOverrideInterval      = "E131" // start_datetime must precede end_datetime

	// Escalation errors (E140-E149)
	ErrInvalidEscalationType = "E140" // unknown escalation_type
	ErrEscalationTargetEmpty = "E141" // target_id is required
	ErrInvalidLevel          = "E142" // level must be >= 1
	ErrDuplicateLevel        = "E143" // duplicate level within a rotation
	ErrNegativeDelay         = "E144" // escalation_delay_minutes must be >= 0
)

// ValidationError reports one configuration problem found during
// validation. Code is stable; Message is for humans.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks that the rotation's populated fields match its
// declared schedule type. Returns all errors found (does not fail-fast).
func (r *Rotation) Validate() []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(r.ID) == "" {
		errs = append(errs, ValidationError{
			Field: "id", Message: "rotation id is required", Code: ErrRotationIDEmpty,
		})
	}
	if r.Scope.Kind != ScopeOrganization && r.Scope.Kind != ScopeService {
		errs = append(errs, ValidationError{
			Field:   "scope.kind",
			Message: fmt.Sprintf("invalid scope kind %q", r.Scope.Kind),
			Code:    ErrInvalidScope,
		})
	}

	switch r.ScheduleType {
	case ScheduleWeekly:
		errs = append(errs, r.validateWeekly()...)
	case ScheduleCron:
		errs = append(errs, r.validateCron()...)
	case ScheduleFollowTheSun:
		errs = append(errs, r.validateFollowTheSun()...)
	case ScheduleManual:
		errs = append(errs, r.forbidFields("manual",
			fieldSet{length: true, start: true, cron: true, windows: true})...)
	default:
		errs = append(errs, ValidationError{
			Field:   "schedule_type",
			Message: fmt.Sprintf("unknown schedule type %q", r.ScheduleType),
			Code:    ErrInvalidScheduleType,
		})
	}

	return errs
}

// fieldSet marks type-specific fields a schedule type must NOT populate.
type fieldSet struct {
	length, start, cron, windows bool
}

func (r *Rotation) forbidFields(typ string, f fieldSet) []ValidationError {
	var errs []ValidationError
	forbid := func(field string) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("%s must not be set on a %s rotation", field, typ),
			Code:    ErrFieldForbidden,
		})
	}
	if f.length && r.RotationLengthDays != 0 {
		forbid("rotation_length_days")
	}
	if f.start && !r.RotationStartDate.IsZero() {
		forbid("rotation_start_date")
	}
	if f.cron && r.ScheduleCron != "" {
		forbid("schedule_cron")
	}
	if f.windows && len(r.ShiftConfig) != 0 {
		forbid("shift_config")
	}
	return errs
}

func (r *Rotation) validateWeekly() []ValidationError {
	var errs []ValidationError
	if r.RotationStartDate.IsZero() {
		errs = append(errs, ValidationError{
			Field:   "rotation_start_date",
			Message: "rotation_start_date is required for weekly rotations",
			Code:    ErrMissingStartDate,
		})
	}
	if r.RotationLengthDays < 1 {
		errs = append(errs, ValidationError{
			Field:   "rotation_length_days",
			Message: fmt.Sprintf("rotation_length_days must be >= 1, got %d", r.RotationLengthDays),
			Code:    ErrInvalidLengthDays,
		})
	}
	errs = append(errs, r.forbidFields("weekly", fieldSet{cron: true, windows: true})...)
	return errs
}

func (r *Rotation) validateCron() []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(r.ScheduleCron) == "" {
		errs = append(errs, ValidationError{
			Field:   "schedule_cron",
			Message: "schedule_cron is required for cron rotations",
			Code:    ErrMissingCron,
		})
	} else if _, err := ParseCron(r.ScheduleCron); err != nil {
		errs = append(errs, ValidationError{
			Field:   "schedule_cron",
			Message: fmt.Sprintf("malformed cron expression %q: %v", r.ScheduleCron, err),
			Code:    ErrMalformedCron,
		})
	}
	if r.RotationStartDate.IsZero() {
		errs = append(errs, ValidationError{
			Field:   "rotation_start_date",
			Message: "rotation_start_date is required for cron rotations",
			Code:    ErrMissingStartDate,
		})
	}
	errs = append(errs, r.forbidFields("cron", fieldSet{length: true, windows: true})...)
	return errs
}

func (r *Rotation) validateFollowTheSun() []ValidationError {
	var errs []ValidationError
	if len(r.ShiftConfig) == 0 {
		errs = append(errs, ValidationError{
			Field:   "shift_config",
			Message: "shift_config requires at least one timezone window",
			Code:    ErrMissingShiftConfig,
		})
	}
	for i, w := range r.ShiftConfig {
		field := fmt.Sprintf("shift_config[%d]", i)
		if w.ShiftStartHour < 0 || w.ShiftStartHour > 23 ||
			w.ShiftEndHour < 1 || w.ShiftEndHour > 24 ||
			w.ShiftStartHour >= w.ShiftEndHour {
			errs = append(errs, ValidationError{
				Field: field,
				Message: fmt.Sprintf("invalid local-hour window [%d, %d)",
					w.ShiftStartHour, w.ShiftEndHour),
				Code: ErrInvalidWindowHours,
			})
		}
		if len(w.ParticipantIDs) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".participant_ids",
				Message: "window requires at least one participant id",
				Code:    ErrWindowNoParticipants,
			})
		}
		if _, err := time.LoadLocation(w.Timezone); err != nil {
			errs = append(errs, ValidationError{
				Field:   field + ".timezone",
				Message: fmt.Sprintf("unknown timezone %q", w.Timezone),
				Code:    ErrInvalidTimezone,
			})
		}
	}
	errs = append(errs, r.forbidFields("follow_the_sun", fieldSet{length: true, cron: true})...)
	return errs
}

// ValidateParticipants checks a rotation's participant slots.
//
// Active participants should carry unique, contiguous order_index
// values starting at 0 so modulo arithmetic maps positions to slots
// deterministically. Gaps are reported here but tolerated at
// resolution time, where sorted order alone decides the sequence.
func ValidateParticipants(ps []Participant) []ValidationError {
	var errs []ValidationError
	seen := make(map[int]bool)
	active := 0

	for i, p := range ps {
		field := fmt.Sprintf("participants[%d]", i)
		if strings.TrimSpace(p.IdentityID) == "" {
			errs = append(errs, ValidationError{
				Field: field + ".identity_id", Message: "identity_id is required",
				Code: ErrParticipantIdentityEmpty,
			})
		}
		if p.OrderIndex < 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".order_index",
				Message: fmt.Sprintf("order_index must be >= 0, got %d", p.OrderIndex),
				Code:    ErrNegativeOrderIndex,
			})
		}
		if p.StartDate != nil && p.EndDate != nil && !p.StartDate.Before(*p.EndDate) {
			errs = append(errs, ValidationError{
				Field: field, Message: "start_date must precede end_date",
				Code: ErrInvalidParticipantWindow,
			})
		}
		if !p.IsActive {
			continue
		}
		active++
		if seen[p.OrderIndex] {
			errs = append(errs, ValidationError{
				Field:   field + ".order_index",
				Message: fmt.Sprintf("duplicate order_index %d among active participants", p.OrderIndex),
				Code:    ErrDuplicateOrderIndex,
			})
		}
		seen[p.OrderIndex] = true
	}

	for i := 0; i < active; i++ {
		if !seen[i] {
			errs = append(errs, ValidationError{
				Field:   "participants",
				Message: fmt.Sprintf("active order_index values are not contiguous: missing %d", i),
				Code:    ErrOrderIndexGap,
			})
			break
		}
	}
	return errs
}

// Validate checks the override interval invariant: start < end.
func (o *Override) Validate() []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(o.OverrideIdentityID) == "" {
		errs = append(errs, ValidationError{
			Field: "override_identity_id", Message: "override_identity_id is required",
			Code: ErrOverrideIdentityEmpty,
		})
	}
	if !o.StartDatetime.Before(o.EndDatetime) {
		errs = append(errs, ValidationError{
			Field: "start_datetime", Message: "start_datetime must precede end_datetime",
			Code: ErrOverrideInterval,
		})
	}
	return errs
}

// ValidatePolicies checks a rotation's escalation chain: valid types,
// non-empty targets, unique levels >= 1, non-negative delays.
func ValidatePolicies(policies []EscalationPolicy) []ValidationError {
	var errs []ValidationError
	levels := make(map[int]bool)

	for i, p := range policies {
		field := fmt.Sprintf("escalation[%d]", i)
		switch p.EscalationType {
		case EscalateIdentity, EscalateGroup, EscalateRotationParticipant:
		default:
			errs = append(errs, ValidationError{
				Field:   field + ".escalation_type",
				Message: fmt.Sprintf("unknown escalation type %q", p.EscalationType),
				Code:    ErrInvalidEscalationType,
			})
		}
		if strings.TrimSpace(p.TargetID) == "" {
			errs = append(errs, ValidationError{
				Field: field + ".target_id", Message: "target_id is required",
				Code: ErrEscalationTargetEmpty,
			})
		}
		if p.Level < 1 {
			errs = append(errs, ValidationError{
				Field:   field + ".level",
				Message: fmt.Sprintf("level must be >= 1, got %d", p.Level),
				Code:    ErrInvalidLevel,
			})
		}
		if levels[p.Level] {
			errs = append(errs, ValidationError{
				Field:   field + ".level",
				Message: fmt.Sprintf("duplicate level %d", p.Level),
				Code:    ErrDuplicateLevel,
			})
		}
		levels[p.Level] = true
		if p.EscalationDelayMinutes < 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".escalation_delay_minutes",
				Message: "escalation_delay_minutes must be >= 0",
				Code:    ErrNegativeDelay,
			})
		}
	}
	return errs
}
