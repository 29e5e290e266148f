// Package config loads rotation definition documents.
//
// Definitions are YAML files validated in two stages, shape first,
// semantics second:
//  1. The document is unified with an embedded CUE schema. Unknown
//     fields, wrong types, and out-of-range hours fail here with
//     positions from the CUE evaluator.
//  2. The decoded document is converted to the domain model and run
//     through oncall's validators for cross-field rules (type-specific
//     field pairing, interval ordering, order_index contiguity).
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/rotorhq/rotor/internal/oncall"
)

//go:embed schema.cue
var schemaCUE string

// Loader error codes (E001-E009). Codes from oncall's validators pass
// through unchanged.
const (
	ErrCodeNotFound     = "E001" // definition file not found
	ErrCodeSchemaFailed = "E002" // document does not satisfy the CUE schema
	ErrCodeDecodeFailed = "E003" // YAML does not decode into the document shape
	ErrCodeBadTimestamp = "E004" // date or datetime field does not parse
)

// LoadError is a definition-loading failure with a stable code.
type LoadError struct {
	Code    string
	File    string
	Message string
}

func (e *LoadError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Document is the decoded form of one definition file.
type Document struct {
	Rotations []RotationDef       `yaml:"rotations"`
	Groups    map[string][]string `yaml:"groups,omitempty"`
}

// RotationDef declares one rotation with its nested participants,
// overrides, and escalation chain.
type RotationDef struct {
	ID    string `yaml:"id"`
	Scope struct {
		Kind string `yaml:"kind"`
		ID   string `yaml:"id"`
	} `yaml:"scope"`
	ScheduleType       string                  `yaml:"schedule_type"`
	RotationLengthDays int                     `yaml:"rotation_length_days,omitempty"`
	RotationStartDate  string                  `yaml:"rotation_start_date,omitempty"`
	ScheduleCron       string                  `yaml:"schedule_cron,omitempty"`
	Windows            []oncall.TimezoneWindow `yaml:"windows,omitempty"`
	Active             *bool                   `yaml:"active,omitempty"`
	Participants       []ParticipantDef        `yaml:"participants,omitempty"`
	Overrides          []OverrideDef           `yaml:"overrides,omitempty"`
	Escalation         []EscalationDef         `yaml:"escalation,omitempty"`
}

// ParticipantDef declares one participant slot.
type ParticipantDef struct {
	Identity string `yaml:"identity"`
	Order    int    `yaml:"order"`
	Active   *bool  `yaml:"active,omitempty"`
	Start    string `yaml:"start,omitempty"`
	End      string `yaml:"end,omitempty"`
}

// OverrideDef declares one manual override.
type OverrideDef struct {
	ID         string `yaml:"id,omitempty"`
	Original   string `yaml:"original,omitempty"`
	Substitute string `yaml:"substitute"`
	Start      string `yaml:"start"`
	End        string `yaml:"end"`
	Reason     string `yaml:"reason,omitempty"`
}

// EscalationDef declares one escalation step.
type EscalationDef struct {
	Level        int      `yaml:"level"`
	Type         string   `yaml:"type"`
	Target       string   `yaml:"target"`
	DelayMinutes int      `yaml:"delay_minutes,omitempty"`
	Channels     []string `yaml:"channels,omitempty"`
}

// LoadFile reads, schema-checks, and decodes one definition file.
// All errors found are returned; the document is nil if the file could
// not be read or decoded at all.
func LoadFile(path string) (*Document, []error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, File: path, Message: err.Error()}}
	}
	return Load(path, data)
}

// Load schema-checks and decodes a definition document. The filename
// is used for error reporting only.
func Load(filename string, data []byte) (*Document, []error) {
	var errs []error

	// Stage 1: shape validation against the CUE schema.
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeSchemaFailed, Message: fmt.Sprintf("compiling embedded schema: %v", err)}}
	}

	file, err := cueyaml.Extract(filename, data)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeDecodeFailed, File: filename, Message: err.Error()}}
	}
	doc := ctx.BuildFile(file)
	if err := doc.Err(); err != nil {
		return nil, []error{&LoadError{Code: ErrCodeDecodeFailed, File: filename, Message: err.Error()}}
	}

	unified := schema.Unify(doc)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		errs = append(errs, &LoadError{Code: ErrCodeSchemaFailed, File: filename, Message: err.Error()})
	}

	// Stage 2: decode and run domain validation.
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		errs = append(errs, &LoadError{Code: ErrCodeDecodeFailed, File: filename, Message: err.Error()})
		return nil, errs
	}

	for _, rd := range d.Rotations {
		if convErrs := validateRotationDef(filename, rd); len(convErrs) > 0 {
			errs = append(errs, convErrs...)
		}
	}
	if len(errs) > 0 {
		return &d, errs
	}
	return &d, nil
}

// validateRotationDef converts one definition to the model and runs
// the domain validators, tagging errors with the source file.
func validateRotationDef(filename string, rd RotationDef) []error {
	var errs []error

	// Validation never persists the converted rows, so generated
	// override ids are throwaway.
	rot, ps, ovs, policies, convErrs := rd.Model(oncall.UUIDv7Generator{})
	errs = append(errs, convErrs...)
	if len(errs) > 0 {
		return errs
	}

	for _, ve := range rot.Validate() {
		errs = append(errs, &LoadError{Code: ve.Code, File: filename, Message: rd.ID + ": " + ve.Field + ": " + ve.Message})
	}
	for _, ve := range oncall.ValidateParticipants(ps) {
		errs = append(errs, &LoadError{Code: ve.Code, File: filename, Message: rd.ID + ": " + ve.Field + ": " + ve.Message})
	}
	for i := range ovs {
		for _, ve := range ovs[i].Validate() {
			errs = append(errs, &LoadError{Code: ve.Code, File: filename, Message: rd.ID + ": " + ve.Field + ": " + ve.Message})
		}
	}
	for _, ve := range oncall.ValidatePolicies(policies) {
		errs = append(errs, &LoadError{Code: ve.Code, File: filename, Message: rd.ID + ": " + ve.Field + ": " + ve.Message})
	}
	return errs
}

// Model converts the definition to domain rows. Participant and policy
// ids are derived deterministically from the rotation id so re-imports
// update in place; override ids come from the generator unless pinned
// in the document.
func (rd RotationDef) Model(ids oncall.IDGenerator) (oncall.Rotation, []oncall.Participant, []oncall.Override, []oncall.EscalationPolicy, []error) {
	var errs []error

	rot := oncall.Rotation{
		ID: rd.ID,
		Scope: oncall.Scope{
			Kind: oncall.ScopeKind(rd.Scope.Kind),
			ID:   rd.Scope.ID,
		},
		ScheduleType:       oncall.ScheduleType(rd.ScheduleType),
		RotationLengthDays: rd.RotationLengthDays,
		ScheduleCron:       rd.ScheduleCron,
		ShiftConfig:        rd.Windows,
		IsActive:           rd.Active == nil || *rd.Active,
	}
	if rd.RotationStartDate != "" {
		t, err := parseTimestamp(rd.RotationStartDate)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeBadTimestamp, Message: rd.ID + ": rotation_start_date: " + err.Error()})
		} else {
			rot.RotationStartDate = t
		}
	}

	var ps []oncall.Participant
	for _, pd := range rd.Participants {
		p := oncall.Participant{
			ID:         rd.ID + "/" + pd.Identity,
			RotationID: rd.ID,
			IdentityID: pd.Identity,
			OrderIndex: pd.Order,
			IsActive:   pd.Active == nil || *pd.Active,
		}
		if pd.Start != "" {
			t, err := parseTimestamp(pd.Start)
			if err != nil {
				errs = append(errs, &LoadError{Code: ErrCodeBadTimestamp, Message: rd.ID + ": participant start: " + err.Error()})
			} else {
				p.StartDate = &t
			}
		}
		if pd.End != "" {
			t, err := parseTimestamp(pd.End)
			if err != nil {
				errs = append(errs, &LoadError{Code: ErrCodeBadTimestamp, Message: rd.ID + ": participant end: " + err.Error()})
			} else {
				p.EndDate = &t
			}
		}
		ps = append(ps, p)
	}

	var overrides []oncall.Override
	for _, od := range rd.Overrides {
		o := oncall.Override{
			ID:                 od.ID,
			RotationID:         rd.ID,
			OriginalIdentityID: od.Original,
			OverrideIdentityID: od.Substitute,
			Reason:             od.Reason,
		}
		if o.ID == "" {
			o.ID = ids.NewID()
		}
		start, err := parseTimestamp(od.Start)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeBadTimestamp, Message: rd.ID + ": override start: " + err.Error()})
		}
		end, err := parseTimestamp(od.End)
		if err != nil {
			errs = append(errs, &LoadError{Code: ErrCodeBadTimestamp, Message: rd.ID + ": override end: " + err.Error()})
		}
		o.StartDatetime, o.EndDatetime = start, end
		overrides = append(overrides, o)
	}

	var policies []oncall.EscalationPolicy
	for _, ed := range rd.Escalation {
		policies = append(policies, oncall.EscalationPolicy{
			ID:                     fmt.Sprintf("%s/level-%d", rd.ID, ed.Level),
			RotationID:             rd.ID,
			Level:                  ed.Level,
			EscalationType:         oncall.EscalationType(ed.Type),
			TargetID:               ed.Target,
			EscalationDelayMinutes: ed.DelayMinutes,
			NotificationChannels:   ed.Channels,
		})
	}

	return rot, ps, overrides, policies, errs
}

// parseTimestamp accepts a calendar date (2006-01-02, midnight UTC) or
// an RFC 3339 datetime.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("want YYYY-MM-DD or RFC 3339, got %q", s)
	}
	return t.UTC(), nil
}
