package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotorhq/rotor/internal/oncall"
)

// Timestamps are stored as RFC 3339 UTC text. Lexicographic order on
// the column equals chronological order, which the override-window and
// anchor queries rely on.
const timeLayout = time.RFC3339

func timeToDB(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func timeFromDB(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func nullTimeToDB(t *time.Time) any {
	if t == nil {
		return nil
	}
	return timeToDB(*t)
}

func nullTimeFromDB(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil
	}
	t, err := timeFromDB(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// shift_config and notification_channels travel as JSON text columns.

func windowsToDB(ws []oncall.TimezoneWindow) (string, error) {
	if len(ws) == 0 {
		return "", nil
	}
	b, err := json.Marshal(ws)
	if err != nil {
		return "", fmt.Errorf("marshal shift_config: %w", err)
	}
	return string(b), nil
}

func windowsFromDB(s sql.NullString) ([]oncall.TimezoneWindow, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var ws []oncall.TimezoneWindow
	if err := json.Unmarshal([]byte(s.String), &ws); err != nil {
		return nil, fmt.Errorf("unmarshal shift_config: %w", err)
	}
	return ws, nil
}

func channelsToDB(cs []string) (string, error) {
	if cs == nil {
		cs = []string{}
	}
	b, err := json.Marshal(cs)
	if err != nil {
		return "", fmt.Errorf("marshal notification_channels: %w", err)
	}
	return string(b), nil
}

func channelsFromDB(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	var cs []string
	if err := json.Unmarshal([]byte(s), &cs); err != nil {
		return nil, fmt.Errorf("unmarshal notification_channels: %w", err)
	}
	if len(cs) == 0 {
		return nil, nil
	}
	return cs, nil
}
