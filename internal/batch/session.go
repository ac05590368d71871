// Package batch runs spot and roughness measurements over many scan files
// and frames, isolating failures to the unit that caused them.
package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"spm-spots/internal/config"
	"spm-spots/internal/spot"
)

// SessionFile is the file name a session is saved under.
const SessionFile = "session.json"

// Session accumulates the results of one or more batch runs. It is owned by
// the caller and passed to each Runner explicitly.
type Session struct {
	Version  int       `json:"version"`
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	Config *config.Config `json:"config,omitempty"`

	Spots     []SpotUnit      `json:"spots,omitempty"`
	Roughness []RoughnessUnit `json:"roughness,omitempty"`
	Failures  []Failure       `json:"failures,omitempty"`
}

// Unit identifies one processed file or frame.
type Unit struct {
	Source string `json:"source"`
	// Frame is the frame label for movie scans, empty otherwise.
	Frame string `json:"frame,omitempty"`
}

func (u Unit) String() string {
	if u.Frame == "" {
		return u.Source
	}
	return u.Source + " " + u.Frame
}

// SpotUnit holds the spots measured in one unit.
type SpotUnit struct {
	Unit
	NmPerPixelX    float64       `json:"nm_per_pixel_x"`
	NmPerPixelY    float64       `json:"nm_per_pixel_y"`
	AverageAreaNm2 float64       `json:"average_area_nm2"`
	Records        []spot.Record `json:"records"`
}

// RoughnessUnit holds the l0 value of one unit.
type RoughnessUnit struct {
	Unit
	L0 float64 `json:"l0"`
}

// Failure records why a unit was skipped.
type Failure struct {
	Unit
	Error string `json:"error"`
}

// NewSession creates an empty session with a fresh ID.
func NewSession(cfg *config.Config) *Session {
	now := time.Now()
	return &Session{
		Version:  1,
		ID:       uuid.NewString(),
		Created:  now,
		Modified: now,
		Config:   cfg,
	}
}

// LoadSession reads a session file.
func LoadSession(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse session %s: %w", path, err)
	}
	if _, err := uuid.Parse(s.ID); err != nil {
		return nil, fmt.Errorf("session %s has invalid id %q: %w", path, s.ID, err)
	}
	return &s, nil
}

// Save writes the session as indented JSON.
func (s *Session) Save(path string) error {
	s.Modified = time.Now()
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Records returns every spot record of the session in processing order.
func (s *Session) Records() []spot.Record {
	var out []spot.Record
	for _, u := range s.Spots {
		out = append(out, u.Records...)
	}
	return out
}
