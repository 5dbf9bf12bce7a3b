// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package collect

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/relabs-tech/pushup_tracker/internal/imu"
)

// FormatVersion is written into every export.
const FormatVersion = "1.0"

// Timestamp accepts RFC 3339 and zone-less ISO 8601 timestamps.
type Timestamp struct {
	time.Time
}

const isoLocal = "2006-01-02T15:04:05.999999999"

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{time.RFC3339Nano, isoLocal} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("collect: bad timestamp %q", s)
}

// SessionID is a string id; numeric ids from older exports are accepted.
type SessionID string

func (id *SessionID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = SessionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("collect: bad session id %s", b)
	}
	*id = SessionID(n.String())
	return nil
}

// Sample is one recorded frame.
type Sample struct {
	Timestamp  Timestamp `json:"timestamp"`
	ElapsedSec float64   `json:"elapsed_sec"`
	Ax         float32   `json:"ax"`
	Ay         float32   `json:"ay"`
	Az         float32   `json:"az"`
	Gx         float32   `json:"gx"`
	Gy         float32   `json:"gy"`
	Gz         float32   `json:"gz"`
}

// NewSample stamps a frame.
func NewSample(at time.Time, elapsed time.Duration, f imu.Frame) Sample {
	return Sample{
		Timestamp:  Timestamp{at},
		ElapsedSec: elapsed.Seconds(),
		Ax:         f[imu.ChanAx],
		Ay:         f[imu.ChanAy],
		Az:         f[imu.ChanAz],
		Gx:         f[imu.ChanGx],
		Gy:         f[imu.ChanGy],
		Gz:         f[imu.ChanGz],
	}
}

// Frame returns the sample in channel order.
func (s Sample) Frame() imu.Frame {
	return imu.Frame{s.Ax, s.Ay, s.Az, s.Gx, s.Gy, s.Gz}
}

// Session is one labelled recording.
type Session struct {
	SessionID    SessionID `json:"session_id"`
	Timestamp    Timestamp `json:"timestamp"`
	Participant  string    `json:"participant_id"`
	Placement    string    `json:"imu_placement"`
	Notes        string    `json:"notes,omitempty"`
	PhaseLabel   string    `json:"phase_label"`
	PostureLabel string    `json:"posture_label"`
	SampleCount  int       `json:"sample_count"`
	DurationSec  float64   `json:"duration_sec"`
	SampleRateHz float64   `json:"sample_rate_hz"`
	Data         []Sample  `json:"data"`
}

// Labels of a session.
type Labels struct {
	Participant string
	Placement   string
	Phase       string
	Posture     string
	Notes       string
}

// NewSession wraps recorded samples with a fresh id.
func NewSession(samples []Sample, labels Labels, sampleRate float64, at time.Time) Session {
	s := Session{
		SessionID:    SessionID(uuid.NewString()),
		Timestamp:    Timestamp{at},
		Participant:  labels.Participant,
		Placement:    labels.Placement,
		Notes:        labels.Notes,
		PhaseLabel:   labels.Phase,
		PostureLabel: labels.Posture,
		SampleCount:  len(samples),
		SampleRateHz: sampleRate,
		Data:         samples,
	}
	if n := len(samples); n > 0 {
		s.DurationSec = samples[n-1].ElapsedSec
	}
	return s
}

// Frames returns the session's samples in channel order.
func (s Session) Frames() []imu.Frame {
	out := make([]imu.Frame, len(s.Data))
	for i, d := range s.Data {
		out[i] = d.Frame()
	}
	return out
}

// Metadata describes an export file.
type Metadata struct {
	ExportTimestamp Timestamp `json:"export_timestamp"`
	TotalSessions   int       `json:"total_sessions"`
	SampleRateHz    float64   `json:"sample_rate_hz"`
	FormatVersion   string    `json:"format_version"`
}

// Export is the on-disk file.
type Export struct {
	Metadata Metadata  `json:"metadata"`
	Sessions []Session `json:"sessions"`
}

// ErrEmptyExport is returned when there is nothing to write.
var ErrEmptyExport = errors.New("collect: no sessions")

// NewExport bundles sessions.
func NewExport(sessions []Session, sampleRate float64, at time.Time) Export {
	return Export{
		Metadata: Metadata{
			ExportTimestamp: Timestamp{at},
			TotalSessions:   len(sessions),
			SampleRateHz:    sampleRate,
			FormatVersion:   FormatVersion,
		},
		Sessions: sessions,
	}
}

// FileName is the default name for an export made at t.
func FileName(t time.Time) string {
	return "pushup_data_" + t.Format("20060102_150405") + ".json"
}

// Write saves the export as indented JSON.
func (e Export) Write(path string) error {
	if len(e.Sessions) == 0 {
		return ErrEmptyExport
	}
	b, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Load reads an export file.
func Load(path string) (Export, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Export{}, err
	}
	var e Export
	if err := json.Unmarshal(b, &e); err != nil {
		return Export{}, fmt.Errorf("collect: parse %s: %w", path, err)
	}
	for _, s := range e.Sessions {
		if s.SampleCount != len(s.Data) {
			return Export{}, fmt.Errorf("collect: session %s: sample_count %d, have %d samples",
				s.SessionID, s.SampleCount, len(s.Data))
		}
	}
	return e, nil
}

// AllFrames concatenates the frames of every session, in file order.
func (e Export) AllFrames() []imu.Frame {
	var out []imu.Frame
	for _, s := range e.Sessions {
		out = append(out, s.Frames()...)
	}
	return out
}
