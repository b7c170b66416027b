package models

import "time"

// SessionStatus is the lifecycle state of a scrape session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionPaused    SessionStatus = "paused"
	SessionStopped   SessionStatus = "stopped"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// ScrapeSession is one run of the pipeline. It is owned exclusively by the
// running process; external viewers read it through the session summary row
// written on terminal state.
type ScrapeSession struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at,omitempty"`
	Status    SessionStatus `json:"status"`

	Processed  int `json:"processed"`
	New        int `json:"new"`
	Updated    int `json:"updated"`
	Duplicates int `json:"duplicates"`
	Errors     int `json:"errors"`
}

// Terminal reports whether the session has reached a final state.
func (s SessionStatus) Terminal() bool {
	switch s {
	case SessionStopped, SessionCompleted, SessionFailed:
		return true
	}
	return false
}
