package checkpoint

import (
	"time"
)

// DefaultErrorCap bounds the recent-error list carried in a checkpoint.
const DefaultErrorCap = 50

// Counts are the cumulative totals for a session, carried in the checkpoint
// so that a crash-restart resumes with accurate numbers.
type Counts struct {
	Scraped    int `json:"scraped"`
	New        int `json:"new"`
	Updated    int `json:"updated"`
	Duplicates int `json:"duplicates"`
}

// ItemError is one captured per-item failure.
type ItemError struct {
	Page        int       `json:"page"`
	Item        int       `json:"item"`
	IdentityKey string    `json:"identity_key,omitempty"`
	Message     string    `json:"message"`
	At          time.Time `json:"at"`
}

// Checkpoint is the durable progress marker for one scrape session. It is
// overwritten, never appended, on every successfully persisted item. The
// on-disk copy always reflects a position at or before the furthest item
// whose persistence succeeded.
type Checkpoint struct {
	SessionID string `json:"session_id"`

	// CurrentPage and CurrentItem are the next position to process. Pages
	// and items are zero-based; items count within the current page.
	CurrentPage    int   `json:"current_page"`
	CurrentItem    int   `json:"current_item"`
	CompletedPages []int `json:"completed_pages"`

	LastIdentityKey string `json:"last_identity_key,omitempty"`

	Counts Counts `json:"counts"`

	// Errors holds the most recent failures, capped at ErrorCap. TotalErrors
	// counts every recorded failure regardless of truncation; DroppedErrors
	// counts entries evicted oldest-first.
	Errors        []ItemError `json:"errors"`
	ErrorCap      int         `json:"error_cap"`
	TotalErrors   int         `json:"total_errors"`
	DroppedErrors int         `json:"dropped_errors"`

	StartedAt     time.Time     `json:"started_at"`
	PausedAt      time.Time     `json:"paused_at,omitempty"`
	ResumedAt     time.Time     `json:"resumed_at,omitempty"`
	TotalPaused   time.Duration `json:"total_paused_ns"`
	LastSavedAt   time.Time     `json:"last_saved_at"`
	SessionStatus string        `json:"session_status,omitempty"`
}

// New returns a fresh start-of-session checkpoint.
func New(sessionID string, errorCap int) *Checkpoint {
	if errorCap <= 0 {
		errorCap = DefaultErrorCap
	}
	return &Checkpoint{
		SessionID: sessionID,
		ErrorCap:  errorCap,
		StartedAt: time.Now().UTC(),
	}
}

// RecordError appends a failure to the bounded error list. When the list is
// at capacity the oldest entry is dropped and the drop counter advances; the
// total count stays exact either way.
func (c *Checkpoint) RecordError(page, item int, identityKey, message string) {
	cap := c.ErrorCap
	if cap <= 0 {
		cap = DefaultErrorCap
		c.ErrorCap = cap
	}
	c.TotalErrors++
	c.Errors = append(c.Errors, ItemError{
		Page:        page,
		Item:        item,
		IdentityKey: identityKey,
		Message:     message,
		At:          time.Now().UTC(),
	})
	if over := len(c.Errors) - cap; over > 0 {
		c.Errors = append(c.Errors[:0], c.Errors[over:]...)
		c.DroppedErrors += over
	}
}

// AdvanceItem records that the item at the current position was persisted
// and moves the cursor to the next item on the same page.
func (c *Checkpoint) AdvanceItem(identityKey string) {
	c.LastIdentityKey = identityKey
	c.CurrentItem++
	c.Counts.Scraped++
}

// SkipItem moves past an item that failed extraction without counting it as
// scraped. The failure itself goes through RecordError.
func (c *Checkpoint) SkipItem() {
	c.CurrentItem++
}

// CompletePage marks the current page done and positions the cursor at the
// first item of the next page.
func (c *Checkpoint) CompletePage() {
	c.CompletedPages = append(c.CompletedPages, c.CurrentPage)
	c.CurrentPage++
	c.CurrentItem = 0
}

// MarkPaused stamps the pause point. A second call while already paused is
// a no-op so repeated pause commands cannot distort accounting.
func (c *Checkpoint) MarkPaused(now time.Time) {
	if !c.PausedAt.IsZero() {
		return
	}
	c.PausedAt = now.UTC()
}

// MarkResumed closes the current pause window and accumulates its duration.
func (c *Checkpoint) MarkResumed(now time.Time) {
	if c.PausedAt.IsZero() {
		return
	}
	now = now.UTC()
	c.TotalPaused += now.Sub(c.PausedAt)
	c.ResumedAt = now
	c.PausedAt = time.Time{}
}

// ActiveRuntime is wall-clock runtime minus cumulative pause time, up to now.
func (c *Checkpoint) ActiveRuntime(now time.Time) time.Duration {
	total := now.UTC().Sub(c.StartedAt)
	paused := c.TotalPaused
	if !c.PausedAt.IsZero() {
		paused += now.UTC().Sub(c.PausedAt)
	}
	if paused > total {
		return 0
	}
	return total - paused
}
