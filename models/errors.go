package models

import "fmt"

// Error codes used across the scrape pipeline. The runner maps these to
// recovery behavior: navigation errors are retried then skipped, extraction
// errors skip the item, persistence errors abort the session.
const (
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeNavigation   = "NAVIGATION_FAILED"
	ErrCodeExtraction   = "EXTRACTION_FAILED"
	ErrCodePersistence  = "PERSISTENCE_FAILED"
	ErrCodeControl      = "CONTROL_INVALID"
	ErrCodeBrowserCrash = "BROWSER_CRASH"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ExtractionError is returned when every selector strategy missed. It keeps
// diagnostic context about what was tried so operators can spot layout drift
// from the error log alone.
type ExtractionError struct {
	IdentityKey    string
	TriedSelectors []string
	CandidateCount int
	Err            error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("%s: extraction failed for %s: tried %d selector sets, %d candidate elements",
		ErrCodeExtraction, e.IdentityKey, len(e.TriedSelectors), e.CandidateCount)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
