// Package runner drives the scrape loop: page by page, item by item, with
// checkpoint advancement after every persisted item and control polling at
// the defined yield points. The loop is single-threaded; the only
// suspension points are I/O waits and the pause loop.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/propscout/propscout/checkpoint"
	"github.com/propscout/propscout/control"
	"github.com/propscout/propscout/models"
	"github.com/propscout/propscout/navigator"
	"github.com/propscout/propscout/syncer"
)

// Listing is one opened listing page.
type Listing interface {
	Items() ([]navigator.ItemRef, error)
	Close()
}

// PageOpener opens listing pages by index.
type PageOpener interface {
	OpenListing(ctx context.Context, pageIndex int) (Listing, error)
}

// ItemExtractor extracts one item's record from its reference.
type ItemExtractor interface {
	Extract(ctx context.Context, ref navigator.ItemRef) (*models.Property, error)
}

// Reconciler classifies and persists one extracted record.
type Reconciler interface {
	Reconcile(ctx context.Context, p *models.Property) (syncer.Outcome, error)
}

// SessionRecorder persists session summaries to the backing store.
type SessionRecorder interface {
	RecordSessionSummary(ctx context.Context, s *models.ScrapeSession) error
}

// Options tune the loop.
type Options struct {
	// MaxPages caps the listing pages visited; 0 means run until an empty
	// page.
	MaxPages int

	// PollInterval is the sleep between control polls while paused.
	PollInterval time.Duration

	// ErrorCap bounds the checkpoint's recent-error list.
	ErrorCap int

	// MaxPageFailures fails the session after this many consecutive
	// listing-page failures. Without it an uncapped run against a dead
	// site would skip pages forever.
	MaxPageFailures int
}

// Runner owns one scrape session end to end.
type Runner struct {
	nav      PageOpener
	ex       ItemExtractor
	rec      Reconciler
	sessions SessionRecorder
	cpStore  *checkpoint.Store
	ctrl     *control.Channel
	metrics  *Metrics
	opts     Options
}

// New wires a Runner. metrics may be nil.
func New(nav PageOpener, ex ItemExtractor, rec Reconciler, sessions SessionRecorder,
	cpStore *checkpoint.Store, ctrl *control.Channel, metrics *Metrics, opts Options) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.MaxPageFailures <= 0 {
		opts.MaxPageFailures = 5
	}
	return &Runner{
		nav:      nav,
		ex:       ex,
		rec:      rec,
		sessions: sessions,
		cpStore:  cpStore,
		ctrl:     ctrl,
		metrics:  metrics,
		opts:     opts,
	}
}

// Run executes the loop until completion, an operator stop, or a fatal
// persistence failure. The returned session carries the terminal status;
// the error is non-nil only for the failure case.
func (r *Runner) Run(ctx context.Context) (*models.ScrapeSession, error) {
	cp, err := r.cpStore.Load()
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodePersistence,
			"failed to load checkpoint", err)
	}

	// Only a completed run starts over from page zero. Failed and stopped
	// checkpoints keep their cursor so the next run picks up at the exact
	// item that was not persisted.
	if cp == nil || models.SessionStatus(cp.SessionStatus) == models.SessionCompleted {
		if cp != nil {
			// Drop the finished run's file so status never shows a stale
			// cursor while the new session starts up.
			if err := r.cpStore.Clear(); err != nil {
				slog.Warn("failed to clear finished checkpoint", "error", err)
			}
		}
		cp = checkpoint.New(uuid.NewString(), r.opts.ErrorCap)
		slog.Info("starting new scrape session", "session", cp.SessionID)
	} else {
		// A checkpoint saved mid-pause keeps accumulating pause time across
		// the restart.
		cp.MarkResumed(time.Now())
		slog.Info("resuming scrape session",
			"session", cp.SessionID,
			"page", cp.CurrentPage,
			"item", cp.CurrentItem,
			"scraped", cp.Counts.Scraped,
		)
	}
	cp.SessionStatus = string(models.SessionRunning)

	sess := &models.ScrapeSession{
		ID:        cp.SessionID,
		StartedAt: cp.StartedAt,
		Status:    models.SessionRunning,
	}
	r.syncSession(sess, cp)
	if err := r.sessions.RecordSessionSummary(ctx, sess); err != nil {
		return sess, models.NewScrapeError(models.ErrCodePersistence,
			"backing store unreachable", err)
	}

	status, runErr := r.loop(ctx, cp, sess)

	sess.Status = status
	sess.EndedAt = time.Now().UTC()
	r.syncSession(sess, cp)
	if err := r.sessions.RecordSessionSummary(ctx, sess); err != nil {
		slog.Error("failed to record session summary", "error", err)
	}

	cp.SessionStatus = string(status)
	if err := r.cpStore.Save(cp); err != nil {
		slog.Error("final checkpoint flush failed", "error", err)
	}

	slog.Info("scrape session ended",
		"session", sess.ID,
		"status", sess.Status,
		"processed", sess.Processed,
		"new", sess.New,
		"updated", sess.Updated,
		"duplicates", sess.Duplicates,
		"errors", sess.Errors,
	)
	return sess, runErr
}

func (r *Runner) loop(ctx context.Context, cp *checkpoint.Checkpoint, sess *models.ScrapeSession) (models.SessionStatus, error) {
	failedPages := 0
	for page := cp.CurrentPage; r.opts.MaxPages == 0 || page < r.opts.MaxPages; page = cp.CurrentPage {
		if status, err := r.checkControl(ctx, cp); status != "" || err != nil {
			return status, err
		}

		listing, err := r.nav.OpenListing(ctx, page)
		if err != nil {
			if ctx.Err() != nil {
				return models.SessionStopped, nil
			}
			if st, ferr := r.skipPage(cp, sess, page, &failedPages, err); st != "" || ferr != nil {
				return st, ferr
			}
			continue
		}

		items, err := listing.Items()
		if err != nil {
			listing.Close()
			if st, ferr := r.skipPage(cp, sess, page, &failedPages, err); st != "" || ferr != nil {
				return st, ferr
			}
			continue
		}
		failedPages = 0
		if len(items) == 0 {
			listing.Close()
			slog.Info("empty listing page, scrape complete", "page", page)
			return models.SessionCompleted, nil
		}
		r.metrics.IncPage()
		slog.Info("processing listing page", "page", page, "items", len(items), "startItem", cp.CurrentItem)

		status, err := r.processItems(ctx, cp, sess, listing, items)
		listing.Close()
		if status != "" || err != nil {
			return status, err
		}

		cp.CompletePage()
		if err := r.saveCheckpoint(cp); err != nil {
			return models.SessionFailed, err
		}
	}
	return models.SessionCompleted, nil
}

// processItems runs the per-item pipeline from the checkpoint cursor to the
// end of the page. It returns a non-empty status when the loop should end.
func (r *Runner) processItems(ctx context.Context, cp *checkpoint.Checkpoint,
	sess *models.ScrapeSession, listing Listing, items []navigator.ItemRef) (models.SessionStatus, error) {

	for idx := cp.CurrentItem; idx < len(items); idx = cp.CurrentItem {
		ref := items[idx]

		start := time.Now()
		prop, err := r.ex.Extract(ctx, ref)
		r.metrics.ObserveExtract(time.Since(start))

		if err != nil {
			if ctx.Err() != nil {
				return models.SessionStopped, nil
			}
			slog.Warn("item extraction failed, skipping",
				"page", cp.CurrentPage, "item", idx, "key", ref.DetailURL, "error", err)
			cp.RecordError(cp.CurrentPage, idx, ref.DetailURL, err.Error())
			cp.SkipItem()
			r.syncSession(sess, cp)
			r.metrics.IncError(errorLabel(err))
			if err := r.saveCheckpoint(cp); err != nil {
				return models.SessionFailed, err
			}
		} else {
			outcome, rerr := r.rec.Reconcile(ctx, prop)
			if rerr != nil {
				// Persistence failures abort immediately. The checkpoint is
				// NOT advanced past this item: the next run retries it.
				slog.Error("persistence failure, aborting session",
					"key", ref.DetailURL, "page", cp.CurrentPage, "item", idx, "error", rerr)
				return models.SessionFailed, rerr
			}

			switch outcome {
			case syncer.OutcomeNew:
				cp.Counts.New++
			case syncer.OutcomeUpdated:
				cp.Counts.Updated++
			case syncer.OutcomeUnchanged:
				cp.Counts.Duplicates++
			}
			cp.AdvanceItem(ref.DetailURL)
			r.syncSession(sess, cp)
			r.metrics.IncItem()
			r.metrics.IncReconcile(string(outcome))

			// Save must succeed before moving on: this ordering is what makes
			// a crash recoverable at the exact item.
			if err := r.saveCheckpoint(cp); err != nil {
				return models.SessionFailed, err
			}
		}

		if status, err := r.checkControl(ctx, cp); status != "" || err != nil {
			return status, err
		}
	}
	return "", nil
}

// skipPage records a page-level navigation failure and advances to the next
// page, failing the session once MaxPageFailures pages in a row have been
// skipped. It returns a non-empty status when the loop should end.
func (r *Runner) skipPage(cp *checkpoint.Checkpoint, sess *models.ScrapeSession, page int, failed *int, cause error) (models.SessionStatus, error) {
	slog.Error("listing page failed after retries, skipping",
		"page", page, "error", cause)
	cp.RecordError(page, -1, "", cause.Error())
	cp.CurrentPage++
	cp.CurrentItem = 0
	r.syncSession(sess, cp)
	r.metrics.IncError(errorLabel(cause))
	if err := r.saveCheckpoint(cp); err != nil {
		return models.SessionFailed, err
	}

	*failed++
	if *failed >= r.opts.MaxPageFailures {
		slog.Error("consecutive listing pages failed, aborting session",
			"failed", *failed)
		return models.SessionFailed, models.NewScrapeError(
			models.ErrCodeNavigation, "listing source unreachable", cause)
	}
	return "", nil
}

// checkControl is the poll point between steps. It returns a non-empty
// status when the loop should end, and blocks while paused.
func (r *Runner) checkControl(ctx context.Context, cp *checkpoint.Checkpoint) (models.SessionStatus, error) {
	cmd := r.ctrl.Poll()
	if cmd == nil {
		select {
		case <-ctx.Done():
			return models.SessionStopped, nil
		default:
			return "", nil
		}
	}

	switch cmd.State {
	case control.StateStop:
		slog.Info("stop command received", "issuedAt", cmd.Timestamp)
		return models.SessionStopped, nil
	case control.StatePause:
		return r.waitWhilePaused(ctx, cp)
	case control.StateResume:
		// Not paused: nothing to resume.
		return "", nil
	}
	return "", nil
}

// waitWhilePaused blocks in a bounded sleep-and-repoll cycle until a resume
// or stop command arrives. Pause time is accounted into the checkpoint.
func (r *Runner) waitWhilePaused(ctx context.Context, cp *checkpoint.Checkpoint) (models.SessionStatus, error) {
	cp.MarkPaused(time.Now())
	cp.SessionStatus = string(models.SessionPaused)
	if err := r.saveCheckpoint(cp); err != nil {
		return models.SessionFailed, err
	}
	slog.Info("paused, waiting for resume or stop", "session", cp.SessionID)

	for {
		select {
		case <-ctx.Done():
			cp.MarkResumed(time.Now())
			return models.SessionStopped, nil
		case <-time.After(r.opts.PollInterval):
		}

		cmd := r.ctrl.Poll()
		if cmd == nil {
			continue
		}
		switch cmd.State {
		case control.StateResume:
			cp.MarkResumed(time.Now())
			cp.SessionStatus = string(models.SessionRunning)
			if err := r.saveCheckpoint(cp); err != nil {
				return models.SessionFailed, err
			}
			slog.Info("resumed", "session", cp.SessionID, "totalPaused", cp.TotalPaused)
			return "", nil
		case control.StateStop:
			cp.MarkResumed(time.Now())
			slog.Info("stop command received while paused")
			return models.SessionStopped, nil
		case control.StatePause:
			// Already paused; duplicate command ignored.
		}
	}
}

func (r *Runner) saveCheckpoint(cp *checkpoint.Checkpoint) error {
	if err := r.cpStore.Save(cp); err != nil {
		return models.NewScrapeError(models.ErrCodePersistence,
			"failed to save checkpoint", err)
	}
	return nil
}

// syncSession mirrors checkpoint counts into the session record.
func (r *Runner) syncSession(sess *models.ScrapeSession, cp *checkpoint.Checkpoint) {
	sess.Processed = cp.Counts.Scraped
	sess.New = cp.Counts.New
	sess.Updated = cp.Counts.Updated
	sess.Duplicates = cp.Counts.Duplicates
	sess.Errors = cp.TotalErrors
}

// errorLabel maps an error onto a metrics label.
func errorLabel(err error) string {
	var xerr *models.ExtractionError
	if errors.As(err, &xerr) {
		return "extraction"
	}
	var serr *models.ScrapeError
	if errors.As(err, &serr) {
		switch serr.Code {
		case models.ErrCodeNavigation:
			return "navigation"
		case models.ErrCodeTimeout:
			return "timeout"
		case models.ErrCodeExtraction:
			return "extraction"
		case models.ErrCodePersistence:
			return "persistence"
		case models.ErrCodeBrowserCrash:
			return "browser"
		}
	}
	return "other"
}

// ExitCode maps a terminal session status to the process exit code. Stop is
// clean but distinct from completion so wrappers can tell them apart.
func ExitCode(status models.SessionStatus) int {
	switch status {
	case models.SessionCompleted:
		return 0
	case models.SessionStopped:
		return 3
	case models.SessionFailed:
		return 2
	}
	return 1
}
