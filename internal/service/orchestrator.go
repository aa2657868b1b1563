// Package service drives the per-recipient send pipeline and the retry
// state machine. Recipients move pending → attempted(status, n); sent,
// exhausted and load-time-rejected are terminal. Every terminal outcome
// is written to the run ledger before the next recipient is touched.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/kursadbilgin/massmail/internal/attach"
	"github.com/kursadbilgin/massmail/internal/compose"
	"github.com/kursadbilgin/massmail/internal/contacts"
	"github.com/kursadbilgin/massmail/internal/domain"
	"github.com/kursadbilgin/massmail/internal/provider"
	"github.com/kursadbilgin/massmail/internal/render"
)

// Mode selects what happens at the end of the pipeline.
type Mode string

const (
	// ModeSend delivers over the SMTP session.
	ModeSend Mode = "send"
	// ModeDryRun runs the full pipeline but records a synthetic skipped
	// outcome instead of delivering. No sent row is ever written.
	ModeDryRun Mode = "dry-run"
	// ModePreview serializes the first N composed messages to .eml files
	// and writes no ledger rows at all.
	ModePreview Mode = "preview"
)

func (m Mode) IsValid() bool {
	switch m {
	case ModeSend, ModeDryRun, ModePreview:
		return true
	}
	return false
}

// Renderer produces per-recipient content and fills letter fragments.
type Renderer interface {
	Render(rcpt domain.Recipient, rc domain.RunContext) (*render.Content, error)
	FillLetter(tpl string, rcpt domain.Recipient, rc domain.RunContext) (string, error)
}

// Builder assembles the two-file attachment set for one recipient.
type Builder interface {
	Build(ctx context.Context, company string, fill func(string) (string, error)) ([]attach.File, error)
}

// Composer turns rendered content and attachments into a message.
type Composer interface {
	Compose(content *render.Content, files []attach.File, rcpt domain.Recipient) (*mail.Msg, error)
}

// Engine is the delivery session: dialed once per run, closed on every
// exit path.
type Engine interface {
	Dial(ctx context.Context) error
	Send(ctx context.Context, msg *mail.Msg) (*provider.Response, error)
	Close() error
}

// Ledger receives one row per terminal attempt outcome.
type Ledger interface {
	Append(a domain.Attempt) error
}

// Batch is one run's worth of work: the recipients to process, the
// attempt numbers their retry chains already carry, and the chains
// excluded at the cap.
type Batch struct {
	Recipients    []domain.Recipient
	PriorAttempts map[string]int
	Exhausted     []contacts.Exhausted
	RunContext    domain.RunContext
}

// Summary is the operator-facing tally for one run.
type Summary struct {
	Sent      int
	Failed    int
	Skipped   int
	Previewed int
}

type Options struct {
	Mode         Mode
	MaxRetries   int
	PreviewLimit int
	PreviewDir   string
}

type Orchestrator struct {
	renderer Renderer
	builder  Builder
	composer Composer
	engine   Engine
	ledger   Ledger
	opts     Options
	logger   *zap.Logger

	now func() time.Time
}

func NewOrchestrator(
	renderer Renderer,
	builder Builder,
	composer Composer,
	engine Engine,
	led Ledger,
	opts Options,
	logger *zap.Logger,
) (*Orchestrator, error) {
	if renderer == nil {
		return nil, fmt.Errorf("renderer is required")
	}
	if builder == nil {
		return nil, fmt.Errorf("attachment builder is required")
	}
	if composer == nil {
		return nil, fmt.Errorf("composer is required")
	}
	if !opts.Mode.IsValid() {
		return nil, fmt.Errorf("invalid mode %q", opts.Mode)
	}
	if opts.Mode == ModeSend && engine == nil {
		return nil, fmt.Errorf("delivery engine is required in send mode")
	}
	if opts.Mode != ModePreview && led == nil {
		return nil, fmt.Errorf("ledger is required in %s mode", opts.Mode)
	}
	if opts.Mode == ModePreview && opts.PreviewLimit < 1 {
		return nil, fmt.Errorf("preview mode requires a positive limit")
	}
	if opts.MaxRetries < 1 {
		return nil, fmt.Errorf("max retries must be >= 1")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		renderer: renderer,
		builder:  builder,
		composer: composer,
		engine:   engine,
		ledger:   led,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Run processes the batch strictly sequentially, in source order. It
// returns a non-nil error only for fatal conditions (session failure,
// lost ledger row, cancellation); per-recipient failures are tallied and
// the batch continues.
func (o *Orchestrator) Run(ctx context.Context, batch Batch) (Summary, error) {
	var summary Summary

	if o.opts.Mode == ModeSend {
		if err := o.engine.Dial(ctx); err != nil {
			return summary, err
		}
		defer func() {
			if err := o.engine.Close(); err != nil {
				o.logger.Warn("closing smtp session failed", zap.Error(err))
			}
		}()
	}

	if err := o.recordExhausted(batch, &summary); err != nil {
		return summary, err
	}

	for _, rcpt := range batch.Recipients {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		attemptNo := batch.PriorAttempts[rcpt.Key()] + 1
		if attemptNo > o.opts.MaxRetries {
			// Retry selection already filters these; the guard keeps the
			// cap invariant even with a hand-edited prior ledger.
			if err := o.record(rcpt, o.opts.MaxRetries, domain.StatusSkipped, "", "retry cap reached", &summary); err != nil {
				return summary, err
			}
			continue
		}

		done, err := o.processRecipient(ctx, batch.RunContext, rcpt, attemptNo, &summary)
		if err != nil {
			return summary, err
		}
		if done {
			break
		}
	}

	o.logger.Info("run finished",
		zap.String("mode", string(o.opts.Mode)),
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("previewed", summary.Previewed),
	)
	return summary, nil
}

// processRecipient runs one recipient through the pipeline. done=true
// means the run should stop early (preview limit reached).
func (o *Orchestrator) processRecipient(ctx context.Context, rc domain.RunContext, rcpt domain.Recipient, attemptNo int, summary *Summary) (bool, error) {
	logger := o.logger.With(zap.String("email", rcpt.Email), zap.Int("attempt", attemptNo))

	content, err := o.renderer.Render(rcpt, rc)
	if err != nil {
		logger.Warn("rendering failed", zap.Error(err))
		return false, o.record(rcpt, attemptNo, domain.StatusFailed, "", err.Error(), summary)
	}

	files, err := o.builder.Build(ctx, rcpt.Company, func(tpl string) (string, error) {
		return o.renderer.FillLetter(tpl, rcpt, rc)
	})
	if err != nil {
		logger.Warn("attachment build failed", zap.Error(err))
		return false, o.record(rcpt, attemptNo, domain.StatusFailed, "", err.Error(), summary)
	}

	msg, err := o.composer.Compose(content, files, rcpt)
	if err != nil {
		logger.Warn("composition failed", zap.Error(err))
		return false, o.record(rcpt, attemptNo, domain.StatusFailed, "", err.Error(), summary)
	}

	switch o.opts.Mode {
	case ModePreview:
		path, err := compose.WriteEML(msg, o.opts.PreviewDir, rc.RunID, rcpt.Email)
		if err != nil {
			return false, err
		}
		summary.Previewed++
		logger.Info("message previewed", zap.String("path", path))
		return summary.Previewed >= o.opts.PreviewLimit, nil

	case ModeDryRun:
		logger.Info("dry run, delivery skipped")
		return false, o.record(rcpt, attemptNo, domain.StatusSkipped, "", "dry run", summary)

	default:
		resp, err := o.engine.Send(ctx, msg)
		if err != nil {
			if provider.IsAuth(err) {
				// The session is broken; recording more failures would be
				// lying about recipients we never tried.
				if recErr := o.record(rcpt, attemptNo, domain.StatusFailed, "", err.Error(), summary); recErr != nil {
					return false, recErr
				}
				return false, err
			}
			logger.Warn("delivery failed", zap.Error(err))
			return false, o.record(rcpt, attemptNo, domain.StatusFailed, "", err.Error(), summary)
		}
		logger.Info("message sent", zap.String("messageId", resp.MessageID))
		return false, o.record(rcpt, attemptNo, domain.StatusSent, resp.MessageID, "", summary)
	}
}

// recordExhausted writes the terminal skipped rows for chains already at
// the cap, carrying their last known error forward. Preview writes
// nothing.
func (o *Orchestrator) recordExhausted(batch Batch, summary *Summary) error {
	for _, ex := range batch.Exhausted {
		o.logger.Warn("recipient exhausted, not retried",
			zap.String("email", ex.Recipient.Email),
			zap.Int("attempts", ex.Attempts),
			zap.String("lastError", ex.LastError),
		)
		if o.opts.Mode == ModePreview {
			continue
		}
		if err := o.record(ex.Recipient, ex.Attempts, domain.StatusSkipped, "", ex.LastError, summary); err != nil {
			return err
		}
	}
	return nil
}

// record appends one terminal outcome to the ledger and updates the
// tally. A failed append is fatal: losing a ledger row is a correctness
// bug, not an inconvenience.
func (o *Orchestrator) record(rcpt domain.Recipient, attemptNo int, status domain.Status, messageID, detail string, summary *Summary) error {
	a := domain.Attempt{
		Email:         rcpt.Email,
		Name:          rcpt.Name,
		Gender:        rcpt.Gender.String(),
		Company:       rcpt.Company,
		AttemptNumber: attemptNo,
		Timestamp:     domain.FormatTimestamp(o.now()),
		Status:        status,
		MessageID:     messageID,
		ErrorDetail:   detail,
	}
	// Preview runs carry no ledger; outcomes are tallied only.
	if o.ledger != nil {
		if err := o.ledger.Append(a); err != nil {
			return fmt.Errorf("ledger append for %s: %w", rcpt.Email, err)
		}
	}

	switch status {
	case domain.StatusSent:
		summary.Sent++
	case domain.StatusFailed:
		summary.Failed++
	case domain.StatusSkipped:
		summary.Skipped++
	}
	return nil
}
