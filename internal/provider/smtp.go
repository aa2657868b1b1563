package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/kursadbilgin/massmail/internal/domain"
)

const dialTimeout = 60 * time.Second

var _ Deliverer = (*SMTP)(nil)

// SMTPConfig carries the transport settings for one run's session.
type SMTPConfig struct {
	Host     string
	Port     int
	UseSSL   bool
	Username string
	Password string
	Pause    time.Duration
}

// SMTP is the delivery engine. It owns the single authenticated session
// for a run: dialed once before the first send, reused for every message,
// closed on every exit path. After each send, success or failure, it
// applies the fixed configured pause before returning control.
type SMTP struct {
	client *mail.Client
	pause  time.Duration
	logger *zap.Logger
	dialed bool
}

func NewSMTP(cfg SMTPConfig, logger *zap.Logger) (*SMTP, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(cfg.Username),
		mail.WithPassword(cfg.Password),
		mail.WithTimeout(dialTimeout),
	}
	if cfg.UseSSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: smtp client: %v", domain.ErrConfiguration, err)
	}

	return &SMTP{client: client, pause: cfg.Pause, logger: logger}, nil
}

// Dial opens and authenticates the session. Any failure here means every
// remaining send would fail the same way, so it is classified fatal.
func (s *SMTP) Dial(ctx context.Context) error {
	if err := s.client.DialWithContext(ctx); err != nil {
		return &ProviderError{Message: "open smtp session", Auth: true, Cause: err}
	}
	s.dialed = true
	s.logger.Debug("smtp session established")
	return nil
}

// Send delivers one composed message over the open session and classifies
// the outcome. The configured pause runs regardless of the outcome.
func (s *SMTP) Send(ctx context.Context, msg *mail.Msg) (*Response, error) {
	err := s.client.Send(msg)
	s.pauseAfterSend(ctx)
	if err != nil {
		return nil, &ProviderError{Message: "send rejected", Transient: true, Cause: err}
	}
	return &Response{MessageID: msg.GetMessageID()}, nil
}

func (s *SMTP) pauseAfterSend(ctx context.Context) {
	if s.pause <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(s.pause):
	}
}

// Close quits the session. Safe on every exit path, including before Dial.
func (s *SMTP) Close() error {
	if !s.dialed {
		return nil
	}
	s.dialed = false
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close smtp session: %w", err)
	}
	return nil
}
