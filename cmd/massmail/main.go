package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kursadbilgin/massmail/internal/attach"
	"github.com/kursadbilgin/massmail/internal/compose"
	"github.com/kursadbilgin/massmail/internal/config"
	"github.com/kursadbilgin/massmail/internal/contacts"
	"github.com/kursadbilgin/massmail/internal/domain"
	"github.com/kursadbilgin/massmail/internal/ledger"
	"github.com/kursadbilgin/massmail/internal/observability"
	"github.com/kursadbilgin/massmail/internal/provider"
	"github.com/kursadbilgin/massmail/internal/render"
	"github.com/kursadbilgin/massmail/internal/service"
)

type cliArgs struct {
	contacts     string
	docx         string
	xlsx         string
	retryFromLog string
	dryRun       bool
	preview      int
	previewDir   string
	limit        int
	logDir       string
	statusCSV    string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "massmail: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var args cliArgs
	flag.StringVar(&args.contacts, "contacts", "", "path to the contacts CSV")
	flag.StringVar(&args.docx, "docx", "", "path to the cover letter template (.docx)")
	flag.StringVar(&args.xlsx, "xlsx", "", "path to the specifications spreadsheet")
	flag.StringVar(&args.retryFromLog, "retry-from-log", "", "path to a previous send_log_*.csv; retry its failures")
	flag.BoolVar(&args.dryRun, "dry-run", false, "run the full pipeline but do not deliver")
	flag.IntVar(&args.preview, "preview", 0, "write the first N composed messages as .eml files instead of sending")
	flag.StringVar(&args.previewDir, "preview-dir", "preview", "directory for -preview output")
	flag.IntVar(&args.limit, "limit", 0, "process only the first N recipients")
	flag.StringVar(&args.logDir, "log-dir", ".", "directory for the run ledger")
	flag.StringVar(&args.statusCSV, "status-csv", "", "write a derived per-recipient status CSV to this path")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}
	defer logger.Sync() //nolint:errcheck

	start := time.Now()
	runID := ledger.RunID(start)
	correlationID := uuid.NewString()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithRunID(ctx, runID)
	logger = observability.WithContextLogger(logger, ctx).With(zap.String("correlationId", correlationID))

	mode := service.ModeSend
	switch {
	case args.preview > 0:
		mode = service.ModePreview
	case args.dryRun:
		mode = service.ModeDryRun
	}

	docxPath, err := resolvePath(args.docx, "cover letter template")
	if err != nil {
		return err
	}
	xlsxPath, err := resolvePath(args.xlsx, "spreadsheet")
	if err != nil {
		return err
	}
	bodyPath, err := resolvePath(cfg.BodyTemplate, "body HTML template")
	if err != nil {
		return err
	}
	bodyTpl, err := os.ReadFile(bodyPath)
	if err != nil {
		return fmt.Errorf("%w: reading body template: %v", domain.ErrConfiguration, err)
	}

	logoPath := ""
	if cfg.LogoPath != "" {
		if logoPath, err = resolvePath(cfg.LogoPath, "logo"); err != nil {
			return err
		}
	} else if strings.Contains(string(bodyTpl), "{logo_cid}") {
		return fmt.Errorf("%w: body template references {logo_cid} but LOGO_PATH is not set", domain.ErrConfiguration)
	}

	composer, err := compose.NewComposer(cfg.FromName, cfg.SMTPUser, cfg.ReplyTo, cfg.RequestReceipt, logoPath)
	if err != nil {
		return err
	}

	var converter attach.Converter
	if cfg.AttachFormat == config.AttachFormatPDF {
		if converter, err = attach.NewLibreOffice(); err != nil {
			return err
		}
	}
	builder, err := attach.NewBuilder(docxPath, xlsxPath, cfg.AttachFormat == config.AttachFormatPDF, converter)
	if err != nil {
		return err
	}

	batch, err := loadBatch(args, cfg, logger)
	if err != nil {
		return err
	}
	batch.RunContext = domain.NewRunContext(runID, correlationID, start, composer.LogoCID())

	renderer := &render.Renderer{
		SubjectTemplate: cfg.SubjectTemplate,
		BodyTemplate:    string(bodyTpl),
		Deadline:        cfg.Deadline,
		FromName:        cfg.FromName,
		ReplyTo:         cfg.ReplyTo,
	}

	var engine service.Engine
	if mode == service.ModeSend {
		smtp, err := provider.NewSMTP(provider.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			UseSSL:   cfg.UseSSL,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			Pause:    cfg.Sleep(),
		}, logger)
		if err != nil {
			return err
		}
		engine = smtp
	}

	var led service.Ledger
	var writer *ledger.Writer
	var ledgerPath string
	if mode != service.ModePreview {
		ledgerPath = ledger.FilePath(args.logDir, start)
		if writer, err = ledger.NewWriter(ledgerPath); err != nil {
			return err
		}
		defer writer.Close() //nolint:errcheck
		led = writer
		logger.Info("run ledger opened", zap.String("path", ledgerPath))
	}

	orch, err := service.NewOrchestrator(renderer, builder, composer, engine, led, service.Options{
		Mode:         mode,
		MaxRetries:   cfg.MaxRetries,
		PreviewLimit: args.preview,
		PreviewDir:   args.previewDir,
	}, logger)
	if err != nil {
		return err
	}

	summary, err := orch.Run(ctx, batch)
	if err != nil {
		return err
	}

	if args.statusCSV != "" && writer != nil {
		if err := writer.Close(); err != nil {
			return err
		}
		rows, err := ledger.Read(ledgerPath)
		if err != nil {
			return err
		}
		if err := ledger.WriteStatus(args.statusCSV, rows); err != nil {
			return err
		}
		logger.Info("status csv written", zap.String("path", args.statusCSV))
	}

	logger.Info("done",
		zap.Int("sent", summary.Sent),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("previewed", summary.Previewed),
	)
	return nil
}

// loadBatch builds the recipient set either from a contacts CSV or, in
// retry mode, from a prior run ledger.
func loadBatch(args cliArgs, cfg *config.Config, logger *zap.Logger) (service.Batch, error) {
	var batch service.Batch

	if args.retryFromLog != "" {
		src, err := resolvePath(args.retryFromLog, "retry ledger")
		if err != nil {
			return batch, err
		}
		attempts, err := ledger.Read(src)
		if err != nil {
			return batch, err
		}
		retryable, exhausted := contacts.FromLedger(attempts, cfg.MaxRetries)
		batch.Recipients = retryable
		batch.Exhausted = exhausted
		batch.PriorAttempts = contacts.PriorAttempts(attempts)
		logger.Info("retry source loaded",
			zap.String("path", src),
			zap.Int("retryable", len(retryable)),
			zap.Int("exhausted", len(exhausted)),
		)
	} else {
		if args.contacts == "" {
			return batch, fmt.Errorf("%w: -contacts is required unless -retry-from-log is given", domain.ErrConfiguration)
		}
		src, err := resolvePath(args.contacts, "contacts CSV")
		if err != nil {
			return batch, err
		}
		recipients, rejects, err := contacts.Load(src)
		if err != nil {
			return batch, err
		}
		for _, rj := range rejects {
			logger.Warn("contact row rejected",
				zap.Int("line", rj.Line),
				zap.String("email", rj.Email),
				zap.String("reason", rj.Reason),
			)
		}
		batch.Recipients = recipients
		logger.Info("contacts loaded",
			zap.Int("valid", len(recipients)),
			zap.Int("rejected", len(rejects)),
		)
	}

	if args.limit > 0 && len(batch.Recipients) > args.limit {
		batch.Recipients = batch.Recipients[:args.limit]
	}
	return batch, nil
}

// resolvePath tries the argument as given, then relative to the working
// directory.
func resolvePath(path, what string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: %s path is empty", domain.ErrConfiguration, what)
	}
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if !filepath.IsAbs(path) {
		if wd, err := os.Getwd(); err == nil {
			cand := filepath.Join(wd, path)
			if _, err := os.Stat(cand); err == nil {
				return cand, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %s not found: %s", domain.ErrConfiguration, what, path)
}
