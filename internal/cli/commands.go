package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/eshaffer321/reconcile-backend/internal/application/service"
	"github.com/eshaffer321/reconcile-backend/internal/infrastructure/config"
	"github.com/eshaffer321/reconcile-backend/internal/infrastructure/storage"
)

// Env holds what the one-shot commands share: an open store, the service
// built on it, and where to print.
type Env struct {
	Config  *config.Config
	Logger  *slog.Logger
	Store   *storage.Storage
	Service *service.ReconcileService
	Out     io.Writer
}

// NewService builds the reconciliation service from configuration
func NewService(cfg *config.Config, repo storage.Repository, logger *slog.Logger) *service.ReconcileService {
	return service.NewReconcileService(repo, logger,
		service.WithDefaultRules(cfg.Reconciliation.ValueTolerance, cfg.Reconciliation.DateToleranceDays),
		service.WithRulesCacheTTL(cfg.Reconciliation.RulesCacheTTL),
	)
}

// OpenEnv opens the configured database. Callers must Close the Env.
func OpenEnv(cfg *config.Config, logger *slog.Logger, out io.Writer) (*Env, error) {
	store, err := storage.NewStorageWithLogger(cfg.Storage.DatabasePath, logger)
	if err != nil {
		return nil, err
	}
	return &Env{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Service: NewService(cfg, store, logger),
		Out:     out,
	}, nil
}

// Close closes the store
func (e *Env) Close() error {
	return e.Store.Close()
}

// RunImport imports the bank and/or internal file
func RunImport(ctx context.Context, env *Env, flags *ImportFlags) error {
	req := service.ImportRequest{OwnerID: flags.Owner}

	bank, closeBank, err := openUpload(flags.BankFile, flags.BankFormat)
	if err != nil {
		return err
	}
	defer closeBank()
	req.Bank = bank

	internal, closeInternal, err := openUpload(flags.InternalFile, flags.InternalFormat)
	if err != nil {
		return err
	}
	defer closeInternal()
	req.Internal = internal

	result, err := env.Service.Import(ctx, req)
	if err != nil {
		return err
	}

	PrintHeader(env.Out, "import", flags.Owner)
	PrintImportResult(env.Out, result)
	return nil
}

func openUpload(path, format string) (*service.Upload, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	upload := &service.Upload{
		FileName: filepath.Base(path),
		Content:  f,
		Format:   format,
	}
	return upload, func() { _ = f.Close() }, nil
}

// RunMatch runs a manual match when ids are given, automatic passes otherwise
func RunMatch(ctx context.Context, env *Env, flags *MatchFlags) error {
	PrintHeader(env.Out, "match", flags.Owner)

	if flags.Manual() {
		records, err := env.Service.ManualMatch(ctx, flags.Owner, flags.BankIDs, flags.InternalIDs)
		if err != nil {
			return err
		}
		PrintMatches(env.Out, records)
		return nil
	}

	strategy, err := service.ParseStrategy(flags.Strategy)
	if err != nil {
		return err
	}
	result, err := env.Service.AutoMatch(ctx, flags.Owner, strategy)
	if err != nil {
		return err
	}
	PrintAutoMatch(env.Out, result)
	return nil
}

// RunUnmatch deletes match records one by one
func RunUnmatch(ctx context.Context, env *Env, flags *UnmatchFlags) error {
	for _, id := range flags.MatchIDs {
		if err := env.Service.Unmatch(ctx, flags.Owner, id); err != nil {
			return fmt.Errorf("unmatch %s: %w", id, err)
		}
		fmt.Fprintf(env.Out, "removed %s\n", id)
	}
	return nil
}

// RunRules prints the owner's rules, updating them first when asked
func RunRules(ctx context.Context, env *Env, flags *RulesFlags) error {
	rules, err := env.Service.GetRules(ctx, flags.Owner)
	if err != nil {
		return err
	}

	if flags.SetTolerance || flags.SetDays {
		tolerance := rules.ValueTolerance
		days := rules.DateToleranceDays
		if flags.SetTolerance {
			tolerance, err = decimal.NewFromString(strings.Replace(strings.TrimSpace(flags.ValueTolerance), ",", ".", 1))
			if err != nil {
				return fmt.Errorf("invalid tolerance %q: %w", flags.ValueTolerance, err)
			}
		}
		if flags.SetDays {
			days = flags.DateToleranceDays
		}
		if rules, err = env.Service.UpdateRules(ctx, flags.Owner, tolerance, days); err != nil {
			return err
		}
	}

	PrintHeader(env.Out, "rules", flags.Owner)
	PrintRules(env.Out, rules)
	return nil
}

// RunReport prints the summary, or exports the report when -format is set
func RunReport(ctx context.Context, env *Env, flags *ReportFlags) error {
	if flags.Format == "" {
		summary, err := env.Service.Summary(ctx, flags.Owner)
		if err != nil {
			return err
		}
		PrintHeader(env.Out, "summary", flags.Owner)
		PrintSummary(env.Out, summary)
		return nil
	}

	format, err := service.ParseReportFormat(flags.Format)
	if err != nil {
		return err
	}

	if flags.Output == "" {
		return env.Service.WriteReport(ctx, flags.Owner, format, env.Out)
	}

	f, err := os.Create(flags.Output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", flags.Output, err)
	}
	if err := env.Service.WriteReport(ctx, flags.Owner, format, f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "wrote %s\n", flags.Output)
	return nil
}

// RunClear deletes the owner's entries and matches
func RunClear(ctx context.Context, env *Env, flags *ClearFlags) error {
	if err := env.Service.ClearAll(ctx, flags.Owner); err != nil {
		return err
	}
	fmt.Fprintf(env.Out, "cleared entries and matches for %s\n", flags.Owner)
	return nil
}
