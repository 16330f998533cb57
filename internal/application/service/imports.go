package service

import (
	"context"
	"fmt"
	"io"

	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
	"github.com/eshaffer321/reconcile-backend/internal/domain/normalizer"
	"github.com/eshaffer321/reconcile-backend/internal/infrastructure/storage"
	"github.com/eshaffer321/reconcile-backend/internal/infrastructure/workbook"
)

// Upload is one file handed to Import.
type Upload struct {
	FileName string
	Content  io.Reader
	Format   string // empty selects the side's default format
}

// ImportRequest carries the bank file, the internal file, or both.
type ImportRequest struct {
	OwnerID  string
	Bank     *Upload
	Internal *Upload
}

// FileReport is the outcome for one side of an import.
type FileReport struct {
	Side     ledger.Side          `json:"side"`
	FileName string               `json:"file_name"`
	Format   normalizer.Format    `json:"format"`
	Status   string               `json:"status"`
	Accepted int                  `json:"accepted"`
	Rejected int                  `json:"rejected"`
	Error    string               `json:"error,omitempty"`
}

// ImportResult holds one report per uploaded file.
type ImportResult struct {
	Bank     *FileReport `json:"bank,omitempty"`
	Internal *FileReport `json:"internal,omitempty"`
}

// Import reads, normalizes and stores each uploaded file. A file that
// cannot be read, or yields no rows, is reported without stopping the
// other. Format errors are caller errors and fail the whole request
// before anything is read.
func (s *ReconcileService) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if req.Bank == nil && req.Internal == nil {
		return nil, ErrNoFiles
	}

	bankFormat, err := resolveFormat(req.Bank, ledger.SideBank)
	if err != nil {
		return nil, err
	}
	internalFormat, err := resolveFormat(req.Internal, ledger.SideInternal)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	if req.Bank != nil {
		if result.Bank, err = s.importFile(ctx, req.OwnerID, ledger.SideBank, bankFormat, req.Bank); err != nil {
			return nil, err
		}
	}
	if req.Internal != nil {
		if result.Internal, err = s.importFile(ctx, req.OwnerID, ledger.SideInternal, internalFormat, req.Internal); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func resolveFormat(u *Upload, side ledger.Side) (normalizer.Format, error) {
	if u == nil {
		return "", nil
	}
	if u.Format == "" {
		return normalizer.DefaultFormat(side), nil
	}
	format, err := normalizer.ParseFormat(u.Format)
	if err != nil {
		return "", err
	}
	if err := format.CheckSide(side); err != nil {
		return "", err
	}
	return format, nil
}

// importFile handles one side. Only storage failures are returned as
// errors; everything else ends up in the report.
func (s *ReconcileService) importFile(ctx context.Context, ownerID string, side ledger.Side, format normalizer.Format, u *Upload) (*FileReport, error) {
	report := &FileReport{Side: side, FileName: u.FileName, Format: format}
	logger := s.logger.With("side", side, "file", u.FileName, "format", format)

	grid, err := workbook.Read(u.FileName, u.Content)
	if err != nil {
		logger.Warn("failed to read file", "error", err)
		report.Status = storage.ImportStatusFailed
		report.Error = err.Error()
		return report, s.recordRun(ctx, ownerID, report)
	}

	normalized, err := s.normalizer.Normalize(grid, format, side, ownerID)
	if err != nil {
		return nil, err
	}
	report.Accepted = normalized.Accepted
	report.Rejected = normalized.Rejected

	if normalized.Empty() {
		logger.Info("file produced no entries", "rejected", report.Rejected, "header_found", normalized.Detected)
		report.Status = storage.ImportStatusNoData
		return report, s.recordRun(ctx, ownerID, report)
	}

	if err := s.repo.InsertEntries(ctx, normalized.Entries); err != nil {
		return nil, fmt.Errorf("failed to store %s entries: %w", side, err)
	}

	report.Status = storage.ImportStatusImported
	logger.Info("file imported", "accepted", report.Accepted, "rejected", report.Rejected)
	return report, s.recordRun(ctx, ownerID, report)
}

func (s *ReconcileService) recordRun(ctx context.Context, ownerID string, report *FileReport) error {
	run := &storage.ImportRun{
		OwnerID:  ownerID,
		Side:     string(report.Side),
		FileName: report.FileName,
		Format:   string(report.Format),
		Status:   report.Status,
		Accepted: report.Accepted,
		Rejected: report.Rejected,
		Error:    report.Error,
	}
	if err := s.repo.RecordImportRun(ctx, run); err != nil {
		return fmt.Errorf("failed to record import run: %w", err)
	}
	return nil
}

// ImportHistory lists the owner's recent import runs, newest first.
func (s *ReconcileService) ImportHistory(ctx context.Context, ownerID string, limit int) ([]storage.ImportRun, error) {
	return s.repo.ListImportRuns(ctx, ownerID, limit)
}
