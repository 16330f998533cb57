package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/eshaffer321/reconcile-backend/internal/api/dto"
	"github.com/eshaffer321/reconcile-backend/internal/application/service"
	"github.com/eshaffer321/reconcile-backend/internal/infrastructure/storage"
)

// Multipart field names for POST /api/imports.
const (
	FieldBankFile       = "bank_file"
	FieldBankFormat     = "bank_format"
	FieldInternalFile   = "internal_file"
	FieldInternalFormat = "internal_format"
)

// multipartMemory is how much of an upload is kept in memory before
// spilling to temp files.
const multipartMemory = 8 << 20

// ImportsHandler handles statement uploads.
type ImportsHandler struct {
	*Base
	maxUploadBytes int64
}

// NewImportsHandler creates a new imports handler.
func NewImportsHandler(svc *service.ReconcileService, maxUploadBytes int64, logger *slog.Logger) *ImportsHandler {
	return &ImportsHandler{
		Base:           NewBase(svc, logger),
		maxUploadBytes: maxUploadBytes,
	}
}

// Create handles POST /api/imports - imports the bank file, the internal
// file, or both.
func (h *ImportsHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.WriteError(w, http.StatusRequestEntityTooLarge, dto.BadRequestError("upload too large"))
			return
		}
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("expected multipart form data"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	req := service.ImportRequest{OwnerID: owner(r)}

	var err error
	var closeBank, closeInternal func()
	if req.Bank, closeBank, err = upload(r, FieldBankFile, FieldBankFormat); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}
	defer closeBank()
	if req.Internal, closeInternal, err = upload(r, FieldInternalFile, FieldInternalFormat); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}
	defer closeInternal()

	result, err := h.svc.Import(r.Context(), req)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.ImportResponse{
		Bank:     toImportFileResponse(result.Bank),
		Internal: toImportFileResponse(result.Internal),
	})
}

// upload opens one optional file field. A missing field gives a nil
// Upload. The returned func closes the file and is never nil.
func upload(r *http.Request, fileField, formatField string) (*service.Upload, func(), error) {
	file, header, err := r.FormFile(fileField)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, errors.New("could not read " + fileField)
	}
	return &service.Upload{
		FileName: header.Filename,
		Content:  file,
		Format:   r.FormValue(formatField),
	}, func() { _ = file.Close() }, nil
}

// List handles GET /api/imports - returns recent import runs.
func (h *ImportsHandler) List(w http.ResponseWriter, r *http.Request) {
	params := dto.DefaultImportRunListParams()
	params.Limit = ParseIntParam(r, "limit", params.Limit)

	runs, err := h.svc.ImportHistory(r.Context(), owner(r), params.Limit)
	if err != nil {
		h.WriteServiceError(w, r, err)
		return
	}

	response := dto.ImportRunListResponse{
		Runs:  make([]dto.ImportRunResponse, 0, len(runs)),
		Count: len(runs),
	}
	for _, run := range runs {
		response.Runs = append(response.Runs, toImportRunResponse(run))
	}

	h.WriteJSON(w, http.StatusOK, response)
}

func toImportFileResponse(report *service.FileReport) *dto.ImportFileResponse {
	if report == nil {
		return nil
	}
	return &dto.ImportFileResponse{
		FileName: report.FileName,
		Format:   string(report.Format),
		Status:   report.Status,
		Accepted: report.Accepted,
		Rejected: report.Rejected,
		Error:    report.Error,
	}
}

// toImportRunResponse converts a storage ImportRun to an API response.
func toImportRunResponse(run storage.ImportRun) dto.ImportRunResponse {
	return dto.ImportRunResponse{
		ID:        run.ID,
		Side:      run.Side,
		FileName:  run.FileName,
		Format:    run.Format,
		Status:    run.Status,
		Accepted:  run.Accepted,
		Rejected:  run.Rejected,
		Error:     run.Error,
		CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339),
	}
}
