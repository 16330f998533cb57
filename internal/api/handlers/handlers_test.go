package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eshaffer321/reconcile-backend/internal/api/dto"
	"github.com/eshaffer321/reconcile-backend/internal/api/handlers"
	"github.com/eshaffer321/reconcile-backend/internal/api/middleware"
	"github.com/eshaffer321/reconcile-backend/internal/application/service"
	"github.com/eshaffer321/reconcile-backend/internal/domain/ledger"
	"github.com/eshaffer321/reconcile-backend/internal/infrastructure/storage"
)

const testOwner = "owner-1"

func newService(t *testing.T) (*service.ReconcileService, *storage.MockRepository) {
	t.Helper()
	repo := storage.NewMockRepository()
	return service.NewReconcileService(repo, nil), repo
}

func seed(t *testing.T, repo *storage.MockRepository) {
	t.Helper()
	day := ledger.NewDate(2024, time.January, 10)
	require.NoError(t, repo.InsertEntries(context.Background(), []ledger.Entry{
		{ID: "b1", OwnerID: testOwner, Side: ledger.SideBank, Date: day, Description: "PIX", Amount: decimal.RequireFromString("100.00")},
		{ID: "f1", OwnerID: testOwner, Side: ledger.SideInternal, Date: day, Description: "Venda", Amount: decimal.RequireFromString("100.02")},
		{ID: "f2", OwnerID: testOwner, Side: ledger.SideInternal, Date: day, Description: "Outra", Amount: decimal.RequireFromString("7.00")},
	}))
}

// request builds a request carrying the owner, as RequireOwner would.
func request(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	return req.WithContext(middleware.WithOwner(req.Context(), testOwner))
}

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(data)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.APIError {
	t.Helper()
	var apiErr dto.APIError
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
	return apiErr
}

func TestMatchesHandler_Manual(t *testing.T) {
	t.Run("creates one group", func(t *testing.T) {
		svc, repo := newService(t)
		seed(t, repo)
		handler := handlers.NewMatchesHandler(svc, nil)

		rec := httptest.NewRecorder()
		handler.Manual(rec, request(http.MethodPost, "/api/matches/manual", jsonBody(t, dto.ManualMatchRequest{
			BankEntryIDs:     []string{"b1"},
			InternalEntryIDs: []string{"f1", "f2"},
		})))

		assert.Equal(t, http.StatusCreated, rec.Code)
		var response dto.MatchListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 2, response.Count)
		assert.Equal(t, "MANUAL", response.Matches[0].MatchType)
		assert.Equal(t, response.Matches[0].GroupID, response.Matches[1].GroupID)
	})

	t.Run("rejects unknown entries", func(t *testing.T) {
		svc, repo := newService(t)
		seed(t, repo)
		handler := handlers.NewMatchesHandler(svc, nil)

		rec := httptest.NewRecorder()
		handler.Manual(rec, request(http.MethodPost, "/api/matches/manual", jsonBody(t, dto.ManualMatchRequest{
			BankEntryIDs:     []string{"b1"},
			InternalEntryIDs: []string{"nope"},
		})))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, dto.ErrCodeValidation, decodeError(t, rec).Code)
	})

	t.Run("rejects an empty selection", func(t *testing.T) {
		svc, _ := newService(t)
		handler := handlers.NewMatchesHandler(svc, nil)

		rec := httptest.NewRecorder()
		handler.Manual(rec, request(http.MethodPost, "/api/matches/manual", jsonBody(t, dto.ManualMatchRequest{})))

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		svc, _ := newService(t)
		handler := handlers.NewMatchesHandler(svc, nil)

		rec := httptest.NewRecorder()
		handler.Manual(rec, request(http.MethodPost, "/api/matches/manual", bytes.NewBufferString("{")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.ErrCodeBadRequest, decodeError(t, rec).Code)
	})

	t.Run("reports a double claim as conflict", func(t *testing.T) {
		svc, repo := newService(t)
		seed(t, repo)
		handler := handlers.NewMatchesHandler(svc, nil)
		_, err := svc.ManualMatch(context.Background(), testOwner, []string{"b1"}, []string{"f1"})
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		handler.Manual(rec, request(http.MethodPost, "/api/matches/manual", jsonBody(t, dto.ManualMatchRequest{
			BankEntryIDs:     []string{"b1"},
			InternalEntryIDs: []string{"f2"},
		})))

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, dto.ErrCodeConflict, decodeError(t, rec).Code)
	})
}

func TestMatchesHandler_Auto(t *testing.T) {
	t.Run("runs exact pass", func(t *testing.T) {
		svc, repo := newService(t)
		seed(t, repo)
		handler := handlers.NewMatchesHandler(svc, nil)

		rec := httptest.NewRecorder()
		handler.Auto(rec, request(http.MethodPost, "/api/matches/auto", jsonBody(t, dto.AutoMatchRequest{Strategy: "exact"})))

		assert.Equal(t, http.StatusOK, rec.Code)
		var response dto.AutoMatchResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, "exact", response.Strategy)
		require.Len(t, response.Passes, 1)
		assert.Equal(t, 1, response.Passes[0].Records)
		assert.Equal(t, "b1", response.Matches[0].BankEntryID)
		assert.Equal(t, "f1", response.Matches[0].InternalEntryID)
	})

	t.Run("rejects unknown strategy", func(t *testing.T) {
		svc, _ := newService(t)
		handler := handlers.NewMatchesHandler(svc, nil)

		rec := httptest.NewRecorder()
		handler.Auto(rec, request(http.MethodPost, "/api/matches/auto", jsonBody(t, dto.AutoMatchRequest{Strategy: "fuzzy"})))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestMatchesHandler_Delete(t *testing.T) {
	svc, repo := newService(t)
	seed(t, repo)
	records, err := svc.ManualMatch(context.Background(), testOwner, []string{"b1"}, []string{"f1"})
	require.NoError(t, err)
	handler := handlers.NewMatchesHandler(svc, nil)

	router := chi.NewRouter()
	router.Delete("/api/matches/{id}", handler.Delete)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, request(http.MethodDelete, "/api/matches/"+records[0].ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, request(http.MethodDelete, "/api/matches/"+records[0].ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, dto.ErrCodeNotFound, decodeError(t, rec).Code)
}

func TestRulesHandler(t *testing.T) {
	svc, _ := newService(t)
	handler := handlers.NewRulesHandler(svc, nil)

	rec := httptest.NewRecorder()
	handler.Get(rec, request(http.MethodGet, "/api/rules", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var rules dto.RulesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rules))
	assert.Equal(t, "0.05", rules.ValueTolerance)
	assert.Equal(t, 1, rules.DateToleranceDays)

	// Only the date tolerance is sent; the value tolerance is kept.
	rec = httptest.NewRecorder()
	handler.Update(rec, request(http.MethodPut, "/api/rules", bytes.NewBufferString(`{"date_tolerance_days": 3}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rules))
	assert.Equal(t, "0.05", rules.ValueTolerance)
	assert.Equal(t, 3, rules.DateToleranceDays)

	rec = httptest.NewRecorder()
	handler.Update(rec, request(http.MethodPut, "/api/rules", bytes.NewBufferString(`{"value_tolerance": "0.10"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rules))
	assert.Equal(t, "0.1", rules.ValueTolerance)

	rec = httptest.NewRecorder()
	handler.Update(rec, request(http.MethodPut, "/api/rules", bytes.NewBufferString(`{"value_tolerance": -1}`)))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestEntriesHandler(t *testing.T) {
	svc, repo := newService(t)
	seed(t, repo)
	_, err := svc.ManualMatch(context.Background(), testOwner, []string{"b1"}, []string{"f1"})
	require.NoError(t, err)
	handler := handlers.NewEntriesHandler(svc, nil)

	t.Run("filters by side and status", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.List(rec, request(http.MethodGet, "/api/entries?side=internal&status=unmatched", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var response dto.EntryListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.Equal(t, 1, response.Count)
		assert.Equal(t, "f2", response.Entries[0].ID)
		assert.Equal(t, "7.00", response.Entries[0].Amount)
		assert.Equal(t, "2024-01-10", response.Entries[0].Date)
	})

	t.Run("rejects bad filters", func(t *testing.T) {
		for _, query := range []string{"side=cash", "status=pending"} {
			rec := httptest.NewRecorder()
			handler.List(rec, request(http.MethodGet, "/api/entries?"+query, nil))
			assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		}
	})

	t.Run("clear removes everything", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Clear(rec, request(http.MethodDelete, "/api/entries", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = httptest.NewRecorder()
		handler.List(rec, request(http.MethodGet, "/api/entries", nil))
		var response dto.EntryListResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Zero(t, response.Count)
	})
}

func multipartUpload(t *testing.T, files map[string]string, fields map[string]string) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for field, content := range files {
		part, err := mw.CreateFormFile(field, field+".csv")
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	for name, value := range fields {
		require.NoError(t, mw.WriteField(name, value))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestImportsHandler_Create(t *testing.T) {
	t.Run("imports the bank file alone", func(t *testing.T) {
		svc, _ := newService(t)
		handler := handlers.NewImportsHandler(svc, 1<<20, nil)

		body, contentType := multipartUpload(t,
			map[string]string{handlers.FieldBankFile: "Data;Descrição;Valor\n10/01/2024;PIX;1.000,00\n"},
			map[string]string{handlers.FieldBankFormat: "padrao"})
		req := request(http.MethodPost, "/api/imports", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var response dto.ImportResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		require.NotNil(t, response.Bank)
		assert.Nil(t, response.Internal)
		assert.Equal(t, "GENERIC", response.Bank.Format)
		assert.Equal(t, storage.ImportStatusImported, response.Bank.Status)
		assert.Equal(t, 1, response.Bank.Accepted)
	})

	t.Run("rejects a bank layout for the internal file", func(t *testing.T) {
		svc, _ := newService(t)
		handler := handlers.NewImportsHandler(svc, 1<<20, nil)

		body, contentType := multipartUpload(t,
			map[string]string{handlers.FieldInternalFile: "x"},
			map[string]string{handlers.FieldInternalFormat: "SICREDI"})
		req := request(http.MethodPost, "/api/imports", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("requires at least one file", func(t *testing.T) {
		svc, _ := newService(t)
		handler := handlers.NewImportsHandler(svc, 1<<20, nil)

		body, contentType := multipartUpload(t, nil, map[string]string{handlers.FieldBankFormat: "GENERIC"})
		req := request(http.MethodPost, "/api/imports", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects non-multipart bodies", func(t *testing.T) {
		svc, _ := newService(t)
		handler := handlers.NewImportsHandler(svc, 1<<20, nil)

		rec := httptest.NewRecorder()
		handler.Create(rec, request(http.MethodPost, "/api/imports", bytes.NewBufferString("{}")))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects oversized uploads", func(t *testing.T) {
		svc, _ := newService(t)
		handler := handlers.NewImportsHandler(svc, 64, nil)

		body, contentType := multipartUpload(t,
			map[string]string{handlers.FieldBankFile: string(bytes.Repeat([]byte("a"), 1024))}, nil)
		req := request(http.MethodPost, "/api/imports", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		handler.Create(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestImportsHandler_List(t *testing.T) {
	svc, repo := newService(t)
	for i := 0; i < 3; i++ {
		require.NoError(t, repo.RecordImportRun(context.Background(), &storage.ImportRun{
			OwnerID:  testOwner,
			Side:     "BANK",
			FileName: fmt.Sprintf("extrato-%d.xlsx", i),
			Status:   storage.ImportStatusImported,
		}))
	}
	handler := handlers.NewImportsHandler(svc, 1<<20, nil)

	rec := httptest.NewRecorder()
	handler.List(rec, request(http.MethodGet, "/api/imports?limit=2", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var response dto.ImportRunListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, 2, response.Count)
	assert.Equal(t, "extrato-2.xlsx", response.Runs[0].FileName)
}

func TestReportsHandler(t *testing.T) {
	svc, repo := newService(t)
	seed(t, repo)
	handler := handlers.NewReportsHandler(svc, nil)

	t.Run("summary", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Summary(rec, request(http.MethodGet, "/api/summary", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var response dto.SummaryResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
		assert.Equal(t, 1, response.Bank.Entries)
		assert.Equal(t, "107.02", response.Internal.UnmatchedAmount)
	})

	t.Run("csv export", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Export(rec, request(http.MethodGet, "/api/report", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "reconciliation.csv")
		assert.Contains(t, rec.Body.String(), "2024-01-10,PIX,100.00,BANK,unmatched")
	})

	t.Run("xlsx export", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Export(rec, request(http.MethodGet, "/api/report?format=xlsx", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "PK", rec.Body.String()[:2])
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.Export(rec, request(http.MethodGet, "/api/report?format=pdf", nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWriteServiceError_InternalErrorsAreHidden(t *testing.T) {
	svc, repo := newService(t)
	repo.ListEntriesErr = errors.New("disk I/O error")
	handler := handlers.NewEntriesHandler(svc, nil)

	rec := httptest.NewRecorder()
	handler.List(rec, request(http.MethodGet, "/api/entries", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, dto.ErrCodeInternalError, apiErr.Code)
	assert.NotContains(t, apiErr.Message, "disk")
}
