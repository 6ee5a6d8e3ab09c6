package http

import (
	"errors"
	"fmt"
	"net/http"

	applog "ledger/internal/log"
)

// maxUploadMemory is how much of a multipart upload is buffered in memory.
const maxUploadMemory = 1 << 20

// multipartOverhead allows for boundaries and part headers around the file.
const multipartOverhead = 64 << 10

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := s.deps.Transactions.ParseFilter(parseFilterParams(q))

	page, err := s.deps.Transactions.List(r.Context(), f, parsePage(q))
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionPageDTO(page))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	in, err := parseTransactionInput(r)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	tx, err := s.deps.Transactions.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}

	tx, err := s.deps.Transactions.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	in, err := parseTransactionInput(r)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}

	tx, err := s.deps.Transactions.Update(r.Context(), id, in)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionDTO(tx))
}

// handleDeleteTransaction answers 204 whether or not the id existed.
func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}

	if err := s.deps.Transactions.Delete(r.Context(), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	limit := s.deps.Imports.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			PayloadTooLargeError(fmt.Sprintf("file exceeds %d bytes", limit)).Write(w)
			return
		}
		BadRequestError("No file uploaded").Write(w)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("csv_file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			BadRequestError("No file uploaded").Write(w)
			return
		}
		writeError(w, r, applog.OpImport, fmt.Errorf("read upload: %w", err))
		return
	}
	defer file.Close()

	if header.Filename == "" {
		BadRequestError("No file selected").Write(w)
		return
	}

	result, err := s.deps.Imports.ImportCSV(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, r, applog.OpImport, err)
		return
	}

	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, http.StatusOK, importDTO{
		Success:  true,
		ImportID: result.ImportID,
		Imported: result.Imported,
		Errors:   errs,
	})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Transactions.ClearAll(r.Context())
	if err != nil {
		writeError(w, r, applog.OpClear, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Deleted %d transactions", n),
		"count":   n,
	})
}

func (s *Server) handleSampleData(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Transactions.SeedSampleData(r.Context())
	if err != nil {
		writeError(w, r, applog.OpSeed, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": fmt.Sprintf("Added %d test transactions", n),
		"count":   n,
	})
}
