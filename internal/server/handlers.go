package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonathan/profile-importer/internal/db"
	"github.com/jonathan/profile-importer/internal/fetch"
	"github.com/jonathan/profile-importer/internal/importer"
	"github.com/jonathan/profile-importer/internal/logging"
	"github.com/jonathan/profile-importer/internal/types"
	"go.uber.org/zap"
)

var (
	errHistoryDisabled = errors.New("import history is not configured")
	errSchemaDisabled  = errors.New("notion schema lookup is not configured")
)

// ExtractRequest is the body of POST /extract.
type ExtractRequest struct {
	Content string `json:"content" validate:"required"`
	URL     string `json:"url" validate:"omitempty,http_url"`
}

// SaveRequest is the body of POST /save.
type SaveRequest struct {
	Profile *types.ExtractedProfile `json:"profile" validate:"required"`
}

// ImportRequest is the body of POST /import. With only a URL the server
// fetches the page; HTML is parsed as given; Text (plus Images) is a
// snapshot taken by the extension in the user's browser.
type ImportRequest struct {
	URL            string            `json:"url" validate:"required,http_url"`
	HTML           string            `json:"html,omitempty"`
	Text           string            `json:"text,omitempty"`
	Images         []fetch.ImageInfo `json:"images,omitempty" validate:"excluded_without=Text"`
	ViewportHeight float64           `json:"viewport_height,omitempty" validate:"gte=0"`
}

// snapshot builds the page snapshot for non-fetch modes; nil means fetch.
func (r *ImportRequest) snapshot() (*fetch.Snapshot, error) {
	switch {
	case r.Text != "":
		return &fetch.Snapshot{
			URL:            r.URL,
			Text:           r.Text,
			Images:         r.Images,
			ViewportHeight: r.ViewportHeight,
			Rendered:       true,
		}, nil
	case r.HTML != "":
		noise := fetch.PlatformNoiseSelectors(fetch.DetectPlatform(r.URL))
		snap, err := fetch.SnapshotFromHTML(r.HTML, r.URL, noise...)
		if err != nil {
			return nil, &ErrValidation{Field: "html", Message: err.Error()}
		}
		return snap, nil
	default:
		return nil, nil
	}
}

// decode reads a JSON body into dst and validates it.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := s.validator.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(r.Context(), w, http.StatusOK, map[string]any{
		"status":     "ok",
		"components": s.importer.Ready(),
	})
}

// handleExtract runs extraction only.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(r.Context(), w, err)
		return
	}

	profile, err := s.importer.Extract(r.Context(), req.Content, req.URL)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	s.jsonResponse(r.Context(), w, http.StatusOK, profile)
}

// handleSave writes an already extracted profile.
func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	var req SaveRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(r.Context(), w, err)
		return
	}

	page, err := s.importer.Save(r.Context(), req.Profile)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	s.jsonResponse(r.Context(), w, http.StatusCreated, page)
}

// runImport dispatches on the request mode.
func (s *Server) runImport(ctx context.Context, imp *importer.Importer, req *ImportRequest) (*types.ImportResult, error) {
	snap, err := req.snapshot()
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return imp.ImportURL(ctx, req.URL)
	}
	return imp.Import(ctx, snap)
}

// handleImport runs the whole pipeline. The result is returned for every
// outcome, with the status code reflecting the error.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(r.Context(), w, err)
		return
	}

	result, err := s.runImport(r.Context(), s.importer, &req)
	if result == nil {
		s.fail(r.Context(), w, err)
		return
	}

	status := http.StatusCreated
	if err != nil {
		status = HTTPStatus(err)
	}
	s.jsonResponse(r.Context(), w, status, result)
}

// handleImportStream runs an import and reports progress as Server-Sent Events.
func (s *Server) handleImportStream(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := s.decode(w, r, &req); err != nil {
		s.fail(r.Context(), w, err)
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(r.Context(), w, http.StatusInternalServerError, err.Error())
		return
	}

	logger := logging.FromContext(r.Context(), s.logger)
	imp := s.importer.WithProgress(func(event importer.ProgressEvent) {
		if err := sse.WriteEvent(EventStep, event); err != nil {
			logger.Warn("error writing SSE event", zap.Error(err))
		}
	})

	result, err := s.runImport(r.Context(), imp, &req)
	if err != nil {
		sse.WriteError(HTTPStatus(err), err.Error())
		if result == nil {
			return
		}
	}
	sse.WriteComplete(result)
}

// handleListImports lists history, or returns the newest record for ?url=.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	history := s.importer.History()
	if history == nil {
		s.errorResponse(r.Context(), w, http.StatusNotImplemented, errHistoryDisabled.Error())
		return
	}

	if url := strings.TrimSpace(r.URL.Query().Get("url")); url != "" {
		rec, err := history.FindByURL(r.Context(), url)
		if err != nil {
			s.fail(r.Context(), w, err)
			return
		}
		if rec == nil {
			s.errorResponse(r.Context(), w, http.StatusNotFound, fmt.Sprintf("no import recorded for %s", url))
			return
		}
		s.jsonResponse(r.Context(), w, http.StatusOK, rec)
		return
	}

	limit := db.DefaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.fail(r.Context(), w, &ErrValidation{Field: "limit", Message: "must be a positive integer"})
			return
		}
		limit = n
	}

	records, err := history.ListImports(r.Context(), limit)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	if records == nil {
		records = []db.ImportRecord{}
	}
	s.jsonResponse(r.Context(), w, http.StatusOK, map[string]any{
		"imports": records,
		"count":   len(records),
	})
}

// handleSchema returns the Notion database property types.
func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if s.schema == nil {
		s.errorResponse(r.Context(), w, http.StatusNotImplemented, errSchemaDisabled.Error())
		return
	}
	database, err := s.schema.Schema(r.Context())
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	s.jsonResponse(r.Context(), w, http.StatusOK, database)
}
