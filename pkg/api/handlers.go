package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/flowscope/pkg/errors"
	"github.com/matzehuels/flowscope/pkg/flow"
	"github.com/matzehuels/flowscope/pkg/graph"
	"github.com/matzehuels/flowscope/pkg/pipeline"
)

var contentTypes = map[string]string{
	pipeline.FormatSVG:  "image/svg+xml",
	pipeline.FormatPNG:  "image/png",
	pipeline.FormatJSON: "application/json",
}

type healthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
}

type errorResponse struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Records: len(s.records)})
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	m, _, err := s.model(r, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, graph.FromModel(m))
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	m, hash, err := s.model(r, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, err := s.runner.Layout(r.Context(), m, hash, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	opts, err := s.options(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	format := chi.URLParam(r, "format")
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, err)
		return
	}
	opts.Formats = []string{format}
	opts.Detailed = r.URL.Query().Get("detailed") == "true"

	m, hash, err := s.model(r, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	l, err := s.runner.Layout(r.Context(), m, hash, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}
	artifacts, err := s.runner.Render(r.Context(), l, m, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentTypes[format])
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifacts[format])
}

// options derives per-request pipeline options from the URL.
func (s *Server) options(r *http.Request) (pipeline.Options, error) {
	opts := s.base
	opts.Formats = nil
	mode, err := flow.ParseMode(chi.URLParam(r, "mode"))
	if err != nil {
		return opts, err
	}
	opts.Mode = mode
	opts.Refresh = opts.Refresh || r.URL.Query().Get("refresh") == "true"
	return opts, nil
}

func (s *Server) model(r *http.Request, opts pipeline.Options) (flow.Model, string, error) {
	models, hash, _, err := s.runner.ModelsWithCacheInfo(r.Context(), s.records, opts)
	if err != nil {
		return flow.Model{}, "", err
	}
	return models.For(opts.Mode), hash, nil
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorResponse{Code: code, Message: errors.UserMessage(err)})
}

// statusFor maps an error code to an HTTP status.
func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidMode,
		errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidRange:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeFileNotFound, errors.ErrCodeUnknownNode:
		return http.StatusNotFound
	case errors.ErrCodeUnstable, errors.ErrCodeEngineStopped:
		return http.StatusConflict
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
