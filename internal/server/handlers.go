package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	ferrors "github.com/matzehuels/forcegraph/pkg/errors"
	"github.com/matzehuels/forcegraph/pkg/graph"
	"github.com/matzehuels/forcegraph/pkg/pipeline"
)

// LayoutRequest is the body of POST /v1/layouts. Omitted options keep
// their defaults.
type LayoutRequest struct {
	Graph   graph.Document   `json:"graph"`
	Options pipeline.Options `json:"options"`
}

// LayoutResponse is a computed layout plus request metadata.
type LayoutResponse struct {
	RunID  string `json:"run_id"`
	Cached bool   `json:"cached"`
	graph.Layout
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ferrors.Code `json:"code"`
	Message string       `json:"message"`
	RunID   string       `json:"run_id,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	runID := uuid.NewString()
	logger := s.cfg.Logger.With("run_id", runID, "request_id", middleware.GetReqID(r.Context()))

	req := LayoutRequest{Options: pipeline.DefaultOptions()}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
			err = fmt.Errorf("body exceeds %d bytes", tooLarge.Limit)
		}
		writeError(w, runID, ferrors.Wrap(ferrors.ErrCodeInvalidInput, err, "decode request body"), status)
		return
	}
	if err := s.checkLimits(req); err != nil {
		writeError(w, runID, err, statusFor(err))
		return
	}

	opts := req.Options
	opts.Logger = logger
	layout, cached, err := s.cfg.Runner.LayoutDocument(r.Context(), req.Graph, opts)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			logger.Error("layout failed", "err", err)
		} else {
			logger.Info("layout rejected", "err", err)
		}
		writeError(w, runID, err, status)
		return
	}

	logger.Debug("layout served", "cached", cached, "steps", layout.Steps, "stable", layout.Stable)
	writeJSON(w, LayoutResponse{RunID: runID, Cached: cached, Layout: layout}, http.StatusOK)
}

// checkLimits rejects requests that would exceed the service's budgets.
func (s *Server) checkLimits(req LayoutRequest) error {
	if n := len(req.Graph.Nodes); n > s.cfg.MaxNodes {
		return ferrors.New(ferrors.ErrCodeInvalidInput, "graph has %d nodes, limit is %d", n, s.cfg.MaxNodes)
	}
	if req.Options.MaxSteps > s.cfg.MaxSteps {
		return &ferrors.ConfigurationError{
			Field:  "MaxSteps",
			Reason: fmt.Sprintf("must be <= %d, got %d", s.cfg.MaxSteps, req.Options.MaxSteps),
		}
	}
	return nil
}

// statusFor maps an error to its HTTP status. Caller mistakes are 422,
// a diverged simulation is 409, and anything without a code is a 500.
func statusFor(err error) int {
	switch ferrors.GetCode(err) {
	case ferrors.ErrCodeInvalidConfig, ferrors.ErrCodeInvalidInput, ferrors.ErrCodeUnknownNode:
		return http.StatusUnprocessableEntity
	case ferrors.ErrCodeDivergence:
		return http.StatusConflict
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, runID string, err error, status int) {
	code := ferrors.GetCode(err)
	if code == "" {
		code = ferrors.ErrCodeInternal
	}
	msg := err.Error()
	var fe *ferrors.Error
	if errors.As(err, &fe) && fe.Cause == nil {
		msg = ferrors.UserMessage(err)
	}
	writeJSON(w, ErrorResponse{Code: code, Message: msg, RunID: runID}, status)
}
