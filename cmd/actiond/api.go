package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/runforge-labs/actiond/internal/domain"
	"github.com/runforge-labs/actiond/internal/registry"
	"github.com/runforge-labs/actiond/internal/runner"
	"github.com/runforge-labs/actiond/internal/service/executions"
)

type actiondAPI struct {
	logger    *slog.Logger
	svc       *executions.Service
	registry  *registry.Registry
	container *runner.Container
}

func newActiondAPI(
	logger *slog.Logger,
	svc *executions.Service,
	reg *registry.Registry,
	container *runner.Container,
) *actiondAPI {
	return &actiondAPI{
		logger:    logger,
		svc:       svc,
		registry:  reg,
		container: container,
	}
}

func (api *actiondAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/executions", api.handleScheduleExecution)
	mux.HandleFunc("POST /v1/executions/{liveaction_id}/run", api.handleRunExecution)
	mux.HandleFunc("GET /v1/executions/{liveaction_id}", api.handleGetExecution)
	mux.HandleFunc("GET /v1/actions", api.handleListActions)
	mux.HandleFunc("GET /v1/actions/{action_ref}", api.handleGetAction)
	mux.HandleFunc("GET /v1/runnertypes", api.handleListRunnerTypes)
}

type liveActionResponse struct {
	ID             string          `json:"liveaction_id"`
	Action         string          `json:"action"`
	Context        domain.Metadata `json:"context,omitempty"`
	Parameters     domain.Metadata `json:"parameters,omitempty"`
	Status         string          `json:"status"`
	StartTimestamp time.Time       `json:"start_timestamp"`
	EndTimestamp   *time.Time      `json:"end_timestamp,omitempty"`
	Result         domain.Metadata `json:"result,omitempty"`
}

func toLiveActionResponse(la domain.LiveAction) liveActionResponse {
	return liveActionResponse{
		ID:             la.ID,
		Action:         la.Action,
		Context:        la.Context,
		Parameters:     la.Parameters,
		Status:         string(la.Status),
		StartTimestamp: la.StartTimestamp,
		EndTimestamp:   la.EndTimestamp,
		Result:         la.Result,
	}
}

func (api *actiondAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *actiondAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string, details any) {
	body := map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	}
	if details != nil {
		body["details"] = details
	}
	api.writeJSON(w, status, body)
}
