package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/runforge-labs/actiond/internal/domain"
	"github.com/runforge-labs/actiond/internal/params"
	"github.com/runforge-labs/actiond/internal/repo"
	"github.com/runforge-labs/actiond/internal/service/executions"
)

type scheduleExecutionRequest struct {
	Action     string          `json:"action"`
	Context    domain.Metadata `json:"context,omitempty"`
	Parameters domain.Metadata `json:"parameters,omitempty"`
}

func (api *actiondAPI) handleScheduleExecution(w http.ResponseWriter, r *http.Request) {
	var req scheduleExecutionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_request_body", err.Error())
		return
	}

	la, err := api.svc.Schedule(r.Context(), executions.ScheduleRequest{
		Action:     req.Action,
		Context:    req.Context,
		Parameters: req.Parameters,
	})
	if err != nil {
		api.writeScheduleError(w, r, err)
		return
	}
	api.writeJSON(w, http.StatusCreated, toLiveActionResponse(la))
}

func (api *actiondAPI) writeScheduleError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *params.ValidationError
		notFoundErr   *executions.ActionNotFoundError
		disabledErr   *executions.ActionDisabledError
		runnerErr     *executions.RunnerTypeNotFoundError
	)
	switch {
	case errors.As(err, &validationErr):
		issues := make([]map[string]string, 0, len(validationErr.Issues))
		for _, issue := range validationErr.Issues {
			issues = append(issues, map[string]string{
				"parameter":  issue.Parameter,
				"constraint": issue.Constraint,
				"reason":     issue.Reason,
			})
		}
		api.writeError(w, r, http.StatusBadRequest, "invalid_parameters", issues)
	case errors.As(err, &notFoundErr):
		api.writeError(w, r, http.StatusBadRequest, "action_not_found", notFoundErr.Error())
	case errors.As(err, &disabledErr):
		api.writeError(w, r, http.StatusBadRequest, "action_disabled", disabledErr.Error())
	case errors.As(err, &runnerErr):
		api.writeError(w, r, http.StatusBadRequest, "runner_type_not_found", runnerErr.Error())
	default:
		api.logger.Error("schedule failed", "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error", nil)
	}
}

func (api *actiondAPI) handleRunExecution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("liveaction_id")

	la, err := api.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "execution_not_found", nil)
			return
		}
		api.logger.Error("execution lookup failed", "liveaction_id", id, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	if la.Status != domain.StatusScheduled {
		api.writeError(w, r, http.StatusConflict, "execution_not_runnable", string(la.Status))
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		if _, err := api.svc.Execute(r.Context(), la, api.container); err != nil {
			if errors.Is(err, repo.ErrStatusConflict) {
				api.writeError(w, r, http.StatusConflict, "execution_not_runnable", nil)
				return
			}
			// The failure is committed on the record; surface the
			// terminal state rather than masking it with a 5xx.
			api.logger.Warn("execution failed", "liveaction_id", id, "error", err)
		}
		final, err := api.svc.GetByID(r.Context(), id)
		if err != nil {
			api.logger.Error("execution lookup failed", "liveaction_id", id, "error", err)
			api.writeError(w, r, http.StatusInternalServerError, "internal_error", nil)
			return
		}
		api.writeJSON(w, http.StatusOK, toLiveActionResponse(final))
		return
	}

	go func() {
		ctx := context.Background()
		if _, err := api.svc.Execute(ctx, la, api.container); err != nil {
			api.logger.Warn("execution failed", "liveaction_id", la.ID, "error", err)
		}
	}()
	api.writeJSON(w, http.StatusAccepted, map[string]string{
		"liveaction_id": la.ID,
		"status":        string(domain.StatusRunning),
	})
}

func (api *actiondAPI) handleGetExecution(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("liveaction_id")

	la, err := api.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "execution_not_found", nil)
			return
		}
		api.logger.Error("execution lookup failed", "liveaction_id", id, "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	api.writeJSON(w, http.StatusOK, toLiveActionResponse(la))
}
