package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/runforge-labs/actiond/internal/domain"
	"github.com/runforge-labs/actiond/internal/repo"
)

type actionResponse struct {
	Ref         string                 `json:"ref"`
	Pack        string                 `json:"pack"`
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Enabled     bool                   `json:"enabled"`
	EntryPoint  string                 `json:"entry_point,omitempty"`
	RunnerType  string                 `json:"runner_type"`
	Parameters  domain.ParameterSchema `json:"parameters,omitempty"`
}

func toActionResponse(action domain.Action) actionResponse {
	return actionResponse{
		Ref:         action.Ref().String(),
		Pack:        action.Pack,
		Name:        action.Name,
		Description: action.Description,
		Enabled:     action.Enabled,
		EntryPoint:  action.EntryPoint,
		RunnerType:  action.RunnerType,
		Parameters:  action.Parameters,
	}
}

type runnerTypeResponse struct {
	Name             string                 `json:"name"`
	Description      string                 `json:"description,omitempty"`
	Enabled          bool                   `json:"enabled"`
	RunnerParameters domain.ParameterSchema `json:"runner_parameters,omitempty"`
	RunnerModule     string                 `json:"runner_module"`
	Registered       bool                   `json:"registered"`
}

func (api *actiondAPI) handleListActions(w http.ResponseWriter, r *http.Request) {
	filter := repo.ActionFilter{Pack: r.URL.Query().Get("pack")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			api.writeError(w, r, http.StatusBadRequest, "invalid_limit", nil)
			return
		}
		filter.Limit = limit
	}

	actions, err := api.registry.ListActions(r.Context(), filter)
	if err != nil {
		api.logger.Error("action list failed", "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	items := make([]actionResponse, 0, len(actions))
	for _, action := range actions {
		items = append(items, toActionResponse(action))
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"actions": items})
}

func (api *actiondAPI) handleGetAction(w http.ResponseWriter, r *http.Request) {
	ref, err := domain.ParseActionReference(r.PathValue("action_ref"))
	if err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_action_ref", err.Error())
		return
	}

	action, err := api.registry.ResolveAction(r.Context(), ref)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			api.writeError(w, r, http.StatusNotFound, "action_not_found", nil)
			return
		}
		api.logger.Error("action lookup failed", "action", ref.String(), "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}
	api.writeJSON(w, http.StatusOK, toActionResponse(action))
}

func (api *actiondAPI) handleListRunnerTypes(w http.ResponseWriter, r *http.Request) {
	runnerTypes, err := api.registry.ListRunnerTypes(r.Context(), repo.RunnerTypeFilter{})
	if err != nil {
		api.logger.Error("runner type list failed", "error", err)
		api.writeError(w, r, http.StatusInternalServerError, "internal_error", nil)
		return
	}

	registered := make(map[string]bool)
	for _, module := range api.container.Modules() {
		registered[module] = true
	}

	items := make([]runnerTypeResponse, 0, len(runnerTypes))
	for _, rt := range runnerTypes {
		items = append(items, runnerTypeResponse{
			Name:             rt.Name,
			Description:      rt.Description,
			Enabled:          rt.Enabled,
			RunnerParameters: rt.RunnerParameters,
			RunnerModule:     rt.RunnerModule,
			Registered:       registered[rt.RunnerModule],
		})
	}
	api.writeJSON(w, http.StatusOK, map[string]any{"runner_types": items})
}
