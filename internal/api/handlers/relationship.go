package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/obsidian-cms/obsidian/internal/api/middleware"
	"github.com/obsidian-cms/obsidian/internal/domain"
	"github.com/obsidian-cms/obsidian/internal/service"
)

type RelationshipHandler struct {
	entityService *service.EntityService
}

func NewRelationshipHandler(entityService *service.EntityService) *RelationshipHandler {
	return &RelationshipHandler{entityService: entityService}
}

// MatchSpec identifies one endpoint of a relationship. Property defaults to
// the UUID key.
type MatchSpec struct {
	Label    string `json:"label,omitempty"`
	Property string `json:"property,omitempty"`
	Value    any    `json:"value"`
}

func (m MatchSpec) toMatch() domain.Match {
	property := m.Property
	if property == "" {
		property = domain.PropUUID
	}
	return domain.Match{Label: m.Label, Property: property, Value: m.Value}
}

type CreateRelationshipRequest struct {
	Type       string         `json:"type"`
	Source     MatchSpec      `json:"source"`
	Target     MatchSpec      `json:"target"`
	Properties map[string]any `json:"properties"`
}

type UpdateRelationshipRequest struct {
	Properties map[string]any `json:"properties"`
}

func (h *RelationshipHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Type == "" || req.Source.Value == nil || req.Target.Value == nil {
		http.Error(w, "Type, source and target are required", http.StatusBadRequest)
		return
	}

	rel, err := h.entityService.CreateRelationship(r.Context(), middleware.CurrentUser(r.Context()),
		req.Source.toMatch(), req.Target.toMatch(), req.Type, req.Properties)
	if err != nil {
		writeError(w, "RelationshipHandler.Create", err)
		return
	}
	writeJSON(w, http.StatusCreated, relationshipResponse(rel))
}

func (h *RelationshipHandler) Get(w http.ResponseWriter, r *http.Request) {
	rel, err := h.entityService.GetRelationship(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, "RelationshipHandler.Get", err)
		return
	}
	writeJSON(w, http.StatusOK, relationshipResponse(rel))
}

func (h *RelationshipHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateRelationshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	rel, err := h.entityService.UpdateRelationship(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid"), req.Properties)
	if err != nil {
		writeError(w, "RelationshipHandler.Update", err)
		return
	}
	writeJSON(w, http.StatusOK, relationshipResponse(rel))
}

func (h *RelationshipHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.entityService.DeleteRelationship(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid")); err != nil {
		writeError(w, "RelationshipHandler.Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
