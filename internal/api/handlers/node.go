package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/obsidian-cms/obsidian/internal/api/middleware"
	"github.com/obsidian-cms/obsidian/internal/service"
)

type NodeHandler struct {
	entityService *service.EntityService
}

func NewNodeHandler(entityService *service.EntityService) *NodeHandler {
	return &NodeHandler{entityService: entityService}
}

type CreateNodeRequest struct {
	Label      string         `json:"label"`
	Properties map[string]any `json:"properties"`
}

type UpdateNodeRequest struct {
	Properties map[string]any `json:"properties"`
}

func (h *NodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Label == "" {
		http.Error(w, "Label is required", http.StatusBadRequest)
		return
	}

	node, err := h.entityService.CreateNode(r.Context(), middleware.CurrentUser(r.Context()), req.Label, req.Properties)
	if err != nil {
		writeError(w, "NodeHandler.Create", err)
		return
	}
	writeJSON(w, http.StatusCreated, nodeResponse(node))
}

func (h *NodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	node, err := h.entityService.GetNode(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, "NodeHandler.Get", err)
		return
	}
	writeJSON(w, http.StatusOK, nodeResponse(node))
}

func (h *NodeHandler) List(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.entityService.ListNodes(r.Context(), middleware.CurrentUser(r.Context()), limitParam(r))
	if err != nil {
		writeError(w, "NodeHandler.List", err)
		return
	}
	writeJSON(w, http.StatusOK, nodeResponses(nodes))
}

// Search finds nodes by a single property equality filter.
func (h *NodeHandler) Search(w http.ResponseWriter, r *http.Request) {
	property := r.URL.Query().Get("property")
	value := r.URL.Query().Get("value")
	if property == "" {
		http.Error(w, "Query parameter 'property' is required", http.StatusBadRequest)
		return
	}

	nodes, err := h.entityService.SearchNodes(r.Context(), middleware.CurrentUser(r.Context()), property, value, limitParam(r))
	if err != nil {
		writeError(w, "NodeHandler.Search", err)
		return
	}
	writeJSON(w, http.StatusOK, nodeResponses(nodes))
}

func (h *NodeHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	node, err := h.entityService.UpdateNode(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid"), req.Properties)
	if err != nil {
		writeError(w, "NodeHandler.Update", err)
		return
	}
	writeJSON(w, http.StatusOK, nodeResponse(node))
}

func (h *NodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.entityService.DeleteNode(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid")); err != nil {
		writeError(w, "NodeHandler.Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func limitParam(r *http.Request) int {
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil {
			return limit
		}
	}
	return 0
}
