package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/obsidian-cms/obsidian/internal/api/middleware"
	"github.com/obsidian-cms/obsidian/internal/service"
)

type PageHandler struct {
	pageService *service.PageService
}

func NewPageHandler(pageService *service.PageService) *PageHandler {
	return &PageHandler{pageService: pageService}
}

type CreatePageRequest struct {
	Title   string `json:"title"`
	Body    string `json:"body"`
	Private bool   `json:"private,omitempty"`
}

type UpdatePageRequest struct {
	Properties map[string]any `json:"properties"`
}

type AddURLRequest struct {
	URL string `json:"url"`
}

type RelinkRequest struct {
	URL  string `json:"url"`
	Page string `json:"page"`
}

func (h *PageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Title == "" {
		http.Error(w, "Title is required", http.StatusBadRequest)
		return
	}

	page, err := h.pageService.Create(r.Context(), middleware.CurrentUser(r.Context()), req.Title, req.Body, req.Private)
	if err != nil {
		writeError(w, "PageHandler.Create", err)
		return
	}
	writeJSON(w, http.StatusCreated, nodeResponse(page))
}

func (h *PageHandler) List(w http.ResponseWriter, r *http.Request) {
	pages, err := h.pageService.List(r.Context(), middleware.CurrentUser(r.Context()), limitParam(r))
	if err != nil {
		writeError(w, "PageHandler.List", err)
		return
	}
	writeJSON(w, http.StatusOK, nodeResponses(pages))
}

func (h *PageHandler) GetByTitle(w http.ResponseWriter, r *http.Request) {
	page, err := h.pageService.GetByTitle(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "title"))
	if err != nil {
		writeError(w, "PageHandler.GetByTitle", err)
		return
	}
	writeJSON(w, http.StatusOK, nodeResponse(page))
}

// Resolve serves the page a URL address points at. The address arrives in
// the "url" query parameter so slashes survive routing.
func (h *PageHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("url")
	if address == "" {
		http.Error(w, "Query parameter 'url' is required", http.StatusBadRequest)
		return
	}

	page, err := h.pageService.Resolve(r.Context(), middleware.CurrentUser(r.Context()), address)
	if err != nil {
		writeError(w, "PageHandler.Resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, nodeResponse(page))
}

func (h *PageHandler) AddURL(w http.ResponseWriter, r *http.Request) {
	var req AddURLRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" {
		http.Error(w, "URL is required", http.StatusBadRequest)
		return
	}

	urlNode, err := h.pageService.AddURL(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid"), req.URL)
	if err != nil {
		writeError(w, "PageHandler.AddURL", err)
		return
	}
	writeJSON(w, http.StatusCreated, nodeResponse(urlNode))
}

func (h *PageHandler) Relink(w http.ResponseWriter, r *http.Request) {
	var req RelinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.URL == "" || req.Page == "" {
		http.Error(w, "URL and page are required", http.StatusBadRequest)
		return
	}

	if err := h.pageService.Relink(r.Context(), middleware.CurrentUser(r.Context()), req.URL, req.Page); err != nil {
		writeError(w, "PageHandler.Relink", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PageHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdatePageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	page, err := h.pageService.Update(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid"), req.Properties)
	if err != nil {
		writeError(w, "PageHandler.Update", err)
		return
	}
	writeJSON(w, http.StatusOK, nodeResponse(page))
}

func (h *PageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.pageService.Delete(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid")); err != nil {
		writeError(w, "PageHandler.Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
