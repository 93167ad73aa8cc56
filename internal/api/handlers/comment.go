package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/obsidian-cms/obsidian/internal/api/middleware"
	"github.com/obsidian-cms/obsidian/internal/service"
)

type CommentHandler struct {
	commentService *service.CommentService
}

func NewCommentHandler(commentService *service.CommentService) *CommentHandler {
	return &CommentHandler{commentService: commentService}
}

type CreateCommentRequest struct {
	Target      string   `json:"target"`
	Text        string   `json:"text"`
	Attachments []string `json:"attachments,omitempty"`
}

type UpdateCommentRequest struct {
	Text string `json:"text"`
}

// CommentResponse carries a comment with its attached files inlined.
type CommentResponse struct {
	NodeResponse
	Attachments []NodeResponse `json:"attachments,omitempty"`
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Target == "" || req.Text == "" {
		http.Error(w, "Target and text are required", http.StatusBadRequest)
		return
	}

	comment, err := h.commentService.Create(r.Context(), middleware.CurrentUser(r.Context()), req.Target, req.Text, req.Attachments)
	if err != nil {
		writeError(w, "CommentHandler.Create", err)
		return
	}
	writeJSON(w, http.StatusCreated, nodeResponse(comment))
}

// ListFor returns the comments anchored to a node.
func (h *CommentHandler) ListFor(w http.ResponseWriter, r *http.Request) {
	comments, err := h.commentService.ListFor(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, "CommentHandler.ListFor", err)
		return
	}
	writeJSON(w, http.StatusOK, nodeResponses(comments))
}

func (h *CommentHandler) Get(w http.ResponseWriter, r *http.Request) {
	comment, attachments, err := h.commentService.Get(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid"))
	if err != nil {
		writeError(w, "CommentHandler.Get", err)
		return
	}
	writeJSON(w, http.StatusOK, CommentResponse{
		NodeResponse: nodeResponse(comment),
		Attachments:  nodeResponses(attachments),
	})
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	comment, err := h.commentService.Update(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid"), req.Text)
	if err != nil {
		writeError(w, "CommentHandler.Update", err)
		return
	}
	writeJSON(w, http.StatusOK, nodeResponse(comment))
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.commentService.Delete(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "uuid")); err != nil {
		writeError(w, "CommentHandler.Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
