package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/obsidian-cms/obsidian/internal/api/middleware"
	"github.com/obsidian-cms/obsidian/internal/service"
)

// maxUploadBytes caps multipart memory use, not the file size itself.
const maxUploadBytes = 32 << 20

type FileHandler struct {
	fileService *service.FileService
}

func NewFileHandler(fileService *service.FileService) *FileHandler {
	return &FileHandler{fileService: fileService}
}

// Upload accepts a multipart form with a "file" part. The "overwrite" and
// "private" fields are optional booleans.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}

	part, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "A 'file' part is required", http.StatusBadRequest)
		return
	}
	defer part.Close()

	overwrite, _ := strconv.ParseBool(r.FormValue("overwrite"))
	private, _ := strconv.ParseBool(r.FormValue("private"))

	node, err := h.fileService.Upload(r.Context(), middleware.CurrentUser(r.Context()),
		header.Filename, header.Header.Get("Content-Type"), part, overwrite, private)
	if err != nil {
		writeError(w, "FileHandler.Upload", err)
		return
	}
	writeJSON(w, http.StatusCreated, nodeResponse(node))
}

func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	nodes, err := h.fileService.List(r.Context(), middleware.CurrentUser(r.Context()), limitParam(r))
	if err != nil {
		writeError(w, "FileHandler.List", err)
		return
	}
	writeJSON(w, http.StatusOK, nodeResponses(nodes))
}

func (h *FileHandler) Get(w http.ResponseWriter, r *http.Request) {
	node, err := h.fileService.Get(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "FileHandler.Get", err)
		return
	}
	writeJSON(w, http.StatusOK, nodeResponse(node))
}

// Download streams the blob back with the stored content type.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	node, rc, err := h.fileService.Open(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "FileHandler.Download", err)
		return
	}
	defer rc.Close()

	contentType := "application/octet-stream"
	if v, ok := node.Property(service.PropContentType); ok {
		if s, ok := v.(string); ok && s != "" {
			contentType = s
		}
	}
	w.Header().Set("Content-Type", contentType)
	io.Copy(w, rc)
}

func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.fileService.Delete(r.Context(), middleware.CurrentUser(r.Context()), chi.URLParam(r, "name")); err != nil {
		writeError(w, "FileHandler.Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
