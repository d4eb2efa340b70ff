package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path"

	"github.com/bocklabs/bockscraper/internal/cache"
	"github.com/bocklabs/bockscraper/internal/storage"
)

// StorageHandler serves bucket browsing and object download.
type StorageHandler struct {
	store storage.Store
	cache cache.Cache
}

// NewStorageHandler creates a new StorageHandler
func NewStorageHandler(store storage.Store, c cache.Cache) *StorageHandler {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	return &StorageHandler{store: store, cache: c}
}

type listRequest struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

type listResponse struct {
	Folders []storage.FolderInfo `json:"folders"`
	Files   []storage.FileInfo   `json:"files"`
}

// List handles POST /api/v1/storage/list: the folders and files one level
// under a prefix. Responses are cached briefly; pollers refresh every few
// seconds and listings are the most expensive storage calls we make.
func (h *StorageHandler) List(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Bucket == "" {
		RenderError(w, http.StatusBadRequest, "bucket is required")
		return
	}

	key := cache.BrowseKey(req.Bucket, req.Prefix)
	if cached, err := h.cache.Get(r.Context(), key); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(cached)
		return
	}

	folders, files, err := h.store.Browse(r.Context(), req.Bucket, req.Prefix)
	if err != nil {
		RenderError(w, http.StatusBadRequest, fmt.Sprintf("failed to list bucket: %v", err))
		return
	}
	if folders == nil {
		folders = []storage.FolderInfo{}
	}
	if files == nil {
		files = []storage.FileInfo{}
	}

	resp := listResponse{Folders: folders, Files: files}
	body, err := json.Marshal(resp)
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := h.cache.Set(r.Context(), key, body, cache.TTLBrowse); err != nil {
		log.Printf("[Storage] WARNING: failed to cache listing: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

type downloadRequest struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
}

// Download handles POST /api/v1/storage/download: streams object bytes with
// an attachment disposition.
func (h *StorageHandler) Download(w http.ResponseWriter, r *http.Request) {
	var req downloadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Bucket == "" || req.Key == "" {
		RenderError(w, http.StatusBadRequest, "bucket and key are required")
		return
	}

	data, contentType, err := h.store.Get(r.Context(), req.Bucket, req.Key)
	if err != nil {
		RenderError(w, http.StatusBadRequest, fmt.Sprintf("failed to download %s: %v", req.Key, err))
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", path.Base(req.Key)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
