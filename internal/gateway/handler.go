// Copyright 2026 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gateway exposes the dictionary catalog over HTTP.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path"
	"strconv"

	"github.com/ianlewis/sdcatalog/internal/ctxlog"
	"github.com/ianlewis/sdcatalog/internal/identity"
	"github.com/ianlewis/sdcatalog/internal/indexer"
	"github.com/ianlewis/sdcatalog/internal/lifecycle"
	"github.com/ianlewis/sdcatalog/internal/render"
	"github.com/ianlewis/sdcatalog/internal/userdata"
)

// Description is returned by the root endpoint.
const Description = "sdcatalog dictionary server"

// Error codes.
const (
	CodeDictionaryNotFound = "dictionary_not_found"
	CodeEntryNotFound      = "entry_not_found"
	CodeResourceNotFound   = "resource_not_found"
	CodeSettingNotFound    = "setting_not_found"
	CodeBadRequest         = "bad_request"
	CodeInternal           = "internal_error"
)

// Dictionaries is the catalog served by the gateway.
type Dictionaries interface {
	Discover(ctx context.Context, root string, rebuild bool) ([]lifecycle.Result, error)
	Add(ctx context.Context, path string, rebuild bool) (lifecycle.Result, error)
	List() []lifecycle.Summary
	Delete(ctx context.Context, id identity.ID) error
	Activate(ctx context.Context, id identity.ID) error
	Deactivate(ctx context.Context, id identity.ID) error
	Lookup(ctx context.Context, id identity.ID, key string) ([]*indexer.Entry, error)
	FetchResource(ctx context.Context, id identity.ID, name string) ([]byte, error)
}

// FavoriteStore stores favorite words.
type FavoriteStore interface {
	List(ctx context.Context) ([]userdata.Favorite, error)
	Add(ctx context.Context, words ...string) error
	Delete(ctx context.Context, words ...string) error
}

// SettingStore stores application settings.
type SettingStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Handler provides the HTTP endpoints.
type Handler struct {
	dicts     Dictionaries
	favorites FavoriteStore
	settings  SettingStore
	logger    *slog.Logger
	version   string
}

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	// Dictionaries is the catalog (required).
	Dictionaries Dictionaries

	// Favorites stores favorite words (required).
	Favorites FavoriteStore

	// Settings stores application settings (required).
	Settings SettingStore

	// Logger is the base request logger. Defaults to slog.Default.
	Logger *slog.Logger

	// Version is reported by the root endpoint.
	Version string
}

// NewHandler returns a new Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		dicts:     cfg.Dictionaries,
		favorites: cfg.Favorites,
		settings:  cfg.Settings,
		logger:    logger,
		version:   cfg.Version,
	}
}

// Routes returns an http.Handler with all routes registered.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Root)
	mux.HandleFunc("GET /healthz", h.Health)

	// Dictionaries
	mux.HandleFunc("POST /api/dictionary/add", h.AddDictionary)
	mux.HandleFunc("GET /api/dictionary/list", h.ListDictionaries)
	mux.HandleFunc("DELETE /api/dictionary/{id}", h.DeleteDictionary)
	mux.HandleFunc("POST /api/dictionary/activate/{id}", h.ActivateDictionary)
	mux.HandleFunc("POST /api/dictionary/deactivate/{id}", h.DeactivateDictionary)

	// User data
	mux.HandleFunc("GET /api/favorite/list", h.ListFavorites)
	mux.HandleFunc("POST /api/favorite/{words}", h.AddFavorites)
	mux.HandleFunc("DELETE /api/favorite/{words}", h.DeleteFavorites)
	mux.HandleFunc("GET /api/app-settings/{key}", h.GetSetting)
	mux.HandleFunc("POST /api/app-settings/{key}", h.SetSetting)
	mux.HandleFunc("DELETE /api/app-settings/{key}", h.DeleteSetting)

	// Per-dictionary content
	mux.HandleFunc("GET /{id}/entry/{word}", h.Entry)
	mux.HandleFunc("GET /{id}/{path...}", h.Resource)

	return h.withRequestContext(mux)
}

// === Request/Response Types ===

// StatusResponse is returned by mutations without a result.
type StatusResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the response body for errors.
type ErrorResponse struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RootResponse is the response body of the root endpoint.
type RootResponse struct {
	Description string `json:"description"`
	Version     string `json:"version"`
}

// HealthResponse is the response body of the health endpoint.
type HealthResponse struct {
	Status       string `json:"status"`
	Dictionaries int    `json:"dictionaries"`
}

// AddRequest is the optional JSON body of the add endpoint. Query
// parameters of the same name take precedence.
type AddRequest struct {
	Path    string `json:"path"`
	Rebuild bool   `json:"rebuild"`
}

// DictionaryResponse describes a dictionary.
type DictionaryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// AddError reports a source file that could not be added.
type AddError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// AddResponse is the response body of the add endpoint.
type AddResponse struct {
	Status  string               `json:"status"`
	Results []DictionaryResponse `json:"results"`
	Errors  []AddError           `json:"errors,omitempty"`
}

// ListResponse is the response body of the list endpoint.
type ListResponse struct {
	Status  string               `json:"status"`
	Results []DictionaryResponse `json:"results"`
}

// FavoritesResponse is the response body of the favorites list endpoint.
type FavoritesResponse struct {
	Status  string              `json:"status"`
	Results []userdata.Favorite `json:"results"`
}

// SettingResponse is the response body of the settings endpoint.
type SettingResponse struct {
	Status string `json:"status"`
	Value  string `json:"value"`
}

// SettingRequest is the optional JSON body for setting a value.
type SettingRequest struct {
	Value string `json:"value"`
}

var statusOK = StatusResponse{Status: "ok"}

// === Handlers ===

// Root describes the service.
// GET /
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(r.Context(), w, http.StatusOK, RootResponse{
		Description: Description,
		Version:     h.version,
	})
}

// Health reports service health.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(r.Context(), w, http.StatusOK, HealthResponse{
		Status:       "ok",
		Dictionaries: len(h.dicts.List()),
	})
}

// isJSON reports whether the request body is JSON. Media type parameters
// such as charset are ignored.
func isJSON(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// AddDictionary registers a source file or every source file under a
// directory. Dictionaries that were already registered are not reported.
// POST /api/dictionary/add
func (h *Handler) AddDictionary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req AddRequest
	if r.Body != nil && r.ContentLength != 0 && isJSON(r) {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(ctx, w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
			return
		}
	}
	q := r.URL.Query()
	if p := q.Get("path"); p != "" {
		req.Path = p
	}
	if rb := q.Get("rebuild"); rb != "" {
		v, err := strconv.ParseBool(rb)
		if err != nil {
			h.writeError(ctx, w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid rebuild value %q", rb))
			return
		}
		req.Rebuild = v
	}
	if req.Path == "" {
		h.writeError(ctx, w, http.StatusBadRequest, CodeBadRequest, "path is required")
		return
	}

	var results []lifecycle.Result
	info, err := os.Stat(req.Path)
	switch {
	case err != nil:
		h.writeError(ctx, w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	case info.IsDir():
		results, err = h.dicts.Discover(ctx, req.Path, req.Rebuild)
		if err != nil {
			h.writeError(ctx, w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
	default:
		res, err := h.dicts.Add(ctx, req.Path, req.Rebuild)
		if errors.Is(err, lifecycle.ErrNotDictionary) {
			h.writeError(ctx, w, http.StatusBadRequest, CodeBadRequest, err.Error())
			return
		}
		results = append(results, res)
	}

	resp := AddResponse{
		Status:  "ok",
		Results: []DictionaryResponse{},
	}
	for _, res := range results {
		switch {
		case res.Err != nil:
			resp.Errors = append(resp.Errors, AddError{Path: res.Path, Error: res.Err.Error()})
		case !res.Skipped:
			resp.Results = append(resp.Results, DictionaryResponse{
				ID:   res.ID.String(),
				Name: res.Name,
				Path: res.Path,
			})
		}
	}
	h.writeJSON(ctx, w, http.StatusOK, resp)
}

// ListDictionaries lists active dictionaries.
// GET /api/dictionary/list
func (h *Handler) ListDictionaries(w http.ResponseWriter, r *http.Request) {
	resp := ListResponse{
		Status:  "ok",
		Results: []DictionaryResponse{},
	}
	for _, s := range h.dicts.List() {
		resp.Results = append(resp.Results, DictionaryResponse{
			ID:   s.ID.String(),
			Name: s.Name,
			Path: s.Path,
		})
	}
	h.writeJSON(r.Context(), w, http.StatusOK, resp)
}

// DeleteDictionary unregisters a dictionary.
// DELETE /api/dictionary/{id}
func (h *Handler) DeleteDictionary(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.dicts.Delete)
}

// ActivateDictionary marks a dictionary active.
// POST /api/dictionary/activate/{id}
func (h *Handler) ActivateDictionary(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.dicts.Activate)
}

// DeactivateDictionary marks a dictionary inactive.
// POST /api/dictionary/deactivate/{id}
func (h *Handler) DeactivateDictionary(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.dicts.Deactivate)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, fn func(context.Context, identity.ID) error) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := fn(ctx, id); err != nil {
		h.writeDictError(ctx, w, err, "")
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, statusOK)
}

// ListFavorites lists favorite words.
// GET /api/favorite/list
func (h *Handler) ListFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	favs, err := h.favorites.List(ctx)
	if err != nil {
		h.writeInternalError(ctx, w, err)
		return
	}
	if favs == nil {
		favs = []userdata.Favorite{}
	}
	h.writeJSON(ctx, w, http.StatusOK, FavoritesResponse{Status: "ok", Results: favs})
}

// AddFavorites adds comma separated words to the favorites.
// POST /api/favorite/{words}
func (h *Handler) AddFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.favorites.Add(ctx, userdata.SplitWords(r.PathValue("words"))...); err != nil {
		h.writeInternalError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, statusOK)
}

// DeleteFavorites removes comma separated words from the favorites.
// DELETE /api/favorite/{words}
func (h *Handler) DeleteFavorites(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.favorites.Delete(ctx, userdata.SplitWords(r.PathValue("words"))...); err != nil {
		h.writeInternalError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, statusOK)
}

// GetSetting returns a setting.
// GET /api/app-settings/{key}
func (h *Handler) GetSetting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	value, err := h.settings.Get(ctx, r.PathValue("key"))
	if errors.Is(err, userdata.ErrNotFound) {
		h.writeError(ctx, w, http.StatusNotFound, CodeSettingNotFound, "no such key found.")
		return
	}
	if err != nil {
		h.writeInternalError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, SettingResponse{Status: "ok", Value: value})
}

// SetSetting sets a setting. The value is read from the "value" query or
// form parameter, or from a JSON body.
// POST /api/app-settings/{key}
func (h *Handler) SetSetting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var value string
	var found bool
	if isJSON(r) {
		var req SettingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.writeError(ctx, w, http.StatusBadRequest, CodeBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
			return
		}
		value, found = req.Value, true
	} else if err := r.ParseForm(); err == nil && r.Form.Has("value") {
		value, found = r.Form.Get("value"), true
	}
	if !found {
		h.writeError(ctx, w, http.StatusBadRequest, CodeBadRequest, "value is required")
		return
	}

	if err := h.settings.Set(ctx, r.PathValue("key"), value); err != nil {
		h.writeInternalError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, statusOK)
}

// DeleteSetting deletes a setting.
// DELETE /api/app-settings/{key}
func (h *Handler) DeleteSetting(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.settings.Delete(ctx, r.PathValue("key")); err != nil {
		h.writeInternalError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, statusOK)
}

// Entry renders the entries for a word. Inactive dictionaries are served.
// GET /{id}/entry/{word}?format=html|text
func (h *Handler) Entry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	format, err := render.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	entries, err := h.dicts.Lookup(ctx, id, r.PathValue("word"))
	if err != nil {
		h.writeDictError(ctx, w, err, CodeEntryNotFound)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if err := render.Entries(w, entries, render.Options{
		Format:       format,
		ResourceBase: "/" + id.String() + "/",
	}); err != nil {
		ctxlog.FromContext(ctx).Error("writing entries", "error", err)
	}
}

// Resource serves a resource file of a dictionary.
// GET /{id}/{path...}
func (h *Handler) Resource(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	name := r.PathValue("path")

	b, err := h.dicts.FetchResource(ctx, id, name)
	if err != nil {
		h.writeDictError(ctx, w, err, CodeResourceNotFound)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = http.DetectContentType(b)
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		ctxlog.FromContext(ctx).Error("writing resource", "error", err)
	}
}

// === Helpers ===

// pathID parses the id path value. Malformed ids cannot name a registered
// dictionary and are reported as not found.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (identity.ID, bool) {
	id, err := identity.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(r.Context(), w, http.StatusNotFound, CodeDictionaryNotFound, "no such dictionary found.")
		return "", false
	}
	return id, true
}

// writeDictError maps lifecycle and index errors to responses. notFoundCode
// is used for keys or resources missing from an index.
func (h *Handler) writeDictError(ctx context.Context, w http.ResponseWriter, err error, notFoundCode string) {
	switch {
	case errors.Is(err, lifecycle.ErrDictionaryNotFound):
		h.writeError(ctx, w, http.StatusNotFound, CodeDictionaryNotFound, "no such dictionary found.")
	case notFoundCode != "" && errors.Is(err, indexer.ErrNotFoundInIndex):
		h.writeError(ctx, w, http.StatusNotFound, notFoundCode, err.Error())
	default:
		h.writeInternalError(ctx, w, err)
	}
}

func (h *Handler) writeInternalError(ctx context.Context, w http.ResponseWriter, err error) {
	ctxlog.FromContext(ctx).Error("request failed", "error", err)
	h.writeError(ctx, w, http.StatusInternalServerError, CodeInternal, err.Error())
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		ctxlog.FromContext(ctx).Error("failed to encode JSON response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, status int, code, message string) {
	h.writeJSON(ctx, w, status, ErrorResponse{
		Status:  "error",
		Code:    code,
		Message: message,
	})
}
