package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/eugenenazirov/modelcfg/internal/assets"
	"github.com/eugenenazirov/modelcfg/internal/config"
)

type contextKey string

const requestIDContextKey contextKey = "requestID"

// Handler exposes the loaded settings and the model inventory over HTTP.
type Handler struct {
	settings     config.Settings
	settingsETag string
	inventory    assets.Inventory

	clock func() time.Time
}

// HandlerOption configures Handler behaviour.
type HandlerOption func(*Handler)

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) HandlerOption {
	return func(h *Handler) {
		h.clock = clock
	}
}

// NewHandler constructs a Handler with the provided dependencies.
func NewHandler(settings config.Settings, inventory assets.Inventory, opts ...HandlerOption) *Handler {
	h := &Handler{
		settings:  settings,
		inventory: inventory,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	h.settingsETag = settingsETag(settings)
	return h
}

// settingsETag fingerprints the settings; they never change for the life of
// the process, so the tag is computed once.
func settingsETag(settings config.Settings) string {
	sum := sha256.New()
	for _, kv := range settings.Environ() {
		sum.Write([]byte(kv))
		sum.Write([]byte{0})
	}
	return `"` + hex.EncodeToString(sum.Sum(nil)[:12]) + `"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	_ = r
	resp := healthResponse{
		Status:    "ok",
		Timestamp: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("ETag", h.settingsETag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, h.settingsETag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, h.settings)
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == etag {
			return true
		}
	}
	return false
}

func (h *Handler) handleGetModels(w http.ResponseWriter, r *http.Request) {
	_ = r
	if err := h.inventory.Refresh(); err != nil {
		writeInternalError(w, err)
		return
	}

	list, err := h.inventory.Assets()
	if err != nil {
		writeInternalError(w, err)
		return
	}

	resp := modelsResponse{
		Models:    list,
		Missing:   len(assets.Missing(list)),
		CheckedAt: h.clock(),
	}
	writeJSON(w, http.StatusOK, resp)
}

func requestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDContextKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

type modelsResponse struct {
	Models    []assets.Asset `json:"models"`
	Missing   int            `json:"missing"`
	CheckedAt time.Time      `json:"checkedAt"`
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if status != 0 {
		w.WriteHeader(status)
	}
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, errorResponse{
		Error:   message,
		Details: details,
	})
}

func writeInternalError(w http.ResponseWriter, err error) {
	writeError(w, http.StatusInternalServerError, "Internal error", err.Error())
}
