// Package httpapi exposes the loopback control plane used by the
// browser extension: token deposit, token sharing between sibling
// processes, and health probes.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/ledgerly/invoice-mcp/internal/auth"
)

// Handler serves the control plane routes. Store may be nil for
// daemons without a token lifecycle (the translator); only /health is
// registered then.
type Handler struct {
	store   *auth.Store
	service string
	version string
	log     zerolog.Logger
}

// New builds the control plane router with CORS open to browser callers.
func New(store *auth.Store, service, version string, log zerolog.Logger) http.Handler {
	h := &Handler{store: store, service: service, version: version, log: log}

	r := mux.NewRouter()
	r.Use(corsMiddleware)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	if store != nil {
		r.HandleFunc("/token", h.token).Methods(http.MethodGet)
		r.HandleFunc("/gmail-authorize", h.authorize).Methods(http.MethodPost)
	}
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(preflight)
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFound)

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	var (
		valid  bool
		expiry any
	)
	if h.store != nil {
		var exp time.Time
		valid, exp = h.store.Snapshot()
		if !exp.IsZero() {
			expiry = exp.Format(time.RFC3339)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"service":     h.service,
		"version":     h.version,
		"tokenValid":  valid,
		"tokenExpiry": expiry,
	})
}

func (h *Handler) token(w http.ResponseWriter, r *http.Request) {
	value, err := h.store.Token()
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "No valid token"})
		return
	}

	_, expiry := h.store.Snapshot()

	writeJSON(w, http.StatusOK, map[string]any{
		"token":  value,
		"expiry": expiry.Format(time.RFC3339),
	})
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing token"})
		return
	}

	expiry, err := h.store.Deposit(r.Context(), body.Token)
	if err != nil {
		h.log.Warn().Err(err).Msg("Authorization deposit failed")
		status := http.StatusUnauthorized
		if !errors.Is(err, auth.ErrValidation) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, map[string]any{"error": "Token validation failed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"expiresAt": expiry.Format(time.RFC3339),
		"validated": true,
	})
}

func preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	writeJSON(w, http.StatusNotFound, map[string]any{"error": "Not found"})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORS(w)
		next.ServeHTTP(w, r)
	})
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
