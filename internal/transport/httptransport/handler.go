package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/awmpietro/shunting-action-validator/internal/app"
	"github.com/awmpietro/shunting-action-validator/internal/logging"
	"github.com/awmpietro/shunting-action-validator/internal/transport/validatedto"
)

const maxBodyBytes = 1 << 20

type Handler struct {
	svc    app.ValidateService
	logger *slog.Logger
}

func NewHandler(svc app.ValidateService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{svc: svc, logger: logger}
}

// Router mounts the validation API. metrics may be nil.
func Router(h *Handler, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Post("/validate", h.Validate)
	r.Get("/healthz", Healthz)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	return r
}

func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var in validatedto.ValidateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, validatedto.ErrorBody("invalid json", err))
		return
	}

	req, err := in.ToRequest()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, validatedto.ErrorBody("validate failed", err))
		return
	}

	rep, err := h.svc.Validate(r.Context(), req)
	if err != nil {
		if r.Context().Err() != nil {
			// Client went away.
			return
		}
		status := validatedto.ErrorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("validate_failed", "error", err)
		}
		writeJSON(w, status, validatedto.ErrorBody("validate failed", err))
		return
	}

	writeJSON(w, http.StatusOK, validatedto.FromReport(rep, in.Debug))
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
