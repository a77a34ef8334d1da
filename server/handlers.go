package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ashermasroor/SlowRvbBass/logger"
	"github.com/ashermasroor/SlowRvbBass/model"

	"github.com/gorilla/mux"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

const maxBodyBytes = 64 << 10

// AudioService is the processing surface the handlers drive.
type AudioService interface {
	Upload(ctx context.Context, rawURL string) (*model.SourceAsset, error)
	ApplyEffects(ctx context.Context, sourceID string, params model.EffectParameters) (*model.Variant, error)
	Stream(ctx context.Context, variantID string) (model.StorageLocation, error)
	Download(ctx context.Context, variantID string) (*model.Variant, error)
	PublicURL(variantID string) string
}

// CleanupScheduler queues local files for delayed deletion.
type CleanupScheduler interface {
	Schedule(path string) bool
}

// APIHandler handles all API requests.
type APIHandler struct {
	svc       AudioService
	cleanup   CleanupScheduler
	validator *requestValidator
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(svc AudioService, cleanup CleanupScheduler) (*APIHandler, error) {
	v, err := newRequestValidator()
	if err != nil {
		return nil, err
	}
	return &APIHandler{svc: svc, cleanup: cleanup, validator: v}, nil
}

type uploadRequest struct {
	URL string `json:"url"`
}

type uploadResponse struct {
	AudioID string `json:"audio_id"`
}

type effectsRequest struct {
	AudioID   string   `json:"audio_id"`
	Speed     *float64 `json:"speed"`
	Reverb    *float64 `json:"reverb"`
	BassBoost *bool    `json:"bass_boost"`
}

// params fills omitted fields with the no-op defaults.
func (r effectsRequest) params() model.EffectParameters {
	p := model.DefaultEffectParameters()
	if r.Speed != nil {
		p.Speed = *r.Speed
	}
	if r.Reverb != nil {
		p.Reverb = *r.Reverb
	}
	if r.BassBoost != nil {
		p.BassBoost = *r.BassBoost
	}
	return p
}

type effectsResponse struct {
	EffectsID string `json:"effects_id"`
	PublicURL string `json:"public_url"`
}

type streamResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// UploadHandler handles POST /upload.
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	var req uploadRequest
	if !h.decode(w, r, h.validator.upload, &req) {
		return
	}

	asset, err := h.svc.Upload(r.Context(), req.URL)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{AudioID: asset.ID})
}

// EffectsHandler handles POST /effects.
func (h *APIHandler) EffectsHandler(w http.ResponseWriter, r *http.Request) {
	var req effectsRequest
	if !h.decode(w, r, h.validator.effects, &req) {
		return
	}

	v, err := h.svc.ApplyEffects(r.Context(), req.AudioID, req.params())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, effectsResponse{EffectsID: v.ID, PublicURL: h.svc.PublicURL(v.ID)})

	// The durable copy is confirmed, so the local one may go.
	if v.IsPlaced() && v.LocalPath != "" {
		h.cleanup.Schedule(v.LocalPath)
	}
}

// StreamHandler handles GET /stream/{effects_id}.
func (h *APIHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["effects_id"]
	loc, err := h.svc.Stream(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if loc.IsLocal() {
		w.Header().Set("Content-Type", model.CodecMP3.ContentType())
		http.ServeFile(w, r, loc.Path)
		return
	}
	writeJSON(w, http.StatusOK, streamResponse{URL: loc.URL})
}

// DownloadHandler handles GET /download/{effects_id}.
func (h *APIHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["effects_id"]
	v, err := h.svc.Download(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", model.CodecMP3.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s%s", v.ID, model.CodecMP3.Ext()))
	http.ServeFile(w, r, v.LocalPath)

	if v.IsPlaced() {
		h.cleanup.Schedule(v.LocalPath)
	}
}

// HealthHandler handles GET /health.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// decode reads, validates and unmarshals the request body, writing a 400 on failure.
func (h *APIHandler) decode(w http.ResponseWriter, r *http.Request, schema *jsonschema.Schema, dst any) bool {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "failed to read request body")
		return false
	}
	if len(body) > maxBodyBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "invalid_request", "request body too large")
		return false
	}
	if err := validate(schema, body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return false
	}
	return true
}

// fail maps err onto the HTTP error contract and logs it.
func (h *APIHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	fields := []logger.Field{
		logger.String("requestId", requestIDFrom(r.Context())),
		logger.String("path", r.URL.Path),
		logger.Int("status", status),
		logger.ErrorField(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", fields...)
	} else {
		logger.Warn("Request rejected", fields...)
	}
	writeError(w, status, code, err.Error())
}

// statusFor is the single place errors become HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrAccessDenied):
		return http.StatusForbidden, "access_denied"
	case errors.Is(err, model.ErrUnsupportedOrigin):
		return http.StatusBadRequest, "unsupported_origin"
	case errors.Is(err, model.ErrDownloadArtifactMissing):
		return http.StatusBadRequest, "download_artifact_missing"
	case errors.Is(err, model.ErrDownloadFailed):
		return http.StatusBadRequest, "download_failed"
	case errors.Is(err, model.ErrInvalidParameters):
		return http.StatusBadRequest, "invalid_parameters"
	case errors.Is(err, model.ErrAssetNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrEffectApplication):
		return http.StatusInternalServerError, "effect_application_failed"
	case errors.Is(err, model.ErrDurableUpload):
		return http.StatusInternalServerError, "durable_upload_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
