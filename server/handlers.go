package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"LabelDesk/config"
	"LabelDesk/core/lifecycle"
	"LabelDesk/core/roster"
	"LabelDesk/core/staging"
	"LabelDesk/errs"
	"LabelDesk/logger"
	"LabelDesk/repository"
)

// APIHandler 处理所有API请求
type APIHandler struct {
	store    *repository.Store
	roster   *roster.Service
	releases *lifecycle.Controller
	pipeline *staging.Pipeline
	drafts   *draftRegistry
	cfg      *config.Config
	tokenTTL time.Duration
}

// NewAPIHandler 创建新的API处理器
func NewAPIHandler(
	store *repository.Store,
	rosterSvc *roster.Service,
	releases *lifecycle.Controller,
	pipeline *staging.Pipeline,
	cfg *config.Config,
) *APIHandler {
	ttl := time.Duration(cfg.JWTTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &APIHandler{
		store:    store,
		roster:   rosterSvc,
		releases: releases,
		pipeline: pipeline,
		drafts:   newDraftRegistry(cfg.StagingDir),
		cfg:      cfg,
		tokenTTL: ttl,
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string      `json:"error"`
	Field string      `json:"field,omitempty"`
	Lock  *lockDetail `json:"lock,omitempty"`
}

type lockDetail struct {
	Entity       string `json:"entity"`
	EntityID     string `json:"entityId"`
	ArtistID     string `json:"artistId,omitempty"`
	ReleaseID    string `json:"releaseId"`
	ReleaseTitle string `json:"releaseTitle"`
	Status       string `json:"status"`
}

// statusFor maps an error category to its HTTP status.
func statusFor(err error) int {
	switch {
	case errs.IsValidation(err):
		return http.StatusBadRequest
	case errs.IsAuthorization(err):
		return http.StatusForbidden
	case errs.IsIntegrityLock(err):
		return http.StatusConflict
	case errs.IsNotFound(err):
		return http.StatusNotFound
	case errs.IsUpstream(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("写入响应失败", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var verr *errs.ValidationError
	if errors.As(err, &verr) {
		body.Field = verr.Field
	}
	var lock *errs.IntegrityLockError
	if errors.As(err, &lock) {
		body.Lock = &lockDetail{
			Entity:       lock.Entity,
			EntityID:     lock.EntityID,
			ArtistID:     lock.ArtistID,
			ReleaseID:    lock.ReleaseID,
			ReleaseTitle: lock.ReleaseTitle,
			Status:       lock.Status,
		}
	}

	if status >= http.StatusInternalServerError {
		logger.Error("请求处理失败",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.ErrorField(err))
	} else {
		logger.Debug("请求被拒绝",
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.ErrorField(err))
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Validation("body", "invalid request body: %v", err)
	}
	return nil
}
