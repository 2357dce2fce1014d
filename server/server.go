package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"LabelDesk/logger"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires every API route. registry may be nil, in which case
// /metrics is not served.
func NewRouter(h *APIHandler, registry *prometheus.Registry) *mux.Router {
	router := mux.NewRouter()

	// 添加 CORS 中间件
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Max-Age", "86400") // 24 hours

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	if registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "drafts": h.drafts.count()})
	}).Methods(http.MethodGet)

	// 用户认证相关的API端点
	router.HandleFunc("/api/auth/login", h.LoginHandler).Methods(http.MethodPost)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(h.AuthMiddleware)

	api.HandleFunc("/user/profile", h.GetUserProfileHandler).Methods(http.MethodGet)

	// 厂牌
	api.HandleFunc("/labels/tree", h.GetLabelTreeHandler).Methods(http.MethodGet)
	api.HandleFunc("/labels", h.CreateLabelHandler).Methods(http.MethodPost)
	api.HandleFunc("/labels/{id}", h.UpdateLabelHandler).Methods(http.MethodPatch)
	api.HandleFunc("/labels/{id}", h.DeleteLabelHandler).Methods(http.MethodDelete)
	api.HandleFunc("/labels/{id}/parent", h.ReparentLabelHandler).Methods(http.MethodPut)
	api.HandleFunc("/labels/{id}/artists", h.GetLabelArtistsHandler).Methods(http.MethodGet)

	// 艺人
	api.HandleFunc("/artists", h.CreateArtistHandler).Methods(http.MethodPost)
	api.HandleFunc("/artists/{id}", h.UpdateArtistHandler).Methods(http.MethodPatch)
	api.HandleFunc("/artists/{id}", h.DeleteArtistHandler).Methods(http.MethodDelete)
	api.HandleFunc("/artists/{id}/lock", h.GetArtistLockHandler).Methods(http.MethodGet)

	// 发行与审核队列
	api.HandleFunc("/releases", h.GetReleasesHandler).Methods(http.MethodGet)
	api.HandleFunc("/releases/{id}", h.GetReleaseHandler).Methods(http.MethodGet)
	api.HandleFunc("/releases/{id}/transitions", h.TransitionHandler).Methods(http.MethodPost)
	api.HandleFunc("/queues/incoming", h.IncomingQueueHandler).Methods(http.MethodGet)
	api.HandleFunc("/queues/corrections", h.CorrectionQueueHandler).Methods(http.MethodGet)

	// 草稿与资源暂存
	api.HandleFunc("/drafts", h.CreateDraftHandler).Methods(http.MethodPost)
	api.HandleFunc("/drafts/{id}", h.GetDraftHandler).Methods(http.MethodGet)
	api.HandleFunc("/drafts/{id}", h.UpdateDraftHandler).Methods(http.MethodPut)
	api.HandleFunc("/drafts/{id}", h.DiscardDraftHandler).Methods(http.MethodDelete)
	api.HandleFunc("/drafts/{id}/tracks", h.AddTrackHandler).Methods(http.MethodPost)
	api.HandleFunc("/drafts/{id}/tracks/{index}", h.RemoveTrackHandler).Methods(http.MethodDelete)
	api.HandleFunc("/drafts/{id}/tracks/{index}/audio", h.UploadAudioHandler).Methods(http.MethodPost)
	api.HandleFunc("/drafts/{id}/artwork", h.UploadArtworkHandler).Methods(http.MethodPost)
	api.HandleFunc("/drafts/{id}/commit", h.CommitDraftHandler).Methods(http.MethodPost)
	api.HandleFunc("/drafts/{id}/commit/ws", h.CommitDraftWSHandler).Methods(http.MethodGet)

	return router
}

// Run serves handler on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, handler http.Handler) error {
	// 设置服务器超时. Uploads and websocket commits may run long, so no write timeout.
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("服务器启动", logger.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("正在关闭服务器...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("服务器已停止")
	return nil
}
