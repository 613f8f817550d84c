package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"cuetrainer/logger"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

// NewRouter registers every API route on a gorilla/mux router. CORS wraps
// the whole router so preflight requests never reach method matching.
func NewRouter(h *APIHandler) http.Handler {
	router := mux.NewRouter()
	router.Use(h.AuthMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	// 录音
	api.HandleFunc("/recordings", h.ListRecordingsHandler).Methods(http.MethodGet)
	api.HandleFunc("/recordings", h.CaptureRecordingHandler).Methods(http.MethodPost)
	api.HandleFunc("/recordings/{id}", h.UpdateRecordingHandler).Methods(http.MethodPatch)
	api.HandleFunc("/recordings/{id}", h.DeleteRecordingHandler).Methods(http.MethodDelete)
	api.HandleFunc("/recordings/{id}/audio", h.RecordingAudioHandler).Methods(http.MethodGet)
	api.HandleFunc("/labels", h.ListLabelsHandler).Methods(http.MethodGet)

	// 阶段 / 练习 / 训练
	api.HandleFunc("/phases", h.ListPhasesHandler).Methods(http.MethodGet)
	api.HandleFunc("/phases", h.CreatePhaseHandler).Methods(http.MethodPost)
	api.HandleFunc("/phases/{id}", h.UpdatePhaseHandler).Methods(http.MethodPut)
	api.HandleFunc("/phases/{id}", h.DeletePhaseHandler).Methods(http.MethodDelete)

	api.HandleFunc("/exercises", h.ListExercisesHandler).Methods(http.MethodGet)
	api.HandleFunc("/exercises", h.CreateExerciseHandler).Methods(http.MethodPost)
	api.HandleFunc("/exercises/{id}", h.UpdateExerciseHandler).Methods(http.MethodPut)
	api.HandleFunc("/exercises/{id}", h.DeleteExerciseHandler).Methods(http.MethodDelete)
	api.HandleFunc("/exercises/{id}/favorite", h.ToggleExerciseFavoriteHandler).Methods(http.MethodPost)

	api.HandleFunc("/trainings", h.ListTrainingsHandler).Methods(http.MethodGet)
	api.HandleFunc("/trainings", h.CreateTrainingHandler).Methods(http.MethodPost)
	api.HandleFunc("/trainings/{id}", h.UpdateTrainingHandler).Methods(http.MethodPut)
	api.HandleFunc("/trainings/{id}", h.DeleteTrainingHandler).Methods(http.MethodDelete)
	api.HandleFunc("/trainings/{id}/favorite", h.ToggleTrainingFavoriteHandler).Methods(http.MethodPost)

	// 播放
	api.HandleFunc("/play/stop", h.StopHandler).Methods(http.MethodPost)
	api.HandleFunc("/play/progress", h.ProgressHandler).Methods(http.MethodGet)
	api.HandleFunc("/play/{kind:phase|exercise|training}/{id}", h.PlayHandler).Methods(http.MethodPost)
	api.HandleFunc("/status", h.StatusHandler).Methods(http.MethodGet)

	// 训练记录
	api.HandleFunc("/history", h.ListHistoryHandler).Methods(http.MethodGet)
	api.HandleFunc("/history/export", h.ExportHistoryHandler).Methods(http.MethodGet)
	api.HandleFunc("/history/group", h.DeleteHistoryGroupHandler).Methods(http.MethodDelete)
	api.HandleFunc("/history/{id}", h.DeleteHistoryHandler).Methods(http.MethodDelete)

	// 数据
	api.HandleFunc("/data/export", h.ExportDataHandler).Methods(http.MethodGet)
	api.HandleFunc("/data/import", h.ImportDataHandler).Methods(http.MethodPost)
	api.HandleFunc("/data", h.ClearDataHandler).Methods(http.MethodDelete)
	api.HandleFunc("/health", h.HealthHandler).Methods(http.MethodGet)

	router.HandleFunc("/ws/progress", h.ProgressStreamHandler)
	return corsMiddleware(router)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition")
		w.Header().Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run serves handler on addr and runs every background task next to it.
// It returns when ctx is cancelled or any of them fails; the server is
// shut down gracefully either way.
func Run(ctx context.Context, addr string, handler http.Handler, background ...func(ctx context.Context) error) error {
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP 服务启动", logger.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("正在关闭 HTTP 服务...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	for _, task := range background {
		task := task
		g.Go(func() error { return task(gctx) })
	}

	err := g.Wait()
	logger.Info("HTTP 服务已停止")
	return err
}
