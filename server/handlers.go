package server

import (
	"context"
	"io"
	"net/http"
	"strings"

	"cuetrainer/core/apperr"
	"cuetrainer/core/auth"
	"cuetrainer/core/history"
	"cuetrainer/core/library"
	"cuetrainer/core/scheduler"
	"cuetrainer/core/status"
	"cuetrainer/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// maxUploadSize 录音与导入文件的大小上限
const maxUploadSize = 64 << 20

// HealthCheck reports the state of one backing service.
type HealthCheck func(ctx context.Context) error

// APIHandler 处理所有API请求
type APIHandler struct {
	library   *library.Library
	scheduler *scheduler.Scheduler
	board     *status.Board
	history   *history.Service
	auth      *auth.Manager
	checks    map[string]HealthCheck
	upgrader  websocket.Upgrader
}

// NewAPIHandler 创建新的API处理器; authManager may be nil to disable auth.
func NewAPIHandler(lib *library.Library, sched *scheduler.Scheduler, board *status.Board, hist *history.Service, authManager *auth.Manager) *APIHandler {
	return &APIHandler{
		library:   lib,
		scheduler: sched,
		board:     board,
		history:   hist,
		auth:      authManager,
		checks:    make(map[string]HealthCheck),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// AddHealthCheck registers a named dependency probe for /api/health.
func (h *APIHandler) AddHealthCheck(name string, check HealthCheck) {
	h.checks[name] = check
}

// ========== 录音 ==========

// ListRecordingsHandler lists recordings, optionally filtered by ?label=.
func (h *APIHandler) ListRecordingsHandler(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.library.Recordings(r.URL.Query().Get("label")))
}

// CaptureRecordingHandler accepts a multipart "audio" file or a raw audio body.
func (h *APIHandler) CaptureRecordingHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var (
		data     []byte
		mimeType string
		err      error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		file, header, ferr := r.FormFile("audio")
		if ferr != nil {
			writeError(w, r, apperr.Capture("Please attach the recording as \"audio\"", ferr))
			return
		}
		defer file.Close()
		data, err = io.ReadAll(file)
		mimeType = header.Header.Get("Content-Type")
	} else {
		data, err = io.ReadAll(r.Body)
		mimeType = r.Header.Get("Content-Type")
	}
	if err != nil {
		writeError(w, r, apperr.Capture("Could not read recording", err))
		return
	}
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}

	rec, err := h.library.Capture(r.Context(), data, mimeType)
	if err != nil {
		h.board.Error(apperr.Message(err))
		writeError(w, r, err)
		return
	}
	h.board.Success("Recording saved")
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "data": rec})
}

type updateRecordingRequest struct {
	Name        *string   `json:"name"`
	Labels      *[]string `json:"labels"`
	AddLabel    string    `json:"addLabel"`
	RemoveLabel string    `json:"removeLabel"`
}

// UpdateRecordingHandler renames a recording and edits its labels.
func (h *APIHandler) UpdateRecordingHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req updateRecordingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	rec, ok := h.library.Recording(id)
	if !ok {
		writeError(w, r, apperr.NotFound("recording", id))
		return
	}
	var err error
	if req.Name != nil {
		if rec, err = h.library.RenameRecording(id, *req.Name); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.Labels != nil {
		if rec, err = h.library.SetLabels(id, *req.Labels); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.AddLabel != "" {
		if rec, err = h.library.AddLabel(id, req.AddLabel); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if req.RemoveLabel != "" {
		if rec, err = h.library.RemoveLabel(id, req.RemoveLabel); err != nil {
			writeError(w, r, err)
			return
		}
	}
	writeData(w, rec)
}

// DeleteRecordingHandler 删除录音
func (h *APIHandler) DeleteRecordingHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.library.DeleteRecording(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Recording deleted")
}

// RecordingAudioHandler streams the stored payload.
func (h *APIHandler) RecordingAudioHandler(w http.ResponseWriter, r *http.Request) {
	data, mimeType, err := h.library.Audio(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		logger.Warn("写入音频失败", logger.ErrorField(err))
	}
}

// ListLabelsHandler 列出所有标签
func (h *APIHandler) ListLabelsHandler(w http.ResponseWriter, r *http.Request) {
	labels := h.library.Labels()
	if labels == nil {
		labels = []string{}
	}
	writeData(w, labels)
}

// HealthHandler reports library counts and the state of every backing service.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	services := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			services[name] = err.Error()
			healthy = false
			continue
		}
		services[name] = "ok"
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"success": healthy,
		"data": map[string]interface{}{
			"services": services,
			"counts":   h.library.Counts(),
			"state":    h.scheduler.State(),
			"watchers": h.scheduler.Watchers(),
		},
	})
}
