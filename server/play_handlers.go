package server

import (
	"net/http"

	"cuetrainer/core/scheduler"

	"github.com/gorilla/mux"
)

// PlayHandler starts a phase, exercise or training. The run continues after
// the response; progress is read from /api/play/progress or /ws/progress.
func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var (
		run *scheduler.Run
		err error
	)
	switch vars["kind"] {
	case "phase":
		run, err = h.scheduler.RunPhase(id)
	case "exercise":
		run, err = h.scheduler.RunExercise(id)
	default:
		run, err = h.scheduler.RunTraining(id)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"runId": run.ID,
			"kind":  run.Kind,
		},
	})
}

// StopHandler 停止播放
func (h *APIHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	stopped := h.scheduler.Stop()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    map[string]bool{"stopped": stopped},
	})
}

// ProgressHandler 当前播放进度
func (h *APIHandler) ProgressHandler(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.scheduler.Snapshot())
}

// StatusHandler returns the current status message, or null once it expired.
func (h *APIHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.board.Current())
}
