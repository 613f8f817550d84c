package server

import (
	"fmt"
	"net/http"
	"time"

	"cuetrainer/core/apperr"
	"cuetrainer/core/history"
	"cuetrainer/logger"

	"github.com/gorilla/mux"
)

// ListHistoryHandler returns history grouped by day and training.
func (h *APIHandler) ListHistoryHandler(w http.ResponseWriter, r *http.Request) {
	groups := h.history.Groups()
	if groups == nil {
		groups = []history.Group{}
	}
	writeData(w, groups)
}

// DeleteHistoryHandler 删除单条记录
func (h *APIHandler) DeleteHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.library.DeleteHistory(mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "History entry deleted")
}

// DeleteHistoryGroupHandler deletes every entry of ?date=&trainingId=.
func (h *APIHandler) DeleteHistoryGroupHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, trainingID := q.Get("date"), q.Get("trainingId")
	if date == "" || trainingID == "" {
		writeError(w, r, apperr.Validation("date and trainingId are required"))
		return
	}
	n, err := h.history.DeleteGroup(date, trainingID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, map[string]int{"deleted": n})
}

// ExportHistoryHandler 导出训练记录为 xlsx
func (h *APIHandler) ExportHistoryHandler(w http.ResponseWriter, r *http.Request) {
	filename := fmt.Sprintf("training-history-%s.xlsx", time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := history.WriteWorkbook(w, h.history.Groups()); err != nil {
		logger.Error("导出训练记录失败", logger.ErrorField(err))
	}
}
