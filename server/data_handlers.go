package server

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cuetrainer/core/apperr"
	"cuetrainer/logger"
)

// BackupFilename is the download name of a full export.
func BackupFilename(now time.Time) string {
	return fmt.Sprintf("cuetrainer-backup-%s.json", now.Format("2006-01-02"))
}

// ExportDataHandler downloads the whole library as one JSON bundle.
func (h *APIHandler) ExportDataHandler(w http.ResponseWriter, r *http.Request) {
	b, err := h.library.Export(r.Context())
	if err != nil {
		h.board.Error("Export failed")
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", BackupFilename(time.Now())))
	writeJSON(w, http.StatusOK, b)
	h.board.Success("Data exported")
}

// ImportDataHandler replaces the library with an uploaded bundle, sent either
// as the raw body or as a multipart "file".
func (h *APIHandler) ImportDataHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	var reader io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		file, _, err := r.FormFile("file")
		if err != nil {
			writeError(w, r, apperr.InvalidBundle("Please attach the backup as \"file\"", err))
			return
		}
		defer file.Close()
		reader = file
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		writeError(w, r, apperr.InvalidBundle("Could not read backup", err))
		return
	}

	h.scheduler.Stop()
	if err := h.library.Import(r.Context(), data); err != nil {
		h.board.Error(apperr.Message(err))
		writeError(w, r, err)
		return
	}
	logger.Info("数据已导入", logger.Int("bytes", len(data)))
	h.board.Success("Data imported")
	writeData(w, h.library.Counts())
}

// ClearDataHandler 清空全部数据
func (h *APIHandler) ClearDataHandler(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Stop()
	if err := h.library.Clear(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	h.board.Success("All data cleared")
	writeMessage(w, "All data cleared")
}
