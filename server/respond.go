package server

import (
	"encoding/json"
	"net/http"

	"cuetrainer/core/apperr"
	"cuetrainer/logger"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Warn("写入响应失败", logger.ErrorField(err))
	}
}

func writeData(w http.ResponseWriter, data interface{}) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func writeMessage(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
	})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// writeError maps application errors to their HTTP status; anything else is a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := apperr.As(err); ok {
		writeJSON(w, e.HTTPStatus(), map[string]interface{}{
			"success": false,
			"code":    e.Code,
			"message": e.Message,
		})
		return
	}
	logger.Error("请求处理失败", logger.String("path", r.URL.Path), logger.ErrorField(err))
	writeFailure(w, http.StatusInternalServerError, "Internal server error")
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("Invalid request body")
	}
	return nil
}
