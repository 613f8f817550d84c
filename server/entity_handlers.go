package server

import (
	"net/http"

	"cuetrainer/core/library"
	"cuetrainer/model"

	"github.com/gorilla/mux"
)

// ========== 阶段 ==========

// phaseRequest accepts timings either as numbers or as the comma separated
// text typed into the editor.
type phaseRequest struct {
	model.Phase
	ExactTimingsText map[string]string `json:"exactTimingsText,omitempty"`
}

func (req *phaseRequest) toPhase() model.Phase {
	p := req.Phase
	if len(req.ExactTimingsText) > 0 {
		timings := p.ExactTimings.Clone()
		if timings == nil {
			timings = model.TimingMap{}
		}
		for id, text := range req.ExactTimingsText {
			timings[id] = library.ParseTimings(text)
		}
		p.ExactTimings = timings
	}
	return p
}

// phaseView echoes the timings back in the editor's text form.
type phaseView struct {
	*model.Phase
	ExactTimingsText map[string]string `json:"exactTimingsText,omitempty"`
}

func newPhaseView(p *model.Phase) phaseView {
	v := phaseView{Phase: p}
	if len(p.ExactTimings) > 0 {
		v.ExactTimingsText = make(map[string]string, len(p.ExactTimings))
		for id, timings := range p.ExactTimings {
			v.ExactTimingsText[id] = library.FormatTimings(timings)
		}
	}
	return v
}

func (h *APIHandler) ListPhasesHandler(w http.ResponseWriter, r *http.Request) {
	phases := h.library.Phases()
	views := make([]phaseView, len(phases))
	for i, p := range phases {
		views[i] = newPhaseView(p)
	}
	writeData(w, views)
}

func (h *APIHandler) CreatePhaseHandler(w http.ResponseWriter, r *http.Request) {
	var req phaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.library.CreatePhase(req.toPhase())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "data": newPhaseView(p)})
}

func (h *APIHandler) UpdatePhaseHandler(w http.ResponseWriter, r *http.Request) {
	var req phaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.library.UpdatePhase(mux.Vars(r)["id"], req.toPhase())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, newPhaseView(p))
}

func (h *APIHandler) DeletePhaseHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.library.DeletePhase(mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Phase deleted")
}

// ========== 练习 ==========

// ListExercisesHandler supports ?favorites=true.
func (h *APIHandler) ListExercisesHandler(w http.ResponseWriter, r *http.Request) {
	writeData(w, h.library.Exercises(r.URL.Query().Get("favorites") == "true"))
}

func (h *APIHandler) CreateExerciseHandler(w http.ResponseWriter, r *http.Request) {
	var in model.Exercise
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.library.CreateExercise(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "data": e})
}

func (h *APIHandler) UpdateExerciseHandler(w http.ResponseWriter, r *http.Request) {
	var in model.Exercise
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.library.UpdateExercise(mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, e)
}

func (h *APIHandler) DeleteExerciseHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.library.DeleteExercise(mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Exercise deleted")
}

func (h *APIHandler) ToggleExerciseFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	e, err := h.library.ToggleExerciseFavorite(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, e)
}

// ========== 训练 ==========

// trainingView 带预计时长的训练
type trainingView struct {
	*model.Training
	EstimatedDuration float64 `json:"estimatedDuration"`
}

func (h *APIHandler) viewTraining(t *model.Training) trainingView {
	return trainingView{Training: t, EstimatedDuration: h.library.EstimateDuration(t)}
}

// ListTrainingsHandler supports ?favorites=true.
func (h *APIHandler) ListTrainingsHandler(w http.ResponseWriter, r *http.Request) {
	trainings := h.library.Trainings(r.URL.Query().Get("favorites") == "true")
	views := make([]trainingView, len(trainings))
	for i, t := range trainings {
		views[i] = h.viewTraining(t)
	}
	writeData(w, views)
}

func (h *APIHandler) CreateTrainingHandler(w http.ResponseWriter, r *http.Request) {
	var in model.Training
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.library.CreateTraining(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"success": true, "data": h.viewTraining(t)})
}

func (h *APIHandler) UpdateTrainingHandler(w http.ResponseWriter, r *http.Request) {
	var in model.Training
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := h.library.UpdateTraining(mux.Vars(r)["id"], in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, h.viewTraining(t))
}

func (h *APIHandler) DeleteTrainingHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.library.DeleteTraining(mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Training deleted")
}

func (h *APIHandler) ToggleTrainingFavoriteHandler(w http.ResponseWriter, r *http.Request) {
	t, err := h.library.ToggleTrainingFavorite(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, h.viewTraining(t))
}
