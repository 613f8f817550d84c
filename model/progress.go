package model

import "time"

// RunKind 播放任务类型
type RunKind string

const (
	RunKindPhase    RunKind = "phase"
	RunKindExercise RunKind = "exercise"
	RunKindTraining RunKind = "training"
)

// RunState 调度器状态
type RunState string

const (
	RunStateIdle      RunState = "idle"
	RunStateStarting  RunState = "starting"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateStopped   RunState = "stopped"
)

// Terminal reports whether the state ends a run.
func (s RunState) Terminal() bool {
	return s == RunStateCompleted || s == RunStateStopped
}

// ProgressSnapshot is an immutable view of the active run. Observers only ever see the latest one.
type ProgressSnapshot struct {
	RunID                string   `json:"runId,omitempty"`
	Kind                 RunKind  `json:"kind,omitempty"`
	State                RunState `json:"state"`
	RunLabel             string   `json:"runLabel,omitempty"`
	ExerciseName         string   `json:"exerciseName,omitempty"`
	ExerciseIndex        int      `json:"exerciseIndex,omitempty"`
	TotalExercises       int      `json:"totalExercises,omitempty"`
	CurrentPhaseName     string   `json:"currentPhaseName,omitempty"`
	CurrentRepetition    int      `json:"currentRepetition"`
	TotalRepetitions     int      `json:"totalRepetitions"`
	CurrentPhaseIndex    int      `json:"currentPhaseIndex"`
	TotalPhaseCount      int      `json:"totalPhaseCount"`
	CurrentRecordingID   string   `json:"currentRecordingId,omitempty"`
	CurrentRecordingName string   `json:"currentRecordingName,omitempty"`
	RemainingSeconds     int      `json:"remainingSeconds"`
	StatusLine           string   `json:"statusLine,omitempty"`
	Seq                  int64    `json:"seq"`
}

// StatusKind 状态提示类型
type StatusKind string

const (
	StatusInfo      StatusKind = "info"
	StatusSuccess   StatusKind = "success"
	StatusError     StatusKind = "error"
	StatusRecording StatusKind = "recording"
)

// StatusMessage 短暂显示的用户提示，过期后自动清除
type StatusMessage struct {
	Text      string     `json:"message"`
	Kind      StatusKind `json:"type"`
	PostedAt  time.Time  `json:"postedAt"`
	ExpiresAt time.Time  `json:"expiresAt"`
}
