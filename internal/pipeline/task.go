package pipeline

import "strings"

// State represents the lifecycle of a single generation run. It only moves
// forward: QUEUED → PROCESSING → COMPLETE or FAILED.
type State string

const (
	StateQueued     State = "queued"
	StateProcessing State = "processing"
	StateComplete   State = "complete"
	StateFailed     State = "failed"
)

// IsTerminal reports whether the run has finished.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

// Task is the in-memory model of one generation run. The Orchestrator is the
// only writer; it mutates the task at stage boundaries from a single
// goroutine, so no locking is needed. Params are fixed at construction and
// stage outputs are frozen once the task reaches a terminal state.
type Task struct {
	ID     string
	Params Params

	State    State
	Progress int

	// Stage outputs, populated as the run advances.
	Script        string
	Terms         []string
	AudioPath     string
	AudioDuration float64
	SubtitlePath  string
	MaterialPaths []string
	VideoPaths    []string

	// timingPath carries the synthesizer's word-timing file from the audio
	// stage to the subtitle stage.
	timingPath string

	// Error holds the failure detail when State is StateFailed.
	Error string
}

// NewTask builds a queued task for the given job id and parameters.
func NewTask(id string, params Params) *Task {
	return &Task{
		ID:     strings.TrimSpace(id),
		Params: params,
		State:  StateQueued,
	}
}

// SetProgress raises the progress percentage. Progress is monotonically
// non-decreasing; attempts to lower it or exceed the terminal value are
// ignored.
func (t *Task) SetProgress(percent int) {
	if percent > 100 {
		percent = 100
	}
	if percent > t.Progress {
		t.Progress = percent
	}
}

func (t *Task) markProcessing() {
	if t.State == StateQueued {
		t.State = StateProcessing
	}
}

func (t *Task) markComplete() {
	if !t.State.IsTerminal() {
		t.State = StateComplete
		t.SetProgress(100)
	}
}

func (t *Task) markFailed(message string) {
	if t.State.IsTerminal() {
		return
	}
	t.State = StateFailed
	t.Error = strings.TrimSpace(message)
}
