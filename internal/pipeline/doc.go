// Package pipeline holds the task model and the orchestrator that drives one
// topic through script generation, narration, stock footage, subtitles, and
// final assembly. Collaborator services are injected through the interfaces
// declared here; the orchestrator owns task state, progress milestones, and
// the stage artifact that makes interrupted runs resumable.
package pipeline
