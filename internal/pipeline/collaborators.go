package pipeline

import "context"

// ScriptGenerator produces narration text and visual search terms for a
// subject. Implementations are expected to consult the response cache and
// retry transient provider failures internally.
type ScriptGenerator interface {
	Script(ctx context.Context, subject, language string, paragraphs int) (string, error)
	Terms(ctx context.Context, subject, script string, count int, faceless bool) ([]string, error)
}

// SpeechResult describes synthesized narration audio.
type SpeechResult struct {
	// AudioPath is the synthesized MP3 file.
	AudioPath string
	// Duration is the probed audio length in whole seconds, rounded up.
	Duration float64
	// TimingPath is an optional word-boundary subtitle file emitted by the
	// synthesizer. Empty when the engine produced none.
	TimingPath string
}

// SpeechSynthesizer turns script text into narration audio inside dir.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, voice, rate, dir string) (SpeechResult, error)
}

// MaterialRequest asks for enough stock footage to cover the narration.
type MaterialRequest struct {
	// Terms are the visual search phrases, tried in order.
	Terms []string
	// Source is the preferred provider; the fetcher may fall back to the
	// other provider when the preferred one cannot cover AudioDuration.
	Source string
	// Aspect selects portrait or landscape orientation and the target
	// download resolution.
	Aspect string
	// AudioDuration is the seconds of footage the assembled video needs.
	AudioDuration float64
	// ClipDuration is the seconds each clip contributes after trimming.
	ClipDuration int
	// Dir is the task directory downloads are written into.
	Dir string
}

// MaterialFetcher downloads stock clips matching the request. A nil error
// with an empty slice means every provider came up empty; the caller treats
// that as a stage failure.
type MaterialFetcher interface {
	Fetch(ctx context.Context, req MaterialRequest) ([]string, error)
}

// SubtitleRequest asks for an SRT file synchronized to the narration.
type SubtitleRequest struct {
	// Script is the narration text the cues are built from.
	Script string
	// AudioDuration is the narration length in seconds, used for
	// proportional timing when no word timings are available.
	AudioDuration float64
	// TimingPath optionally points at the synthesizer's word-boundary
	// subtitle file. Preferred over proportional timing when readable.
	TimingPath string
	// Dir is the task directory the SRT is written into.
	Dir string
}

// SubtitleWriter produces the subtitle file for a task and returns its path.
type SubtitleWriter interface {
	Write(ctx context.Context, req SubtitleRequest) (string, error)
}

// AssemblyRequest carries everything needed to render the final videos.
type AssemblyRequest struct {
	TaskID string
	// Topic names the exported files in the output directory.
	Topic         string
	MaterialPaths []string
	AudioPath     string
	AudioDuration float64
	// SubtitlePath is burned into the render when non-empty.
	SubtitlePath string
	Width        int
	Height       int
	// ClipDuration is the per-clip trim length in seconds.
	ClipDuration int
	// Count is how many candidate renders to produce (final-1.mp4 onward).
	Count int
	// Dir is the task directory renders are written into.
	Dir string
}

// PostProcessRequest carries the inputs for best-effort finishing work:
// the metadata sidecar and a thumbnail frame.
type PostProcessRequest struct {
	TaskID     string
	Topic      string
	Params     Params
	VideoPaths []string
	Duration   float64
	Dir        string
}

// Assembler renders final videos from downloaded materials and narration.
type Assembler interface {
	Assemble(ctx context.Context, req AssemblyRequest) ([]string, error)
	// PostProcess runs after a successful assembly. It is best-effort:
	// failures are logged by the implementation and never affect the task.
	PostProcess(ctx context.Context, req PostProcessRequest)
}
