package pipeline

import (
	"encoding/json"
	"strings"

	"reelforge/internal/config"
)

// Stage names accepted by Params.StopAt. Each one ends the run with
// COMPLETE directly after the named stage finishes.
const (
	StopAtScript    = "script"
	StopAtTerms     = "terms"
	StopAtAudio     = "audio"
	StopAtMaterials = "materials"
	StopAtSubtitle  = "subtitle"
	StopAtVideo     = "video"
)

// maxVideoCount caps how many candidate renders a single task may request.
const maxVideoCount = 5

// Params carries the per-task generation settings. A copy travels with the
// job row as meta JSON and is immutable once the task starts.
type Params struct {
	Subject        string `json:"subject"`
	Language       string `json:"language,omitempty"`
	Paragraphs     int    `json:"paragraphs"`
	TermsCount     int    `json:"terms_count"`
	Aspect         string `json:"aspect"`
	Voice          string `json:"voice,omitempty"`
	VoiceRate      string `json:"voice_rate,omitempty"`
	Subtitles      bool   `json:"subtitles"`
	ClipDuration   int    `json:"clip_duration_seconds"`
	MaterialSource string `json:"material_source"`
	Faceless       bool   `json:"faceless"`
	VideoCount     int    `json:"video_count,omitempty"`
	StopAt         string `json:"stop_at,omitempty"`
}

// DefaultParams returns the built-in generation settings for a topic.
func DefaultParams(topic string) Params {
	return Params{
		Subject:        strings.TrimSpace(topic),
		Paragraphs:     1,
		TermsCount:     5,
		Aspect:         config.AspectPortrait,
		Subtitles:      true,
		ClipDuration:   5,
		MaterialSource: config.SourcePexels,
		VideoCount:     1,
	}
}

// ParamsFromConfig builds Params for a topic using the configured pipeline
// defaults.
func ParamsFromConfig(cfg *config.Config, topic string) Params {
	params := DefaultParams(topic)
	if cfg == nil {
		return params
	}
	if cfg.Pipeline.Paragraphs > 0 {
		params.Paragraphs = cfg.Pipeline.Paragraphs
	}
	if cfg.Pipeline.TermsCount > 0 {
		params.TermsCount = cfg.Pipeline.TermsCount
	}
	if a := strings.TrimSpace(cfg.Pipeline.Aspect); a != "" {
		params.Aspect = a
	}
	params.Voice = strings.TrimSpace(cfg.Pipeline.Voice)
	params.Language = strings.TrimSpace(cfg.Pipeline.Language)
	params.Subtitles = cfg.Pipeline.Subtitles
	if cfg.Pipeline.ClipDuration > 0 {
		params.ClipDuration = cfg.Pipeline.ClipDuration
	}
	if s := strings.TrimSpace(cfg.Pipeline.MaterialSource); s != "" {
		params.MaterialSource = s
	}
	params.Faceless = cfg.Pipeline.Faceless
	return normalizeParams(params, topic)
}

// ParseMeta decodes job meta JSON into Params. The parse is tolerant: fields
// present in the JSON override defaults, everything else keeps the default
// for topic. Malformed JSON falls back to DefaultParams(topic) and reports
// false; callers proceed either way.
func ParseMeta(raw []byte, topic string) (Params, bool) {
	params := DefaultParams(topic)
	if len(raw) == 0 {
		return params, false
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return DefaultParams(topic), false
	}
	return normalizeParams(params, topic), true
}

// Meta serializes the params back to job meta JSON.
func (p Params) Meta() []byte {
	data, err := json.Marshal(p)
	if err != nil {
		return []byte("{}")
	}
	return data
}

// Resolution returns the output pixel dimensions for the configured aspect.
func (p Params) Resolution() (width, height int) {
	return AspectResolution(p.Aspect)
}

// AspectResolution maps an aspect name to output pixel dimensions. Unknown
// aspects resolve to portrait.
func AspectResolution(aspect string) (width, height int) {
	if aspect == config.AspectLandscape {
		return 1920, 1080
	}
	return 1080, 1920
}

func normalizeParams(p Params, topic string) Params {
	if strings.TrimSpace(p.Subject) == "" {
		p.Subject = strings.TrimSpace(topic)
	}
	if p.Paragraphs < 1 {
		p.Paragraphs = 1
	}
	if p.TermsCount < 1 {
		p.TermsCount = 5
	}
	if p.ClipDuration < 1 {
		p.ClipDuration = 5
	}
	if p.VideoCount < 1 {
		p.VideoCount = 1
	}
	if p.VideoCount > maxVideoCount {
		p.VideoCount = maxVideoCount
	}
	switch p.Aspect {
	case config.AspectPortrait, config.AspectLandscape:
	default:
		p.Aspect = config.AspectPortrait
	}
	switch p.MaterialSource {
	case config.SourcePexels, config.SourcePixabay:
	default:
		p.MaterialSource = config.SourcePexels
	}
	switch p.StopAt {
	case "", StopAtScript, StopAtTerms, StopAtAudio, StopAtMaterials, StopAtSubtitle, StopAtVideo:
	default:
		p.StopAt = ""
	}
	return p
}
