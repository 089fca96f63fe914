package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelforge/internal/config"
	"reelforge/internal/pipeline"
)

// pipelineFlags holds per-command generation overrides. Only flags the user
// actually set are applied over the configured defaults, so an unset flag
// never clobbers config.toml.
type pipelineFlags struct {
	language     string
	paragraphs   int
	termsCount   int
	aspect       string
	voice        string
	voiceRate    string
	subtitles    bool
	clipDuration int
	source       string
	faceless     bool
	count        int
	stopAt       string
}

func registerPipelineFlags(cmd *cobra.Command, flags *pipelineFlags) {
	f := cmd.Flags()
	f.StringVar(&flags.language, "language", "", "Script language (BCP 47 tag, e.g. en-US)")
	f.IntVar(&flags.paragraphs, "paragraphs", 0, "Number of script paragraphs")
	f.IntVar(&flags.termsCount, "terms", 0, "Number of search terms to extract")
	f.StringVar(&flags.aspect, "aspect", "", "Output aspect (portrait or landscape)")
	f.StringVar(&flags.voice, "voice", "", "Speech synthesis voice name")
	f.StringVar(&flags.voiceRate, "voice-rate", "", "Speech rate adjustment (e.g. +10%)")
	f.BoolVar(&flags.subtitles, "subtitles", true, "Burn subtitles into the output")
	f.IntVar(&flags.clipDuration, "clip-duration", 0, "Maximum seconds per stock clip")
	f.StringVar(&flags.source, "source", "", "Stock footage source (pexels or pixabay)")
	f.BoolVar(&flags.faceless, "faceless", false, "Prefer faceless stock footage")
	f.IntVar(&flags.count, "count", 0, "Number of video variants to assemble (1-5)")
}

func registerStopAtFlag(cmd *cobra.Command, flags *pipelineFlags) {
	cmd.Flags().StringVar(&flags.stopAt, "stop-at", "", "Stop after this stage (script, terms, audio, materials, subtitle, video)")
}

// buildParams validates the set flags and overlays them onto the configured
// defaults for topic.
func (p *pipelineFlags) buildParams(cmd *cobra.Command, cfg *config.Config, topic string) (pipeline.Params, error) {
	if err := p.validate(cmd); err != nil {
		return pipeline.Params{}, err
	}
	params := pipeline.ParamsFromConfig(cfg, topic)
	p.apply(cmd, &params)
	return params, nil
}

func (p *pipelineFlags) validate(cmd *cobra.Command) error {
	f := cmd.Flags()
	if f.Changed("aspect") {
		switch p.aspect {
		case config.AspectPortrait, config.AspectLandscape:
		default:
			return fmt.Errorf("unknown aspect %q (valid: %s, %s)", p.aspect, config.AspectPortrait, config.AspectLandscape)
		}
	}
	if f.Changed("source") {
		switch p.source {
		case config.SourcePexels, config.SourcePixabay:
		default:
			return fmt.Errorf("unknown source %q (valid: %s, %s)", p.source, config.SourcePexels, config.SourcePixabay)
		}
	}
	if f.Changed("stop-at") {
		switch p.stopAt {
		case pipeline.StopAtScript, pipeline.StopAtTerms, pipeline.StopAtAudio,
			pipeline.StopAtMaterials, pipeline.StopAtSubtitle, pipeline.StopAtVideo:
		default:
			return fmt.Errorf("unknown stage %q (valid: script, terms, audio, materials, subtitle, video)", p.stopAt)
		}
	}
	if f.Changed("paragraphs") && p.paragraphs < 1 {
		return fmt.Errorf("--paragraphs must be at least 1")
	}
	if f.Changed("terms") && p.termsCount < 1 {
		return fmt.Errorf("--terms must be at least 1")
	}
	if f.Changed("clip-duration") && p.clipDuration < 1 {
		return fmt.Errorf("--clip-duration must be at least 1")
	}
	if f.Changed("count") && (p.count < 1 || p.count > 5) {
		return fmt.Errorf("--count must be between 1 and 5")
	}
	return nil
}

func (p *pipelineFlags) apply(cmd *cobra.Command, params *pipeline.Params) {
	f := cmd.Flags()
	if f.Changed("language") {
		params.Language = p.language
	}
	if f.Changed("paragraphs") {
		params.Paragraphs = p.paragraphs
	}
	if f.Changed("terms") {
		params.TermsCount = p.termsCount
	}
	if f.Changed("aspect") {
		params.Aspect = p.aspect
	}
	if f.Changed("voice") {
		params.Voice = p.voice
	}
	if f.Changed("voice-rate") {
		params.VoiceRate = p.voiceRate
	}
	if f.Changed("subtitles") {
		params.Subtitles = p.subtitles
	}
	if f.Changed("clip-duration") {
		params.ClipDuration = p.clipDuration
	}
	if f.Changed("source") {
		params.MaterialSource = p.source
	}
	if f.Changed("faceless") {
		params.Faceless = p.faceless
	}
	if f.Changed("count") {
		params.VideoCount = p.count
	}
	if f.Changed("stop-at") {
		params.StopAt = p.stopAt
	}
}
