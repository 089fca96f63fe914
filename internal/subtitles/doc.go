// Package subtitles builds the SRT file that gets burned into assembled
// videos. Cues are sentence-level: when the speech synthesizer produced a
// word-boundary VTT file its timings drive the cues, otherwise the narration
// duration is split across sentences in proportion to their word counts.
package subtitles
