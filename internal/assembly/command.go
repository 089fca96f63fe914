package assembly

import (
	"fmt"
	"strconv"
	"strings"
)

// buildNormalizeArgs produces ffmpeg arguments that scale-and-crop one
// material clip to the exact output resolution, cap it at the per-clip trim
// length, drop its audio, and re-encode at a uniform frame rate so the
// concat demuxer can join clips without stream mismatches.
func buildNormalizeArgs(source, target string, width, height, clipDuration int) []string {
	filter := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d,setsar=1",
		width, height, width, height)
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", source,
		"-t", strconv.Itoa(clipDuration),
		"-vf", filter,
		"-r", "30",
		"-an",
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
		target,
	}
}

// buildRenderArgs produces ffmpeg arguments for one candidate render:
// concatenated normalized clips as the video track, narration as the audio
// track, subtitles burned in when a path is given, everything trimmed to the
// narration length.
func buildRenderArgs(concatPath, audioPath, subtitlePath string, audioDuration float64, target string) []string {
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-f", "concat", "-safe", "0", "-i", concatPath,
		"-i", audioPath,
	}
	if strings.TrimSpace(subtitlePath) != "" {
		args = append(args, "-vf", "subtitles='"+escapeFilterPath(subtitlePath)+"'")
	}
	return append(args,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "libx264", "-preset", "veryfast", "-crf", "23",
		"-c:a", "aac", "-b:a", "192k",
		"-t", formatSeconds(audioDuration),
		target,
	)
}

// buildThumbnailArgs grabs a single frame one second into the video.
func buildThumbnailArgs(videoPath, target string) []string {
	return []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-ss", "1",
		"-i", videoPath,
		"-frames:v", "1",
		"-q:v", "2",
		target,
	}
}

// escapeFilterPath escapes a path for use inside an ffmpeg filter argument.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`:`, `\:`,
		`'`, `\'`,
	)
	return replacer.Replace(path)
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}

// concatFileContent renders the concat demuxer playlist. Paths are single
// quoted with embedded quotes escaped the way the demuxer expects.
func concatFileContent(entries []string) string {
	var builder strings.Builder
	for _, entry := range entries {
		builder.WriteString("file '")
		builder.WriteString(strings.ReplaceAll(entry, "'", `'\''`))
		builder.WriteString("'\n")
	}
	return builder.String()
}

// planEntries cycles through the clips, accumulating their real durations,
// until the playlist covers the narration. maxConcatEntries caps runaway
// playlists when every surviving clip is very short.
func planEntries(clips []normalizedClip, audioDuration float64) []string {
	if len(clips) == 0 {
		return nil
	}
	var (
		entries []string
		covered float64
	)
	for i := 0; covered < audioDuration && len(entries) < maxConcatEntries; i++ {
		clip := clips[i%len(clips)]
		entries = append(entries, clip.path)
		covered += clip.duration
	}
	if len(entries) == 0 {
		entries = append(entries, clips[0].path)
	}
	return entries
}

// rotateClips shifts the clip order so each render candidate opens with
// different footage.
func rotateClips(clips []normalizedClip, offset int) []normalizedClip {
	if len(clips) == 0 {
		return nil
	}
	offset %= len(clips)
	if offset == 0 {
		return clips
	}
	rotated := make([]normalizedClip, 0, len(clips))
	rotated = append(rotated, clips[offset:]...)
	return append(rotated, clips[:offset]...)
}

const maxConcatEntries = 500
