package tts

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	langpkg "reelforge/internal/language"
)

// DefaultVoice narrates when the configuration leaves the voice empty.
const DefaultVoice = "en-US-ChristopherNeural"

// defaultVoices maps ISO 639-1 languages to a sensible neural voice, so
// operators can configure voice = "spanish" instead of a full voice name.
var defaultVoices = map[string]string{
	"en": DefaultVoice,
	"es": "es-ES-AlvaroNeural",
	"fr": "fr-FR-HenriNeural",
	"de": "de-DE-ConradNeural",
	"it": "it-IT-DiegoNeural",
	"pt": "pt-BR-AntonioNeural",
	"ja": "ja-JP-KeitaNeural",
	"ko": "ko-KR-InJoonNeural",
	"zh": "zh-CN-YunxiNeural",
	"ru": "ru-RU-DmitryNeural",
	"ar": "ar-SA-HamedNeural",
	"hi": "hi-IN-MadhurNeural",
	"nl": "nl-NL-MaartenNeural",
	"pl": "pl-PL-MarekNeural",
	"vi": "vi-VN-NamMinhNeural",
	"th": "th-TH-NiwatNeural",
	"id": "id-ID-ArdiNeural",
	"tr": "tr-TR-AhmetNeural",
}

// NormalizeVoice resolves a configured voice value to a full edge-tts voice
// name. Full names ("en-US-JennyNeural") pass through; language codes and
// words ("en", "english") map to the language default; anything else falls
// back to DefaultVoice.
func NormalizeVoice(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return DefaultVoice
	}
	if langpkg.VoiceLocale(value) != "" {
		return value
	}
	if lang := langpkg.ToISO2(value); lang != "" {
		if voice, ok := defaultVoices[lang]; ok {
			return voice
		}
	}
	return DefaultVoice
}

// NormalizeRate converts a configured speaking rate into the signed-percent
// form edge-tts expects. Accepted inputs: "" (unchanged), "+10%"/"-5%"
// (passed through), and multipliers like "1.2" (mapped to "+20%").
func NormalizeRate(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "+0%"
	}
	if strings.HasSuffix(value, "%") {
		if strings.HasPrefix(value, "+") || strings.HasPrefix(value, "-") {
			return value
		}
		return "+" + value
	}
	if multiplier, err := strconv.ParseFloat(value, 64); err == nil && multiplier > 0 {
		percent := int(math.Round((multiplier - 1.0) * 100))
		return fmt.Sprintf("%+d%%", percent)
	}
	return "+0%"
}
