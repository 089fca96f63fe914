package language

import (
	"strings"

	"golang.org/x/text/language"
)

// displayNames maps canonical BCP 47 bases to the English names status
// surfaces print. It doubles as the word-form table: config files may
// spell a language out ("english") instead of using a code.
var displayNames = map[string]string{
	"en": "English",
	"es": "Spanish",
	"fr": "French",
	"de": "German",
	"it": "Italian",
	"pt": "Portuguese",
	"ja": "Japanese",
	"ko": "Korean",
	"zh": "Chinese",
	"ru": "Russian",
	"ar": "Arabic",
	"hi": "Hindi",
	"nl": "Dutch",
	"pl": "Polish",
	"sv": "Swedish",
	"da": "Danish",
	"no": "Norwegian",
	"fi": "Finnish",
	"vi": "Vietnamese",
	"th": "Thai",
	"id": "Indonesian",
	"tr": "Turkish",
}

// aliases maps spellings BCP 47 parsing rejects onto codes it accepts:
// the bibliographic ISO 639-2 variants a few languages carry, plus the
// spelled-out names from displayNames (added at init).
var aliases = map[string]string{
	"fre": "fr",
	"ger": "de",
	"chi": "zh",
	"dut": "nl",
}

func init() {
	for code, name := range displayNames {
		aliases[strings.ToLower(name)] = code
	}
}

// parseBase resolves a language code or spelled-out name to a BCP 47 base.
func parseBase(value string) (language.Base, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return language.Base{}, false
	}
	if code, ok := aliases[value]; ok {
		value = code
	}
	base, err := language.ParseBase(value)
	if err != nil {
		return language.Base{}, false
	}
	return base, true
}

// Normalize converts a configured language value ("en", "eng", "English",
// "en-US") to its canonical base code, ISO 639-1 where one exists.
// Unrecognized input falls through lowercased so callers can still pass it
// to collaborators verbatim.
func Normalize(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	if base, ok := parseBase(value); ok {
		return base.String()
	}
	if tag, err := language.Parse(value); err == nil {
		if base, conf := tag.Base(); conf > language.No {
			return base.String()
		}
	}
	if head, _, found := strings.Cut(value, "-"); found {
		value = head
	}
	return value
}

// ToISO2 converts any recognized language code or word to ISO 639-1.
// Returns empty string for unrecognized input unless it already looks like
// a 2-letter code, which passes through.
func ToISO2(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return ""
	}
	if base, ok := parseBase(code); ok {
		if s := base.String(); len(s) == 2 {
			return s
		}
	}
	if len(code) == 2 {
		return code
	}
	return ""
}

// ToISO3 converts any recognized language code to ISO 639-2, the form
// container metadata expects. Returns "und" for unrecognized input, passing
// through codes that already look like 3-letter codes.
func ToISO3(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return "und"
	}
	if base, ok := parseBase(code); ok {
		return base.ISO3()
	}
	if len(code) == 3 {
		return code
	}
	return "und"
}

// DisplayName returns a human-readable language name for any recognized
// code. Returns "Unknown" for empty input, or the uppercased code for
// unrecognized input.
func DisplayName(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return "Unknown"
	}
	if base, ok := parseBase(trimmed); ok {
		if name, ok := displayNames[base.String()]; ok {
			return name
		}
	}
	return strings.ToUpper(trimmed)
}

// VoiceLocale extracts the locale prefix of a neural voice name:
// "en-US-ChristopherNeural" yields "en-US". Returns empty string when the
// name does not start with a parseable locale.
func VoiceLocale(voice string) string {
	parts := strings.Split(strings.TrimSpace(voice), "-")
	if len(parts) < 2 {
		return ""
	}
	tag, err := language.Parse(parts[0] + "-" + parts[1])
	if err != nil {
		return ""
	}
	return tag.String()
}

// VoiceLanguage extracts the ISO 639-1 language of a neural voice name:
// "en-US-ChristopherNeural" yields "en".
func VoiceLanguage(voice string) string {
	locale := VoiceLocale(voice)
	if locale == "" {
		return ""
	}
	lang, _, _ := strings.Cut(locale, "-")
	return lang
}
