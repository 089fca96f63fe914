// Package language normalizes language identifiers used across the
// pipeline: the configured content language, locale prefixes of neural TTS
// voice names, and the ISO 639-2 codes written into output metadata.
//
// Parsing and canonicalization sit on golang.org/x/text/language; a small
// alias table covers spelled-out names and the bibliographic ISO 639-2
// codes BCP 47 leaves out.
package language
