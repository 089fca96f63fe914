// Package textutil provides text helpers shared across the pipeline:
// cleaning raw generated scripts into speakable text, counting words for
// duration estimates, short content hashes, and filename sanitization for
// output artifacts.
package textutil
