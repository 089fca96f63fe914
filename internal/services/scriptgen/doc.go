// Package scriptgen turns a topic prompt into narration script text and
// stock-footage search terms via a text-generation provider. It owns the
// prompts, the response cleanup rules, per-call retry, and the response
// cache consultation that makes repeated runs of the same topic cheap.
package scriptgen
