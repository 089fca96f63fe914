// Package batch turns a topics file into queue jobs.
//
// A topics file is either a JSON array of strings or plain lines. Each
// topic follows the "Category_01_Some_Title" naming scheme; ParseTopic
// extracts the category and a display subject from it. Enqueueing is
// idempotent: re-running the same file skips topics that already have a
// queued, running, or finished job, and resume mode resets only jobs that
// previously failed or were lost mid-processing. Every run produces a
// Report suitable for table rendering and an optional markdown file.
package batch
