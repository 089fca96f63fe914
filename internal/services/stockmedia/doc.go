// Package stockmedia finds and downloads stock footage for a task. It
// searches Pexels and Pixabay with orientation and duration filters, falls
// back to the secondary provider when the preferred one cannot cover the
// narration, and downloads clips into the task directory with resume-safe
// naming. Provider requests are paced by per-provider minimum intervals to
// stay inside free-tier rate limits.
package stockmedia
