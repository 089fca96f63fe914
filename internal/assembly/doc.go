// Package assembly renders final videos from downloaded stock clips and
// synthesized narration by driving ffmpeg. Each material clip is normalized
// to the target aspect once, then candidate renders concatenate the
// normalized clips (looping when footage runs short), mux the narration, and
// optionally burn subtitles. Finished videos are copied into the configured
// output directory. Post-processing writes a metadata sidecar and grabs a
// thumbnail frame; it is best-effort and never fails a task.
package assembly
