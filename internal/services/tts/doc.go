// Package tts synthesizes narration audio with Microsoft Edge neural voices,
// running the edge-tts tool through uvx. Alongside the MP3 it captures the
// word-boundary subtitle track edge-tts emits, which downstream subtitle
// generation prefers over estimating timings.
package tts
