// Package media wraps the external probe, thumbnail, and segmenting tools
// behind a narrow adapter so the pipeline never branches on tool-specific
// output. Probe and thumbnail degrade gracefully; segmenting is the one
// correctness-critical invocation and fails hard.
package media
