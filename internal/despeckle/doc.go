// Package despeckle implements an adaptive / recursive median filter over
// 8-bit multi-channel pixel rows.
//
// The filter replaces every interior sample with the median of the samples of
// the same channel inside a square window around it. Two optional modes change
// how the window is built:
//
//   - Adaptive: the window radius is adjusted sample by sample. Windows that
//     contain many clipped samples (at or below the black level, at or above
//     the white level) grow the radius for the next sample, clean windows shrink
//     it toward 1. The radius never exceeds the configured maximum and is reset
//     to it at the start of every row.
//   - Recursive: each computed value is written back into the row window, so
//     samples filtered later in the same pass see the cleaned neighbours.
//
// # Edge Policy
//
// The first and last Radius rows are copied verbatim. Inside the filtered band
// the horizontal sample range is clamped to the row; columns near the left and
// right edges are filtered with a truncated window.
//
// # Clipping
//
// Samples <= BlackLevel are counted but still take part in the median. Samples
// >= WhiteLevel are counted and excluded from the median. When fewer than two
// samples remain, the source sample is kept.
//
// # Streaming
//
// Engine.Process reads the image through a Source in blocks of rows and keeps
// only a ring of 2*Radius+BlockRows rows resident. Each output row is written
// once through a Sink, top to bottom. Run is the in-memory convenience wrapper
// around a PixelBuffer.
//
// # Example
//
//	params := despeckle.DefaultParameters()
//	params.Radius = 2
//	out, err := despeckle.Run(ctx, buf, params, func(f float64) {
//	    log.Printf("despeckle %.0f%%", f*100)
//	})
package despeckle
