// Package imaging connects decoded images to the despeckle engine.
//
// It loads and caches image files, lays them out as dense 8-bit pixel buffers
// for filtering, and turns filtered buffers back into images that are either
// written to disk or returned base64 encoded. Color sampling and region crops
// support choosing filter levels and inspecting results.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with (0,0) at the top-left corner:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// # Channel Layout
//
// Images are filtered in the layout reported by ChannelCount:
//   - 1 channel for gray color models
//   - 2 channels (gray, alpha) for translucent images whose pixels are all gray
//   - 3 channels (R, G, B) for opaque color images
//   - 4 channels (R, G, B, A) otherwise
//
// Color samples are non-premultiplied. Every channel, alpha included, is
// filtered independently.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Filter, Despeckle and
// DespecklePreview allocate their own buffers and may run concurrently on the
// same cached image.
//
// # Output Formats
//
// SaveImage writes PNG, JPEG (quality 95) or BMP based on the file extension.
// Inline results are always PNG.
package imaging
