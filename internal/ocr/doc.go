// Package ocr provides Optical Character Recognition using Tesseract, with an
// optional despeckle pass to clean scanned images before recognition.
//
// This package wraps the Tesseract OCR engine (via gosseract/v2). It supports
// full-image OCR, region-based OCR, and text region detection.
//
// # Prerequisites
//
// Tesseract must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr libtesseract-dev
//   - macOS: brew install tesseract
//
// Language data files are required for each language, e.g.
// tesseract-ocr-eng for English. Options.TessdataPrefix points Tesseract at a
// non-standard data directory.
//
// # Despeckling
//
// Salt-and-pepper noise from scanners breaks characters apart. When
// Options.Despeckle is set, the image is decoded and run through the median
// filter first; OCRResult.Despeckle then reports how many samples the pass
// changed. Samples at or above the white level never enter the median, so
// light dropouts inside strokes are filled while an isolated dark speck on
// white paper is left alone. A small radius (1 or 2) keeps thin strokes intact.
//
// # Temporary Files
//
// Tesseract reads images from disk. In-memory images, regions and despeckled
// images are written to a temporary PNG that is removed once OCR completes.
//
// # Error Handling
//
// If bounding box extraction fails, ExtractText still returns the extracted
// text with an empty Regions slice.
package ocr
