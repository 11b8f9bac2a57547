package ocr

import (
	"context"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"

	"github.com/ironsheep/despeckle-mcp/internal/despeckle"
	imgproc "github.com/ironsheep/despeckle-mcp/internal/imaging"
)

// DefaultLanguage is used when Options.Language is empty.
const DefaultLanguage = "eng"

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the results of text extraction from an image.
type OCRResult struct {
	// FullText is all recognized text with original spacing and newlines.
	FullText string `json:"full_text"`

	// Regions contains individual words. May be empty if bounding box
	// extraction fails; the text is still in FullText.
	Regions []TextRegion `json:"regions"`

	// Despeckle reports what the cleanup pass changed, when one ran.
	Despeckle *imgproc.DiffStats `json:"despeckle,omitempty"`
}

// Options controls an OCR run.
type Options struct {
	// Language is the Tesseract language code. Defaults to "eng".
	Language string

	// TessdataPrefix overrides where Tesseract looks for language data.
	TessdataPrefix string

	// Despeckle, when set, runs the median filter over the image before
	// recognition. Scanned pages with salt-and-pepper noise read much better
	// after a small adaptive pass.
	Despeckle *despeckle.Parameters

	// Filter carries the pixel limit, block size and progress callback for
	// the despeckle pass.
	Filter imgproc.FilterOptions
}

func (o Options) language() string {
	if o.Language == "" {
		return DefaultLanguage
	}
	return o.Language
}

func (o Options) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if o.TessdataPrefix != "" {
		if err := client.SetTessdataPrefix(o.TessdataPrefix); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to set tessdata path: %w", err)
		}
	}
	return client, nil
}

// ExtractText performs OCR on an image file and returns the recognized text
// with word-level bounding boxes.
//
// With Options.Despeckle set, the file is decoded, filtered, and the cleaned
// image is recognized instead.
func ExtractText(ctx context.Context, imagePath string, opts Options) (*OCRResult, error) {
	if opts.Despeckle == nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return extractFile(imagePath, opts)
	}

	img, err := imaging.Open(imagePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return ExtractTextFromImage(ctx, img, opts)
}

// ExtractTextFromImage performs OCR on an in-memory image. Tesseract reads
// from files, so the image goes through a temporary PNG.
func ExtractTextFromImage(ctx context.Context, img image.Image, opts Options) (*OCRResult, error) {
	var stats *imgproc.DiffStats
	if opts.Despeckle != nil {
		filtered, err := imgproc.Filter(ctx, img, *opts.Despeckle, opts.Filter)
		if err != nil {
			return nil, err
		}
		img, stats = filtered.Image, filtered.Stats
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	tmpPath, err := SaveImageToTemp(img, "ocr")
	if err != nil {
		return nil, fmt.Errorf("failed to write temp image: %w", err)
	}
	defer os.Remove(tmpPath)

	result, err := extractFile(tmpPath, opts)
	if err != nil {
		return nil, err
	}
	result.Despeckle = stats
	return result, nil
}

func extractFile(imagePath string, opts Options) (*OCRResult, error) {
	client, err := opts.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetLanguage(opts.language()); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}

	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	// Return just text if boxes fail
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &OCRResult{
			FullText: text,
			Regions:  []TextRegion{},
		}, nil
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds:     boundsOf(box.Box),
		})
	}

	return &OCRResult{
		FullText: text,
		Regions:  regions,
	}, nil
}

// ExtractTextFromRegion performs OCR on a rectangular region of img.
//
// The returned bounding boxes are in original image coordinates: a word found
// at (10, 20) in a region starting at (100, 50) is reported at (110, 70). The
// despeckle pass, when requested, runs on the region only.
func ExtractTextFromRegion(ctx context.Context, img image.Image, r imgproc.Region, opts Options) (*OCRResult, error) {
	cropped, err := imgproc.Crop(img, r)
	if err != nil {
		return nil, err
	}

	result, err := ExtractTextFromImage(ctx, cropped, opts)
	if err != nil {
		return nil, err
	}

	for i := range result.Regions {
		b := &result.Regions[i].Bounds
		b.X1 += r.X1
		b.Y1 += r.Y1
		b.X2 += r.X1
		b.Y2 += r.Y1
	}
	return result, nil
}

// DetectTextRegionsResult contains text region locations without their text.
type DetectTextRegionsResult struct {
	Regions []TextRegionBox `json:"regions"`
	Count   int             `json:"count"`
}

// TextRegionBox is a detected text block's location without its content.
type TextRegionBox struct {
	Bounds Bounds `json:"bounds"`

	// Confidence is Tesseract's confidence that the block is text (0.0 to 1.0).
	Confidence float64 `json:"confidence"`
}

// DetectTextRegions finds block-level text regions without full recognition.
// Regions below minConfidence are dropped. Options.Despeckle applies as for
// ExtractText; Options.Language is ignored.
func DetectTextRegions(ctx context.Context, imagePath string, minConfidence float64, opts Options) (*DetectTextRegionsResult, error) {
	path := imagePath
	if opts.Despeckle != nil {
		img, err := imaging.Open(imagePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open image: %w", err)
		}
		filtered, err := imgproc.Filter(ctx, img, *opts.Despeckle, opts.Filter)
		if err != nil {
			return nil, err
		}
		path, err = SaveImageToTemp(filtered.Image, "ocr-detect")
		if err != nil {
			return nil, fmt.Errorf("failed to write temp image: %w", err)
		}
		defer os.Remove(path)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, err := opts.newClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	if err := client.SetImage(path); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	// Block level is faster than word level
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_BLOCK)
	if err != nil {
		return nil, fmt.Errorf("failed to get text regions: %w", err)
	}

	regions := make([]TextRegionBox, 0)
	for _, box := range boxes {
		confidence := float64(box.Confidence) / 100.0
		if confidence < minConfidence {
			continue
		}
		regions = append(regions, TextRegionBox{
			Bounds:     boundsOf(box.Box),
			Confidence: confidence,
		})
	}

	return &DetectTextRegionsResult{
		Regions: regions,
		Count:   len(regions),
	}, nil
}

func boundsOf(r image.Rectangle) Bounds {
	return Bounds{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y}
}

// Version returns the linked Tesseract version.
func Version() string {
	client := gosseract.NewClient()
	defer client.Close()
	return client.Version()
}

// SaveImageToTemp saves img to a new temporary PNG file and returns its path.
// The caller is responsible for removing the file.
func SaveImageToTemp(img image.Image, prefix string) (string, error) {
	f, err := os.CreateTemp("", prefix+"-*.png")
	if err != nil {
		return "", err
	}
	path := f.Name()

	if err := imaging.Encode(f, img, imaging.PNG); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}
