package imaging

import (
	"context"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/despeckle-mcp/internal/despeckle"
)

// FilterOptions tunes how an image is run through the despeckle engine.
type FilterOptions struct {
	// BlockRows is the engine's read-ahead block size. Zero uses the default.
	BlockRows int

	// MaxPixels rejects larger images. Zero disables the check.
	MaxPixels int

	// Progress receives the completed fraction of the pass. May be nil.
	Progress despeckle.ProgressFunc
}

// Filtered is the outcome of one filter pass over an image.
type Filtered struct {
	Image    image.Image
	Channels int
	Stats    *DiffStats
}

// Filter despeckles img and returns the filtered image and what changed.
func Filter(ctx context.Context, img image.Image, params despeckle.Parameters, opts FilterOptions) (*Filtered, error) {
	b := img.Bounds()
	if err := opts.checkSize(b.Dx(), b.Dy()); err != nil {
		return nil, err
	}
	return filterBuffer(ctx, ToPixelBuffer(img), params, opts)
}

// checkSize refuses a width x height image larger than MaxPixels.
func (o FilterOptions) checkSize(width, height int) error {
	if o.MaxPixels > 0 && float64(width)*float64(height) > float64(o.MaxPixels) {
		return fmt.Errorf("image of %dx%d pixels exceeds the limit of %d pixels",
			width, height, o.MaxPixels)
	}
	return nil
}

func filterBuffer(ctx context.Context, src *despeckle.PixelBuffer, params despeckle.Parameters, opts FilterOptions) (*Filtered, error) {
	engine, err := despeckle.New(params, despeckle.WithBlockRows(opts.BlockRows))
	if err != nil {
		return nil, err
	}

	dst := despeckle.NewPixelBuffer(src.Width, src.Height, src.Channels)
	if err := engine.Process(ctx, src, dst, src.Width, src.Height, src.Channels, opts.Progress); err != nil {
		return nil, fmt.Errorf("despeckle failed: %w", err)
	}

	stats, err := Compare(src, dst)
	if err != nil {
		return nil, err
	}

	return &Filtered{
		Image:    FromPixelBuffer(dst),
		Channels: src.Channels,
		Stats:    stats,
	}, nil
}

// DespeckleResult describes a filtered image returned to a client.
type DespeckleResult struct {
	Width    int `json:"width"`
	Height   int `json:"height"`
	Channels int `json:"channels"`

	// FilterType is the conventional name of the mode: "median", "adaptive",
	// "recursive-median" or "recursive-adaptive".
	FilterType string               `json:"filter_type"`
	Parameters despeckle.Parameters `json:"parameters"`

	// Region is set for previews and gives the filtered area in source
	// image coordinates.
	Region *Region `json:"region,omitempty"`

	Changes DiffStats `json:"changes"`

	// OutputPath is set when the image was written to disk; ImageBase64 and
	// MimeType are set otherwise.
	OutputPath  string `json:"output_path,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

// Despeckle filters img and either writes it to outputPath (format chosen by
// extension) or, when outputPath is empty, returns it as a base64 PNG.
func Despeckle(ctx context.Context, img image.Image, params despeckle.Parameters, outputPath string, opts FilterOptions) (*DespeckleResult, error) {
	filtered, err := Filter(ctx, img, params, opts)
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	result := &DespeckleResult{
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Channels:   filtered.Channels,
		FilterType: params.Mode().String(),
		Parameters: params,
		Changes:    *filtered.Stats,
	}

	if outputPath != "" {
		if err := SaveImage(outputPath, filtered.Image); err != nil {
			return nil, err
		}
		result.OutputPath = outputPath
		return result, nil
	}

	encoded, err := encodePNGBase64(filtered.Image)
	if err != nil {
		return nil, err
	}
	result.ImageBase64 = encoded
	result.MimeType = "image/png"
	return result, nil
}

// DespecklePreview filters only the given region of img and returns it as a
// base64 PNG, optionally scaled. The region is laid out with the channel count
// of the whole image so the preview matches a full run.
//
// The region's outer Radius rows are border rows of the preview and come back
// unfiltered, exactly as the image border does in a full run.
func DespecklePreview(ctx context.Context, img image.Image, r Region, params despeckle.Parameters, scale float64, opts FilterOptions) (*DespeckleResult, error) {
	if err := validateRegion(r, img.Bounds()); err != nil {
		return nil, err
	}
	if err := opts.checkSize(r.X2-r.X1, r.Y2-r.Y1); err != nil {
		return nil, err
	}

	src := toPixelBuffer(subImage(img, r), ChannelCount(img))
	filtered, err := filterBuffer(ctx, src, params, opts)
	if err != nil {
		return nil, err
	}

	out := filtered.Image
	if scale > 0 && scale != 1.0 {
		fw, fh := float64(src.Width)*scale, float64(src.Height)*scale
		if fw < 1 || fh < 1 {
			return nil, fmt.Errorf("scale %.3f leaves an empty preview", scale)
		}
		if opts.MaxPixels > 0 && fw*fh > float64(opts.MaxPixels) {
			return nil, fmt.Errorf("preview of %.0fx%.0f pixels at scale %.3f exceeds the limit of %d pixels",
				fw, fh, scale, opts.MaxPixels)
		}
		w, h := int(fw), int(fh)
		out = imaging.Resize(out, w, h, imaging.NearestNeighbor)
	}

	encoded, err := encodePNGBase64(out)
	if err != nil {
		return nil, err
	}

	region := r
	return &DespeckleResult{
		Width:       out.Bounds().Dx(),
		Height:      out.Bounds().Dy(),
		Channels:    filtered.Channels,
		FilterType:  params.Mode().String(),
		Parameters:  params,
		Region:      &region,
		Changes:     *filtered.Stats,
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

// subImage returns the region of img without copying when the image type
// supports it.
func subImage(img image.Image, r Region) image.Image {
	if s, ok := img.(interface {
		SubImage(image.Rectangle) image.Image
	}); ok {
		return s.SubImage(r.Rect())
	}
	return imaging.Crop(img, r.Rect())
}
