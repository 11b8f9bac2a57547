package imaging

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/despeckle-mcp/internal/despeckle"
)

// DiffStats summarizes how two equally sized buffers differ, sample by sample.
type DiffStats struct {
	TotalSamples   int     `json:"total_samples"`
	ChangedSamples int     `json:"changed_samples"`
	ChangedPixels  int     `json:"changed_pixels"`
	ChangedPercent float64 `json:"changed_percent"`
	MaxDelta       int     `json:"max_delta"`
	MeanDelta      float64 `json:"mean_delta"`
}

// Compare reports the per-sample differences between a and b.
func Compare(a, b *despeckle.PixelBuffer) (*DiffStats, error) {
	if a.Width != b.Width || a.Height != b.Height || a.Channels != b.Channels {
		return nil, fmt.Errorf("cannot compare %dx%dx%d with %dx%dx%d",
			a.Width, a.Height, a.Channels, b.Width, b.Height, b.Channels)
	}

	stats := &DiffStats{TotalSamples: len(a.Pix)}
	var sum int
	for i := 0; i < len(a.Pix); i += a.Channels {
		pixelChanged := false
		for c := 0; c < a.Channels; c++ {
			d := absDiff(a.Pix[i+c], b.Pix[i+c])
			if d == 0 {
				continue
			}
			pixelChanged = true
			stats.ChangedSamples++
			sum += d
			if d > stats.MaxDelta {
				stats.MaxDelta = d
			}
		}
		if pixelChanged {
			stats.ChangedPixels++
		}
	}

	if stats.TotalSamples > 0 {
		stats.ChangedPercent = math.Round(float64(stats.ChangedSamples)/float64(stats.TotalSamples)*10000) / 100
		stats.MeanDelta = math.Round(float64(sum)/float64(stats.TotalSamples)*1000) / 1000
	}
	return stats, nil
}

// CompareImages compares two images of the same size as RGBA samples.
func CompareImages(img1, img2 image.Image) (*DiffStats, error) {
	b1, b2 := img1.Bounds(), img2.Bounds()
	if b1.Dx() != b2.Dx() || b1.Dy() != b2.Dy() {
		return nil, fmt.Errorf("image sizes differ: %dx%d vs %dx%d", b1.Dx(), b1.Dy(), b2.Dx(), b2.Dy())
	}
	return Compare(nrgbaBuffer(img1), nrgbaBuffer(img2))
}

func nrgbaBuffer(img image.Image) *despeckle.PixelBuffer {
	n := imaging.Clone(img)
	w, h := n.Bounds().Dx(), n.Bounds().Dy()
	buf := despeckle.NewPixelBuffer(w, h, 4)
	for y := 0; y < h; y++ {
		copy(buf.Row(y), n.Pix[y*n.Stride:y*n.Stride+w*4])
	}
	return buf
}

func absDiff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}
