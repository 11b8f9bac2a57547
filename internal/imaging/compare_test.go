package imaging

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/despeckle-mcp/internal/despeckle"
)

func TestCompare(t *testing.T) {
	a := despeckle.NewPixelBuffer(2, 2, 2)
	b := despeckle.NewPixelBuffer(2, 2, 2)
	copy(a.Pix, []uint8{10, 20, 30, 40, 50, 60, 70, 80})
	copy(b.Pix, []uint8{10, 20, 33, 40, 50, 60, 60, 90})

	stats, err := Compare(a, b)
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	want := DiffStats{
		TotalSamples:   8,
		ChangedSamples: 3,
		ChangedPixels:  2,
		ChangedPercent: 37.5,
		MaxDelta:       10,
		MeanDelta:      2.875,
	}
	if *stats != want {
		t.Errorf("stats: got %+v, want %+v", *stats, want)
	}
}

func TestCompare_Identical(t *testing.T) {
	a := despeckle.NewPixelBuffer(3, 3, 1)
	stats, err := Compare(a, a.Clone())
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if stats.ChangedSamples != 0 || stats.ChangedPercent != 0 || stats.MaxDelta != 0 {
		t.Errorf("identical buffers reported changes: %+v", stats)
	}
}

func TestCompare_GeometryMismatch(t *testing.T) {
	tests := []struct {
		name string
		b    *despeckle.PixelBuffer
	}{
		{"width", despeckle.NewPixelBuffer(3, 2, 1)},
		{"height", despeckle.NewPixelBuffer(2, 3, 1)},
		{"channels", despeckle.NewPixelBuffer(2, 2, 3)},
	}

	a := despeckle.NewPixelBuffer(2, 2, 1)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Compare(a, tt.b); err == nil {
				t.Error("Compare should fail on mismatched geometry")
			}
		})
	}
}

func TestCompareImages(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range gray.Pix {
		gray.Pix[i] = 50
	}
	rgb := solidImage(4, 4, color.NRGBA{50, 50, 50, 255})
	rgb.SetNRGBA(1, 1, color.NRGBA{50, 50, 70, 255})

	stats, err := CompareImages(gray, rgb)
	if err != nil {
		t.Fatalf("CompareImages failed: %v", err)
	}
	if stats.TotalSamples != 64 {
		t.Errorf("TotalSamples: got %d, want 64", stats.TotalSamples)
	}
	if stats.ChangedPixels != 1 || stats.ChangedSamples != 1 || stats.MaxDelta != 20 {
		t.Errorf("stats: got %+v, want one sample changed by 20", stats)
	}

	if _, err := CompareImages(gray, solidImage(5, 4, color.Black)); err == nil {
		t.Error("CompareImages should fail on different sizes")
	}
}
