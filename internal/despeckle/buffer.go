package despeckle

import "fmt"

// Source provides contiguous blocks of rows. GetRect copies the w*h pixel
// rectangle at (x, y) into dst, row-major, w*channels samples per row.
type Source interface {
	GetRect(dst []uint8, x, y, w, h int)
}

// Sink receives finished rows. SetRow stores the w pixels of row at (x, y).
type Sink interface {
	SetRow(row []uint8, x, y, w int)
}

// PixelBuffer is a dense row-major image of 8-bit samples.
//
// Channels is 1 (gray), 2 (gray+alpha), 3 (RGB) or 4 (RGBA). Pix holds
// Width*Channels samples per row and Height rows.
type PixelBuffer struct {
	Pix      []uint8
	Width    int
	Height   int
	Channels int
}

// NewPixelBuffer allocates a zeroed buffer.
func NewPixelBuffer(width, height, channels int) *PixelBuffer {
	return &PixelBuffer{
		Pix:      make([]uint8, width*height*channels),
		Width:    width,
		Height:   height,
		Channels: channels,
	}
}

// Stride returns the number of samples in one row.
func (b *PixelBuffer) Stride() int {
	return b.Width * b.Channels
}

// Row returns row y as a slice aliasing Pix.
func (b *PixelBuffer) Row(y int) []uint8 {
	s := b.Stride()
	return b.Pix[y*s : (y+1)*s]
}

// At returns the sample of channel c at (x, y).
func (b *PixelBuffer) At(x, y, c int) uint8 {
	return b.Pix[y*b.Stride()+x*b.Channels+c]
}

// Set stores the sample of channel c at (x, y).
func (b *PixelBuffer) Set(x, y, c int, v uint8) {
	b.Pix[y*b.Stride()+x*b.Channels+c] = v
}

// Clone returns a deep copy of b.
func (b *PixelBuffer) Clone() *PixelBuffer {
	c := *b
	c.Pix = append([]uint8(nil), b.Pix...)
	return &c
}

// GetRect implements Source.
func (b *PixelBuffer) GetRect(dst []uint8, x, y, w, h int) {
	n := w * b.Channels
	for row := 0; row < h; row++ {
		off := (y+row)*b.Stride() + x*b.Channels
		copy(dst[row*n:(row+1)*n], b.Pix[off:off+n])
	}
}

// SetRow implements Sink.
func (b *PixelBuffer) SetRow(row []uint8, x, y, w int) {
	off := y*b.Stride() + x*b.Channels
	copy(b.Pix[off:off+w*b.Channels], row)
}

// Validate checks the geometry of b.
func (b *PixelBuffer) Validate() error {
	if err := validateGeometry(b.Width, b.Height, b.Channels); err != nil {
		return err
	}
	if len(b.Pix) != b.Width*b.Height*b.Channels {
		return fmt.Errorf("%w: pixel slice holds %d samples, want %d",
			ErrInvalidParameter, len(b.Pix), b.Width*b.Height*b.Channels)
	}
	return nil
}

func validateGeometry(width, height, channels int) error {
	if width < 1 || height < 1 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidParameter, width, height)
	}
	if channels < 1 || channels > 4 {
		return fmt.Errorf("%w: %d channels, want 1..4", ErrInvalidParameter, channels)
	}
	return nil
}
