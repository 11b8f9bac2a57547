package imaging

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/despeckle-mcp/internal/despeckle"
)

// ChannelCount returns how many samples per pixel ToPixelBuffer produces for
// img:
//   - 1 for gray color models,
//   - 2 for translucent images whose pixels are all gray,
//   - 3 for opaque color images,
//   - 4 for color images with transparency.
func ChannelCount(img image.Image) int {
	if isGrayModel(img.ColorModel()) {
		return 1
	}
	return layoutChannels(imaging.Clone(img))
}

func isGrayModel(m color.Model) bool {
	return m == color.GrayModel || m == color.Gray16Model
}

// layoutChannels inspects non-premultiplied pixels for alpha and color.
func layoutChannels(src *image.NRGBA) int {
	alpha, gray := false, true
	for i := 0; i+3 < len(src.Pix); i += 4 {
		r, g, b, a := src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3]
		if a != 0xff {
			alpha = true
		}
		if r != g || g != b {
			gray = false
		}
	}
	switch {
	case alpha && gray:
		return 2
	case alpha:
		return 4
	default:
		return 3
	}
}

// ToPixelBuffer lays img out as a dense 8-bit buffer in the channel layout
// reported by ChannelCount. Color samples are non-premultiplied, so alpha is
// filtered as an independent plane.
func ToPixelBuffer(img image.Image) *despeckle.PixelBuffer {
	return toPixelBuffer(img, 0)
}

// toPixelBuffer converts img using the given channel count, or the detected
// one when channels is 0. Gray color models always produce one channel.
func toPixelBuffer(img image.Image, channels int) *despeckle.PixelBuffer {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if isGrayModel(img.ColorModel()) {
		buf := despeckle.NewPixelBuffer(w, h, 1)
		if g, ok := img.(*image.Gray); ok {
			for y := 0; y < h; y++ {
				off := g.PixOffset(bounds.Min.X, bounds.Min.Y+y)
				copy(buf.Row(y), g.Pix[off:off+w])
			}
			return buf
		}
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				c := color.GrayModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray)
				buf.Set(x, y, 0, c.Y)
			}
		}
		return buf
	}

	src := imaging.Clone(img)
	if channels < 2 || channels > 4 {
		channels = layoutChannels(src)
	}
	buf := despeckle.NewPixelBuffer(w, h, channels)
	for y := 0; y < h; y++ {
		in := src.Pix[y*src.Stride : y*src.Stride+w*4]
		out := buf.Row(y)
		for x := 0; x < w; x++ {
			p := in[x*4 : x*4+4]
			switch channels {
			case 2:
				out[x*2], out[x*2+1] = p[0], p[3]
			case 3:
				copy(out[x*3:x*3+3], p[:3])
			default:
				copy(out[x*4:x*4+4], p)
			}
		}
	}
	return buf
}

// FromPixelBuffer converts buf back into an image: *image.Gray for one
// channel, *image.NRGBA otherwise.
func FromPixelBuffer(buf *despeckle.PixelBuffer) image.Image {
	rect := image.Rect(0, 0, buf.Width, buf.Height)
	if buf.Channels == 1 {
		g := image.NewGray(rect)
		for y := 0; y < buf.Height; y++ {
			copy(g.Pix[y*g.Stride:y*g.Stride+buf.Width], buf.Row(y))
		}
		return g
	}

	dst := image.NewNRGBA(rect)
	for y := 0; y < buf.Height; y++ {
		in := buf.Row(y)
		out := dst.Pix[y*dst.Stride : y*dst.Stride+buf.Width*4]
		for x := 0; x < buf.Width; x++ {
			p := out[x*4 : x*4+4]
			switch buf.Channels {
			case 2:
				v := in[x*2]
				p[0], p[1], p[2], p[3] = v, v, v, in[x*2+1]
			case 3:
				copy(p[:3], in[x*3:x*3+3])
				p[3] = 0xff
			default:
				copy(p, in[x*4:x*4+4])
			}
		}
	}
	return dst
}
