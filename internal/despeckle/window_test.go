package despeckle

import (
	"bytes"
	"context"
	"testing"
)

// recordingSource wraps a PixelBuffer and checks the access pattern of the
// row window: every row is fetched once, in order, as one contiguous rect.
type recordingSource struct {
	t     *testing.T
	buf   *PixelBuffer
	next  int
	reads int
}

func (s *recordingSource) GetRect(dst []uint8, x, y, w, h int) {
	if x != 0 || w != s.buf.Width {
		s.t.Errorf("GetRect x=%d w=%d, want full rows", x, w)
	}
	if y != s.next {
		s.t.Errorf("GetRect y=%d, want %d", y, s.next)
	}
	if len(dst) != w*h*s.buf.Channels {
		s.t.Errorf("GetRect dst holds %d samples, want %d", len(dst), w*h*s.buf.Channels)
	}
	s.next = y + h
	s.reads++
	s.buf.GetRect(dst, x, y, w, h)
}

// recordingSink checks that rows arrive once each, top to bottom.
type recordingSink struct {
	t    *testing.T
	buf  *PixelBuffer
	next int
}

func (s *recordingSink) SetRow(row []uint8, x, y, w int) {
	if y != s.next {
		s.t.Errorf("SetRow y=%d, want %d", y, s.next)
	}
	s.next++
	s.buf.SetRow(row, x, y, w)
}

func TestProcess_BlockSizeDoesNotChangeOutput(t *testing.T) {
	src := newNoiseBuffer(23, 57, 3, 7)

	for _, recursive := range []bool{false, true} {
		params := DefaultParameters()
		params.Radius = 4
		params.Recursive = recursive

		want := mustRun(t, src, params)

		for _, block := range []int{1, 2, 3, 5, 16, 100} {
			e, err := New(params, WithBlockRows(block))
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			source := &recordingSource{t: t, buf: src}
			sink := &recordingSink{t: t, buf: NewPixelBuffer(src.Width, src.Height, src.Channels)}

			if err := e.Process(context.Background(), source, sink, src.Width, src.Height, src.Channels, nil); err != nil {
				t.Fatalf("Process failed: %v", err)
			}
			if !bytes.Equal(sink.buf.Pix, want.Pix) {
				t.Errorf("recursive=%v block=%d: output differs from default block size", recursive, block)
			}
			if source.next != src.Height {
				t.Errorf("block=%d: read %d rows, want %d", block, source.next, src.Height)
			}
			if minReads := (src.Height + block - 1) / block; source.reads < minReads {
				t.Errorf("block=%d: %d reads, want at least %d", block, source.reads, minReads)
			}
			if sink.next != src.Height {
				t.Errorf("block=%d: wrote %d rows, want %d", block, sink.next, src.Height)
			}
		}
	}
}

func TestProcess_RecursiveDoesNotTouchSource(t *testing.T) {
	src := newNoiseBuffer(11, 13, 1, 5)
	orig := src.Clone()

	params := DefaultParameters()
	params.Recursive = true
	mustRun(t, src, params)

	if !bytes.Equal(src.Pix, orig.Pix) {
		t.Error("recursive pass wrote into the caller's source buffer")
	}
}

func TestRowWindow_Residency(t *testing.T) {
	const radius, block, height = 3, 4, 40
	src := newNoiseBuffer(5, height, 2, 11)
	w := newRowWindow(src, 5, height, 2, radius, block)

	if w.capacity != 2*radius+block {
		t.Fatalf("capacity: got %d, want %d", w.capacity, 2*radius+block)
	}

	for y := 0; y < height; y++ {
		w.advance(y + radius)
		lo := y - radius
		if lo < 0 {
			lo = 0
		}
		hi := y + radius
		if hi >= height {
			hi = height - 1
		}
		if w.oldest() > lo {
			t.Fatalf("y=%d: oldest resident row %d, need %d", y, w.oldest(), lo)
		}
		for ty := lo; ty <= hi; ty++ {
			if !bytes.Equal(w.row(ty), src.Row(ty)) {
				t.Fatalf("y=%d: row %d not resident", y, ty)
			}
		}
	}
}

func TestRowWindow_CapacityLimitedByHeight(t *testing.T) {
	src := newNoiseBuffer(4, 6, 1, 2)
	w := newRowWindow(src, 4, 6, 1, 5, 64)
	if w.capacity != 6 {
		t.Errorf("capacity: got %d, want 6", w.capacity)
	}
	w.advance(100)
	if w.loaded != 6 {
		t.Errorf("loaded: got %d, want 6", w.loaded)
	}
}

func TestRowWindow_WritesVisible(t *testing.T) {
	src := newUniformBuffer(3, 8, 1, 9)
	w := newRowWindow(src, 3, 8, 1, 1, 2)
	w.advance(3)
	w.row(2)[1] = 77
	if w.row(2)[1] != 77 {
		t.Error("write to window row not visible on re-read")
	}
	if src.At(1, 2, 0) != 9 {
		t.Error("write to window row leaked into the source")
	}
}
