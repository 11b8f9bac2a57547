package despeckle

// rowWindow is a ring of image rows backed by one slab. Row y lives in slot
// y % capacity. Rows are fetched from the Source in blocks as the scan
// advances and are overwritten once they fall behind the filter window.
type rowWindow struct {
	src       Source
	width     int // pixels per row
	height    int // rows in the image
	stride    int // samples per row
	blockRows int
	capacity  int
	slab      []uint8
	loaded    int // rows [0, loaded) have been fetched
}

// newRowWindow sizes the ring to hold 2*radius rows around the current one
// plus a read-ahead block, never more rows than the image has.
func newRowWindow(src Source, width, height, channels, radius, blockRows int) *rowWindow {
	capacity := 2*radius + blockRows
	if capacity > height {
		capacity = height
	}
	stride := width * channels
	return &rowWindow{
		src:       src,
		width:     width,
		height:    height,
		stride:    stride,
		blockRows: blockRows,
		capacity:  capacity,
		slab:      make([]uint8, capacity*stride),
	}
}

// row returns the resident row y. The slice aliases the ring, so writes are
// visible to later reads of the same row.
func (w *rowWindow) row(y int) []uint8 {
	slot := y % w.capacity
	return w.slab[slot*w.stride : (slot+1)*w.stride]
}

// advance makes rows up to and including last resident, fetching whole
// blocks. Reads never straddle the end of the ring.
func (w *rowWindow) advance(last int) {
	if last >= w.height {
		last = w.height - 1
	}
	for w.loaded <= last {
		slot := w.loaded % w.capacity
		n := w.blockRows
		if rest := w.height - w.loaded; n > rest {
			n = rest
		}
		if room := w.capacity - slot; n > room {
			n = room
		}
		w.src.GetRect(w.slab[slot*w.stride:(slot+n)*w.stride], 0, w.loaded, w.width, n)
		w.loaded += n
	}
}

// oldest returns the first row still guaranteed to be resident.
func (w *rowWindow) oldest() int {
	if w.loaded <= w.capacity {
		return 0
	}
	return w.loaded - w.capacity
}
