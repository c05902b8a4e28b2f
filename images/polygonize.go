package images

import (
	"log"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geos"
)

type pixelRun struct {
	start, end int // columns [start, end)
	top        int // first row of the run
}

// runRectangles covers the true pixels of a mask with rectangles, one per
// horizontal run of pixels, merging runs repeated on consecutive rows.
// Coordinates are in pixel space: x along columns, y along rows, pixel
// (r, c) covering [c, c+1] x [r, r+1].
func runRectangles(m *Mask) orb.Collection {
	var out orb.Collection
	emit := func(run pixelRun, bottom int) {
		x0, x1 := float64(run.start), float64(run.end)
		y0, y1 := float64(run.top), float64(bottom)
		out = append(out, orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}})
	}

	var open []pixelRun
	for r := 0; r <= m.Rows; r++ {
		var next []pixelRun
		i := 0
		for c := 0; r < m.Rows && c < m.Cols; c++ {
			if !m.At(r, c) {
				continue
			}
			start := c
			for c < m.Cols && m.At(r, c) {
				c++
			}
			for i < len(open) && (open[i].start < start || open[i].start == start && open[i].end != c) {
				emit(open[i], r)
				i++
			}
			if i < len(open) && open[i].start == start {
				next = append(next, open[i])
				i++
			} else {
				next = append(next, pixelRun{start: start, end: c, top: r})
			}
		}
		for ; i < len(open); i++ {
			emit(open[i], r)
		}
		open = next
	}
	return out
}

// Polygonize returns the outline of the true pixels of a mask, in pixel
// space. Pixels that only touch at a corner end up in separate polygons.
func Polygonize(m *Mask) orb.MultiPolygon {
	rects := runRectangles(m)
	if len(rects) == 0 {
		return nil
	}
	shape, err := unaryUnion(geos.NewContext(), rects)
	if err != nil {
		log.Printf("images: polygonizing a %dx%d mask: %v", m.Rows, m.Cols, err)
		return nil
	}
	return shape
}
