package images

import (
	"fmt"
	"log"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
	"github.com/twpayne/go-geos"
)

// ValidDataMethod selects how a valid-data mask is turned into a
// footprint.
type ValidDataMethod int

const (
	// Thorough takes the convex hull of the valid pixels, grown by one
	// pixel with bevelled corners and simplified.
	Thorough ValidDataMethod = iota
	// Filled keeps the exact outline of the valid pixels.
	Filled
)

func (v ValidDataMethod) String() string {
	switch v {
	case Thorough:
		return "thorough"
	case Filled:
		return "filled"
	}
	return fmt.Sprintf("ValidDataMethod(%d)", int(v))
}

func ParseValidDataMethod(s string) (ValidDataMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "thorough":
		return Thorough, nil
	case "filled":
		return Filled, nil
	}
	return Thorough, fmt.Errorf("unknown valid data method %q, expected thorough or filled", s)
}

// ConsumeAndGetValidData reduces the valid-data masks of all grids to one
// geometry in the CRS of the grids. The masks are released as they are
// used, so a second call returns nil. A nil geometry means no valid data.
func (m *MeasurementRecord) ConsumeAndGetValidData(method ValidDataMethod) orb.Geometry {
	ctx := geos.NewContext()
	var polygons []orb.Polygon
	for len(m.maskOrder) > 0 {
		key := m.maskOrder[len(m.maskOrder)-1]
		m.maskOrder = m.maskOrder[:len(m.maskOrder)-1]
		mask, grid := m.masks[key], m.maskGrids[key]
		delete(m.masks, key)
		delete(m.maskGrids, key)

		footprint, err := maskFootprint(ctx, mask, grid, method)
		if err != nil {
			log.Printf("images: valid data of %v: %v", grid, err)
			continue
		}
		polygons = append(polygons, footprint...)
	}

	union := Union(polygons)
	switch len(union) {
	case 0:
		return nil
	case 1:
		return union[0]
	}
	return union
}

// maskFootprint returns the footprint of one mask in world coordinates.
func maskFootprint(ctx *geos.Context, mask *Mask, grid GridSpec, method ValidDataMethod) ([]orb.Polygon, error) {
	var shape *geos.Geom
	switch method {
	case Filled:
		rects := runRectangles(mask)
		if len(rects) == 0 {
			return nil, nil
		}
		g, err := toGeos(ctx, rects)
		if err != nil {
			return nil, err
		}
		shape = g.UnaryUnion()
	default:
		corners := validCorners(mask)
		if len(corners) == 0 {
			return nil, nil
		}
		g, err := toGeos(ctx, corners)
		if err != nil {
			return nil, err
		}
		// Grow by a pixel, then simplify within a pixel.
		shape = g.ConvexHull().
			BufferWithStyle(1, 16, geos.BufCapStyleSquare, geos.BufJoinStyleBevel, 5).
			Simplify(1)
	}

	box, err := toGeos(ctx, pixelBox(grid.Rows(), grid.Cols()))
	if err != nil {
		return nil, err
	}
	clipped, err := fromGeos(shape.Intersection(box))
	if err != nil {
		return nil, err
	}

	t := grid.Transform
	world := project.MultiPolygon(clipped, func(p orb.Point) orb.Point {
		x, y := t.Apply(p[0], p[1])
		return orb.Point{x, y}
	})
	var out []orb.Polygon
	for _, p := range world {
		out = append(out, oriented(p))
	}
	return out, nil
}

// validCorners returns the outer corners of the first and last valid
// pixel of each row. Their hull is the hull of every valid pixel.
func validCorners(mask *Mask) orb.MultiPoint {
	var points orb.MultiPoint
	for r := 0; r < mask.Rows; r++ {
		first, last := -1, -1
		for c := 0; c < mask.Cols; c++ {
			if mask.At(r, c) {
				if first < 0 {
					first = c
				}
				last = c
			}
		}
		if first < 0 {
			continue
		}
		y0, y1 := float64(r), float64(r+1)
		x0, x1 := float64(first), float64(last+1)
		points = append(points, orb.Point{x0, y0}, orb.Point{x0, y1}, orb.Point{x1, y0}, orb.Point{x1, y1})
	}
	return points
}
