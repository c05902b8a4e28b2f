package images

import (
	"fmt"
	"log"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/paulmach/orb/planar"
	"github.com/twpayne/go-geos"
)

func toGeos(ctx *geos.Context, g orb.Geometry) (*geos.Geom, error) {
	data, err := wkb.Marshal(g)
	if err != nil {
		return nil, err
	}
	return ctx.NewGeomFromWKB(data)
}

// fromGeos returns the polygons of g with counter-clockwise exteriors and
// clockwise holes. Lines and points left over by an overlay are dropped.
func fromGeos(g *geos.Geom) (orb.MultiPolygon, error) {
	if g == nil || g.IsEmpty() {
		return nil, nil
	}
	decoded, err := wkb.Unmarshal(g.ToWKB())
	if err != nil {
		return nil, err
	}
	var out orb.MultiPolygon
	collectPolygons(decoded, &out)
	return out, nil
}

func collectPolygons(g orb.Geometry, out *orb.MultiPolygon) {
	switch t := g.(type) {
	case orb.Polygon:
		if len(t) > 0 && len(t[0]) >= 4 {
			*out = append(*out, oriented(t))
		}
	case orb.MultiPolygon:
		for _, p := range t {
			collectPolygons(p, out)
		}
	case orb.Collection:
		for _, c := range t {
			collectPolygons(c, out)
		}
	}
}

func pixelBox(rows, cols int) orb.Polygon {
	x, y := float64(cols), float64(rows)
	return orb.Polygon{{{0, 0}, {x, 0}, {x, y}, {0, y}, {0, 0}}}
}

// Union merges polygons into the set of polygons covering the same area.
// Exterior rings of the result are counter-clockwise, holes clockwise.
func Union(polygons []orb.Polygon) orb.MultiPolygon {
	var input orb.Collection
	for _, p := range polygons {
		if len(p) > 0 && len(p[0]) >= 4 {
			input = append(input, p)
		}
	}
	switch len(input) {
	case 0:
		return nil
	case 1:
		return orb.MultiPolygon{oriented(input[0].(orb.Polygon))}
	}

	union, err := unaryUnion(geos.NewContext(), input)
	if err != nil || len(union) == 0 {
		log.Printf("images: union of %d polygons failed (%v), keeping the largest", len(input), err)
		return orb.MultiPolygon{oriented(largest(input))}
	}
	return union
}

func unaryUnion(ctx *geos.Context, input orb.Collection) (orb.MultiPolygon, error) {
	g, err := toGeos(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("converting to GEOS: %v", err)
	}
	return fromGeos(g.UnaryUnion())
}

func largest(polygons orb.Collection) orb.Polygon {
	best, bestArea := polygons[0].(orb.Polygon), 0.0
	for _, g := range polygons {
		p := g.(orb.Polygon)
		if a := planar.Area(p); a > bestArea {
			best, bestArea = p, a
		}
	}
	return best
}

// oriented returns a copy of p with a counter-clockwise exterior and
// clockwise holes.
func oriented(p orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, len(p))
	for i, r := range p {
		area := signedArea(r)
		if (i == 0 && area < 0) || (i > 0 && area > 0) {
			r = reversed(r)
		}
		out = append(out, r)
	}
	return out
}

// signedArea is positive for counter-clockwise rings (with y up).
func signedArea(r orb.Ring) float64 {
	area := 0.0
	for i := 0; i+1 < len(r); i++ {
		area += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return area / 2
}

func reversed(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[len(r)-1-i] = p
	}
	return out
}
