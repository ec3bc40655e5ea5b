// Package geo implements the distance math behind the nearby people search.
package geo

import (
	"math"
	"sort"

	"github.com/erazemk/soseska/internal/model"
)

// EarthRadius is the mean Earth radius in metres.
const EarthRadius = 6371008.8

// DefaultRadius is used when a nearby search gives no radius, in metres.
const DefaultRadius = 1000

// MaxRadius caps the nearby search radius, in metres.
const MaxRadius = 50000

// Box is a latitude/longitude bounding box. When the box spans the
// antimeridian MinLng is greater than MaxLng.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// CrossesAntimeridian reports whether the box wraps around longitude ±180.
func (b Box) CrossesAntimeridian() bool {
	return b.MinLng > b.MaxLng
}

// Distance returns the great-circle distance between a and b in metres.
func Distance(a, b model.Point) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadius * math.Asin(math.Min(1, math.Sqrt(h)))
}

// BoundingBox returns a box containing every point within radius metres of
// center. Near the poles the box covers all longitudes.
func BoundingBox(center model.Point, radius float64) Box {
	dLat := degrees(radius / EarthRadius)
	b := Box{
		MinLat: math.Max(-90, center.Lat-dLat),
		MaxLat: math.Min(90, center.Lat+dLat),
		MinLng: -180,
		MaxLng: 180,
	}
	if b.MinLat == -90 || b.MaxLat == 90 {
		return b
	}

	dLng := degrees(math.Asin(math.Min(1, math.Sin(radius/EarthRadius)/math.Cos(radians(center.Lat)))))
	if dLng >= 180 {
		return b
	}
	b.MinLng = wrapLng(center.Lng - dLng)
	b.MaxLng = wrapLng(center.Lng + dLng)
	return b
}

// Nearest keeps the candidates within radius metres of center, fills in
// their distance and orders them closest first.
func Nearest(center model.Point, radius float64, candidates []model.Neighbor) []model.Neighbor {
	out := make([]model.Neighbor, 0, len(candidates))
	for _, c := range candidates {
		c.Distance = Distance(center, c.Location)
		if c.Distance <= radius {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}

func wrapLng(lng float64) float64 {
	switch {
	case lng > 180:
		return lng - 360
	case lng < -180:
		return lng + 360
	}
	return lng
}

func radians(d float64) float64 { return d * math.Pi / 180 }

func degrees(r float64) float64 { return r * 180 / math.Pi }
