package fare

import (
	"hash/fnv"
	"math"
	"strings"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Area is the bounding box addresses are projected into.
type Area struct {
	MinLat, MaxLat float64
	MinLon, MaxLon float64
}

// Dhaka covers the city core the service operates in.
var Dhaka = Area{MinLat: 23.70, MaxLat: 23.90, MinLon: 90.35, MaxLon: 90.45}

// Locate maps a free-form address onto a stable point inside the area.
// Equal addresses (ignoring case and surrounding space) always land on the same point.
func (a Area) Locate(address string) Point {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(address))))
	sum := h.Sum64()
	latFrac := float64(sum>>32) / float64(math.MaxUint32)
	lonFrac := float64(sum&math.MaxUint32) / float64(math.MaxUint32)
	return Point{
		Lat: a.MinLat + latFrac*(a.MaxLat-a.MinLat),
		Lon: a.MinLon + lonFrac*(a.MaxLon-a.MinLon),
	}
}

// Haversine distance in meters
func Haversine(a, b Point) float64 {
	const R = 6371000.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180.0 }
	dLat := toRad(b.Lat - a.Lat)
	dLon := toRad(b.Lon - a.Lon)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLon/2)*math.Sin(dLon/2)
	return R * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
