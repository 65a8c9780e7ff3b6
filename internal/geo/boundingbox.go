package geo

import (
	"fmt"
	"math"
)

// kmPerDegreeLat is the approximate length of one degree of latitude.
const kmPerDegreeLat = 111.0

// BoundingBox is an axis-aligned rectangle on the Earth's surface.
// Coordinates are degrees; South < North and West < East.
type BoundingBox struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Location pairs a display name with its resolved bounding box.
type Location struct {
	Name string      `json:"name"`
	Box  BoundingBox `json:"box"`
}

// Expand grows the box symmetrically by marginKm on every side. The margin
// converts to a latitude offset at 111 km per degree; the longitude offset is
// additionally scaled by cos(mean latitude). Boxes touching the anti-meridian
// or the poles are not handled: the cosine factor degenerates near ±90°.
func (b BoundingBox) Expand(marginKm float64) BoundingBox {
	latOffset := marginKm / kmPerDegreeLat
	meanLat := (b.South + b.North) / 2
	lonOffset := marginKm / (kmPerDegreeLat * math.Cos(meanLat*math.Pi/180))

	return BoundingBox{
		South: b.South - latOffset,
		West:  b.West - lonOffset,
		North: b.North + latOffset,
		East:  b.East + lonOffset,
	}
}

// Centroid returns the midpoint of the box.
func (b BoundingBox) Centroid() (lat, lon float64) {
	return (b.South + b.North) / 2, (b.West + b.East) / 2
}

// RegistryOrder renders the box in the west,south,east,north axis order the
// site registry expects. The internal convention is south,west,north,east;
// getting the swap wrong silently queries the wrong rectangle, so every
// registry call must build its bbox parameter through here.
func (b BoundingBox) RegistryOrder() string {
	return fmt.Sprintf("%g,%g,%g,%g", b.West, b.South, b.East, b.North)
}
