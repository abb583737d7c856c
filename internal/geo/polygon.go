// Package geo содержит геометрию колец геозон: компиляцию и проверку вхождения точки.
package geo

import (
	"errors"
	"math"
)

// Точность сравнения координат при проверке границы
const eps = 1e-9

var ErrTooFewVertices = errors.New("geo: ring requires at least 3 distinct vertices")

// Point - координата в градусах. Долгота это x, широта это y.
type Point struct {
	Lat float64
	Lon float64
}

// Ring - замкнутое кольцо полигона: первая вершина всегда совпадает с последней.
type Ring []Point

// NewRing компилирует кольцо из точек документа геозоны.
// Незамкнутое кольцо (первая != последняя вершина) замыкается автоматически.
func NewRing(points []Point) (Ring, error) {
	distinct := make(map[Point]struct{}, len(points))
	for _, p := range points {
		distinct[p] = struct{}{}
	}
	if len(distinct) < 3 {
		return nil, ErrTooFewVertices
	}

	ring := make(Ring, len(points), len(points)+1)
	copy(ring, points)
	if ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

// Contains проверяет вхождение точки в кольцо методом ray casting.
// Точка на ребре или вершине считается внутри - это фиксированное соглашение,
// от него зависит детерминизм гистерезиса выше по стеку.
func (r Ring) Contains(p Point) bool {
	if len(r) < 4 {
		return false
	}

	for i := 0; i < len(r)-1; i++ {
		if onSegment(r[i], r[i+1], p) {
			return true
		}
	}

	// Луч идет вправо по оси долготы; считаем пересечения ребер
	inside := false
	for i := 0; i < len(r)-1; i++ {
		a, b := r[i], r[i+1]
		if (a.Lat > p.Lat) != (b.Lat > p.Lat) {
			crossLon := a.Lon + (p.Lat-a.Lat)/(b.Lat-a.Lat)*(b.Lon-a.Lon)
			if p.Lon < crossLon {
				inside = !inside
			}
		}
	}
	return inside
}

// onSegment возвращает true, если точка p лежит на отрезке ab
func onSegment(a, b, p Point) bool {
	cross := (b.Lon-a.Lon)*(p.Lat-a.Lat) - (b.Lat-a.Lat)*(p.Lon-a.Lon)
	if math.Abs(cross) > eps {
		return false
	}
	return p.Lon >= math.Min(a.Lon, b.Lon)-eps && p.Lon <= math.Max(a.Lon, b.Lon)+eps &&
		p.Lat >= math.Min(a.Lat, b.Lat)-eps && p.Lat <= math.Max(a.Lat, b.Lat)+eps
}
