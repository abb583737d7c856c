package geo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Открытое кольцо: квадрат 10x10, первая вершина не повторяется
func openSquare() []Point {
	return []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 10},
		{Lat: 10, Lon: 10},
		{Lat: 10, Lon: 0},
	}
}

func TestNewRing_AutoClosesOpenRing(t *testing.T) {
	ring, err := NewRing(openSquare())

	require.NoError(t, err)
	assert.Len(t, ring, 5)
	assert.Equal(t, ring[0], ring[len(ring)-1])

	// Точка заведомо в центре кольца должна тестироваться как внутренняя
	assert.True(t, ring.Contains(Point{Lat: 5, Lon: 5}))
}

func TestNewRing_KeepsClosedRing(t *testing.T) {
	points := append(openSquare(), Point{Lat: 0, Lon: 0})

	ring, err := NewRing(points)

	require.NoError(t, err)
	assert.Len(t, ring, 5)
	assert.True(t, ring.Contains(Point{Lat: 5, Lon: 5}))
}

func TestNewRing_TooFewDistinctVertices(t *testing.T) {
	points := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 10},
		{Lat: 0, Lon: 0},
	}

	_, err := NewRing(points)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooFewVertices)
}

func TestRing_Contains_OutsidePoint(t *testing.T) {
	ring, err := NewRing(openSquare())
	require.NoError(t, err)

	assert.False(t, ring.Contains(Point{Lat: 15, Lon: 5}))
	assert.False(t, ring.Contains(Point{Lat: -1, Lon: -1}))
}

func TestRing_Contains_BoundaryCountsAsInside(t *testing.T) {
	ring, err := NewRing(openSquare())
	require.NoError(t, err)

	// Точка на ребре
	assert.True(t, ring.Contains(Point{Lat: 0, Lon: 5}))
	// Точка в вершине
	assert.True(t, ring.Contains(Point{Lat: 10, Lon: 10}))
}

func TestRing_Contains_ConcavePolygon(t *testing.T) {
	// Невыпуклый полигон в форме буквы "Г"
	points := []Point{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 10},
		{Lat: 4, Lon: 10},
		{Lat: 4, Lon: 4},
		{Lat: 10, Lon: 4},
		{Lat: 10, Lon: 0},
	}
	ring, err := NewRing(points)
	require.NoError(t, err)

	assert.True(t, ring.Contains(Point{Lat: 2, Lon: 8}))
	assert.True(t, ring.Contains(Point{Lat: 8, Lon: 2}))
	// Выемка не входит в полигон
	assert.False(t, ring.Contains(Point{Lat: 8, Lon: 8}))
}
