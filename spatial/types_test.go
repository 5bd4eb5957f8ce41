// Copyright 2025 The Mektep Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointString(t *testing.T) {
	p := Point{Lat: 42.87, Lng: 74.59}

	assert.Equal(t, "POINT(74.590000 42.870000)", p.String())
}

func TestPointValue(t *testing.T) {
	p := Point{Lat: 42.87, Lng: 74.59}

	v, err := p.Value()
	require.NoError(t, err)
	assert.Equal(t, "POINT(74.590000 42.870000)", v)
}

func TestPointScan(t *testing.T) {
	tests := []struct {
		name      string
		input     any
		expected  Point
		expectErr bool
	}{
		{"nil resets", nil, Point{}, false},
		{"duckdb text", []byte("POINT (74.59 42.87)"), Point{Lat: 42.87, Lng: 74.59}, false},
		{"duckdb struct", map[string]interface{}{"x": 74.59, "y": 42.87}, Point{Lat: 42.87, Lng: 74.59}, false},
		{"map missing fields", map[string]interface{}{"x": 74.59}, Point{}, true},
		{"unsupported type", 42, Point{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var p Point

			err := p.Scan(tc.input)
			if tc.expectErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expected, p)
		})
	}
}

func TestHaversineDistance(t *testing.T) {
	bishkek := Point{Lat: 42.8746, Lng: 74.5698}

	t.Run("zero for same point", func(t *testing.T) {
		assert.Zero(t, bishkek.HaversineDistance(&bishkek))
	})

	t.Run("one degree of latitude", func(t *testing.T) {
		a := Point{Lat: 42, Lng: 74}
		b := Point{Lat: 43, Lng: 74}

		// One degree of arc on a 6371km sphere is about 111.19km.
		assert.InDelta(t, 111195, a.HaversineDistance(&b), 10)
	})

	t.Run("longitude shrinks with latitude", func(t *testing.T) {
		a := Point{Lat: 60, Lng: 74}
		b := Point{Lat: 60, Lng: 75}

		// cos(60°) == 0.5, so half of a degree of arc.
		assert.InDelta(t, 55597, a.HaversineDistance(&b), 10)
	})

	t.Run("symmetric", func(t *testing.T) {
		almaty := Point{Lat: 43.2220, Lng: 76.8512}

		assert.Equal(t, bishkek.HaversineDistance(&almaty), almaty.HaversineDistance(&bishkek))
	})
}

func TestBBoxValid(t *testing.T) {
	assert.True(t, BBox{MinLng: 69.2, MinLat: 39.2, MaxLng: 80.35, MaxLat: 43.35}.Valid())
	assert.False(t, BBox{}.Valid())
	assert.False(t, BBox{MinLng: 80, MinLat: 39, MaxLng: 69, MaxLat: 43}.Valid())
	assert.False(t, BBox{MinLng: 69, MinLat: 43, MaxLng: 80, MaxLat: 39}.Valid())
}

func TestBBoxCenter(t *testing.T) {
	box := BBox{MinLng: 10, MinLat: 20, MaxLng: 30, MaxLat: 40}

	assert.Equal(t, Point{Lat: 30, Lng: 20}, box.Center())
}
