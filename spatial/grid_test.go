// Copyright 2025 The Mektep Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kyrgyzstan and russia are the two extremes of the supported bounding
// boxes: a compact box and a very wide, high-latitude one.
var (
	kyrgyzstan = BBox{MinLng: 69.2, MinLat: 39.2, MaxLng: 80.35, MaxLat: 43.35}
	russia     = BBox{MinLng: 19.6, MinLat: 41.2, MaxLng: 190.0, MaxLat: 82.2}
)

func TestGridTileCount(t *testing.T) {
	for _, n := range []int{1, 2, 8} {
		t.Run(fmt.Sprintf("%dx%d", n, n), func(t *testing.T) {
			tiles, err := Grid(kyrgyzstan, n, 0)
			require.NoError(t, err)
			assert.Len(t, tiles, n*n)
		})
	}
}

func TestGridRowMajorOrder(t *testing.T) {
	tiles, err := Grid(kyrgyzstan, 3, 0)
	require.NoError(t, err)

	for i, tile := range tiles {
		assert.Equal(t, i/3, tile.Row)
		assert.Equal(t, i%3, tile.Col)
	}

	// The first row is the southernmost one.
	assert.Less(t, tiles[0].Center.Lat, tiles[len(tiles)-1].Center.Lat)
	assert.Less(t, tiles[0].Center.Lng, tiles[1].Center.Lng)
}

func TestGridDeterministic(t *testing.T) {
	a, err := Grid(kyrgyzstan, 4, 0)
	require.NoError(t, err)

	b, err := Grid(kyrgyzstan, 4, 0)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("grids differ: (-first +second)\n%s", diff)
	}
}

func TestGridCentersInsideBox(t *testing.T) {
	tiles, err := Grid(kyrgyzstan, 8, 0)
	require.NoError(t, err)

	for _, tile := range tiles {
		assert.GreaterOrEqual(t, tile.Center.Lat, kyrgyzstan.MinLat)
		assert.LessOrEqual(t, tile.Center.Lat, kyrgyzstan.MaxLat)
		assert.GreaterOrEqual(t, tile.Center.Lng, kyrgyzstan.MinLng)
		assert.LessOrEqual(t, tile.Center.Lng, kyrgyzstan.MaxLng)
	}
}

// assertCornersCovered checks that every corner of box falls inside the
// circle of at least one tile.
func assertCornersCovered(t *testing.T, box BBox, tiles []Tile) {
	t.Helper()

	corners := []Point{
		{Lat: box.MinLat, Lng: box.MinLng},
		{Lat: box.MinLat, Lng: box.MaxLng},
		{Lat: box.MaxLat, Lng: box.MinLng},
		{Lat: box.MaxLat, Lng: box.MaxLng},
	}

	for _, corner := range corners {
		covered := false

		for _, tile := range tiles {
			if tile.Center.HaversineDistance(&corner) <= tile.Radius {
				covered = true

				break
			}
		}

		assert.True(t, covered, "corner %s not covered by any tile", corner)
	}
}

func TestGridCoversCorners(t *testing.T) {
	for name, box := range map[string]BBox{"kyrgyzstan": kyrgyzstan, "russia": russia} {
		t.Run(name, func(t *testing.T) {
			for _, n := range []int{1, 2, 8} {
				tiles, err := Grid(box, n, 0)
				require.NoError(t, err)
				assertCornersCovered(t, box, tiles)
			}
		})
	}
}

func TestGridOverlapScalesRadius(t *testing.T) {
	base, err := Grid(kyrgyzstan, 2, 1.0)
	require.NoError(t, err)

	scaled, err := Grid(kyrgyzstan, 2, 1.5)
	require.NoError(t, err)

	for i := range base {
		assert.InDelta(t, base[i].Radius*1.5, scaled[i].Radius, 1e-6)
	}
}

func TestGridDefaultOverlap(t *testing.T) {
	implicit, err := Grid(kyrgyzstan, 2, 0)
	require.NoError(t, err)

	explicit, err := Grid(kyrgyzstan, 2, DefaultOverlap)
	require.NoError(t, err)

	if diff := cmp.Diff(explicit, implicit); diff != "" {
		t.Errorf("grids differ: (-explicit +implicit)\n%s", diff)
	}
}

func TestGridErrors(t *testing.T) {
	_, err := Grid(BBox{MinLng: 80, MinLat: 43, MaxLng: 69, MaxLat: 39}, 8, 0)
	require.ErrorIs(t, err, ErrInvalidBounds)

	_, err = Grid(kyrgyzstan, 0, 0)
	require.ErrorIs(t, err, ErrInvalidTileCount)

	_, err = Grid(kyrgyzstan, -3, 0)
	require.ErrorIs(t, err, ErrInvalidTileCount)
}
