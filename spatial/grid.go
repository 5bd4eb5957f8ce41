// Copyright 2025 The Mektep Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"errors"
	"fmt"
)

// DefaultOverlap makes neighbouring tiles overlap by 20% so that places
// sitting right on a cell edge are found from at least one tile.
const DefaultOverlap = 1.2

var (
	ErrInvalidBounds    = errors.New("spatial: bounding box spans no area")
	ErrInvalidTileCount = errors.New("spatial: tiles per axis must be positive")
)

// Tile is one cell of a search grid, described by its center and a radius
// that covers the whole cell.
type Tile struct {
	Row    int     `json:"row"`
	Col    int     `json:"col"`
	Center Point   `json:"center"`
	Radius float64 `json:"radius_m"`
}

// String returns a string representation of the Tile.
func (t Tile) String() string {
	return fmt.Sprintf("(%d,%d) %s r=%.0fm", t.Row, t.Col, t.Center, t.Radius)
}

// Grid splits box into tilesPerAxis×tilesPerAxis tiles in row-major order,
// southernmost row first. Each tile radius is the distance from the cell
// center to its farthest corner scaled by overlap, so a circle of that
// radius covers the cell completely. Pass overlap <= 0 for DefaultOverlap.
func Grid(box BBox, tilesPerAxis int, overlap float64) ([]Tile, error) {
	if !box.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidBounds, box)
	}

	if tilesPerAxis < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTileCount, tilesPerAxis)
	}

	if overlap <= 0 {
		overlap = DefaultOverlap
	}

	stepLng := (box.MaxLng - box.MinLng) / float64(tilesPerAxis)
	stepLat := (box.MaxLat - box.MinLat) / float64(tilesPerAxis)
	tiles := make([]Tile, 0, tilesPerAxis*tilesPerAxis)

	for row := range tilesPerAxis {
		for col := range tilesPerAxis {
			cell := BBox{
				MinLng: box.MinLng + float64(col)*stepLng,
				MinLat: box.MinLat + float64(row)*stepLat,
			}
			cell.MaxLng = cell.MinLng + stepLng
			cell.MaxLat = cell.MinLat + stepLat

			center := cell.Center()

			// Meridians converge towards the poles, so the corner
			// farthest from the center is not always the same one.
			radius := 0.0

			for _, corner := range []Point{
				{Lat: cell.MinLat, Lng: cell.MinLng},
				{Lat: cell.MinLat, Lng: cell.MaxLng},
				{Lat: cell.MaxLat, Lng: cell.MinLng},
				{Lat: cell.MaxLat, Lng: cell.MaxLng},
			} {
				if d := center.HaversineDistance(&corner); d > radius {
					radius = d
				}
			}

			tiles = append(tiles, Tile{
				Row:    row,
				Col:    col,
				Center: center,
				Radius: radius * overlap,
			})
		}
	}

	return tiles, nil
}
