// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"fmt"

	"github.com/uber/h3-go/v4"

	"github.com/abakirov/mektep/spatial"
	"github.com/abakirov/mektep/yandex"
)

// Candidate is one raw search hit annotated with the tile that produced it.
// The same school usually appears as several candidates: tiles overlap and
// the provider duplicates listings.
type Candidate struct {
	yandex.Place
	Tile spatial.Tile `json:"tile"`
}

// School is one deduplicated school listing.
type School struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Address    string        `json:"address"`
	Point      spatial.Point `json:"point"`
	Categories []string      `json:"categories"`
	Phones     []string      `json:"phones"`
	Hours      string        `json:"hours"`
	Site       string        `json:"site"`
	Merged     int           `json:"merged"` // raw hits folded into this listing
	H3Res1     int64         `json:"-"`
	H3Res2     int64         `json:"-"`
	H3Res3     int64         `json:"-"`
	H3Res4     int64         `json:"-"`
	H3Res5     int64         `json:"-"`
	H3Res6     int64         `json:"-"`
	H3Res7     int64         `json:"-"`
	H3Res8     int64         `json:"-"`
}

func (s *School) computeH3() error {
	if s.Point != (spatial.Point{}) {
		latLng := h3.NewLatLng(s.Point.Lat, s.Point.Lng)
		for res := 1; res <= 8; res++ {
			cell, err := h3.LatLngToCell(latLng, res)
			if err != nil {
				return fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
			}

			switch res {
			case 1:
				s.H3Res1 = int64(cell)
			case 2:
				s.H3Res2 = int64(cell)
			case 3:
				s.H3Res3 = int64(cell)
			case 4:
				s.H3Res4 = int64(cell)
			case 5:
				s.H3Res5 = int64(cell)
			case 6:
				s.H3Res6 = int64(cell)
			case 7:
				s.H3Res7 = int64(cell)
			case 8:
				s.H3Res8 = int64(cell)
			}
		}
	} else {
		// No coordinates, no cells. Zero is not a valid H3 index.
		s.H3Res1 = 0
		s.H3Res2 = 0
		s.H3Res3 = 0
		s.H3Res4 = 0
		s.H3Res5 = 0
		s.H3Res6 = 0
		s.H3Res7 = 0
		s.H3Res8 = 0
	}

	return nil
}
