// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abakirov/mektep/collect/utils"
	"github.com/abakirov/mektep/spatial"
)

var (
	errMultipleMatches = errors.New("multiple matches")
	errCountryNotFound = errors.New("country not found")
)

// Country is one supported collection target.
type Country struct {
	Code string       // ISO 3166-1 alpha-2 code, e.g. "KG"
	Name string       // Russian short name, matching the collection locale
	BBox spatial.BBox // coarse box covering the whole territory
}

// Validate checks if the Country has all required fields.
// Returns an error if any required field is missing.
func (c *Country) Validate() error {
	if len(c.Code) != 2 {
		return fmt.Errorf("country %q: code must be two letters", c.Name)
	}

	if c.Name == "" {
		return fmt.Errorf("country %s: name must not be empty", c.Code)
	}

	if !c.BBox.Valid() {
		return fmt.Errorf("country %s: bounding box %s spans no area", c.Code, c.BBox)
	}

	return nil
}

// All supported countries. The boxes are deliberately generous: a tile
// covering only water or foreign territory merely returns zero results.
var countries = func() []Country {
	ret := []Country{
		{
			Code: "KG",
			Name: "Кыргызстан",
			BBox: spatial.BBox{MinLng: 69.2, MinLat: 39.2, MaxLng: 80.35, MaxLat: 43.35},
		},
		{
			Code: "KZ",
			Name: "Казахстан",
			BBox: spatial.BBox{MinLng: 46.5, MinLat: 40.56, MaxLng: 87.3, MaxLat: 55.6},
		},
		{
			Code: "RU",
			Name: "Россия",
			BBox: spatial.BBox{MinLng: 19.6, MinLat: 41.2, MaxLng: 190.0, MaxLat: 82.2},
		},
		{
			Code: "BY",
			Name: "Беларусь",
			BBox: spatial.BBox{MinLng: 23.1, MinLat: 51.2, MaxLng: 32.8, MaxLat: 56.2},
		},
		{
			Code: "UA",
			Name: "Украина",
			BBox: spatial.BBox{MinLng: 22.1, MinLat: 44.0, MaxLng: 40.3, MaxLat: 52.5},
		},
		{
			Code: "UZ",
			Name: "Узбекистан",
			BBox: spatial.BBox{MinLng: 55.9, MinLat: 37.2, MaxLng: 73.4, MaxLat: 46.8},
		},
		{
			Code: "TJ",
			Name: "Таджикистан",
			BBox: spatial.BBox{MinLng: 67.3, MinLat: 36.6, MaxLng: 75.2, MaxLat: 41.1},
		},
		{
			Code: "TM",
			Name: "Туркменистан",
			BBox: spatial.BBox{MinLng: 52.4, MinLat: 35.1, MaxLng: 66.7, MaxLat: 42.8},
		},
		{
			Code: "AM",
			Name: "Армения",
			BBox: spatial.BBox{MinLng: 43.4, MinLat: 38.8, MaxLng: 46.7, MaxLat: 41.3},
		},
		{
			Code: "AZ",
			Name: "Азербайджан",
			BBox: spatial.BBox{MinLng: 44.8, MinLat: 38.4, MaxLng: 51.9, MaxLat: 41.9},
		},
		{
			Code: "GE",
			Name: "Грузия",
			BBox: spatial.BBox{MinLng: 39.9, MinLat: 41.0, MaxLng: 46.8, MaxLat: 43.7},
		},
	}

	// Validate the registry at startup
	for i := range ret {
		if err := ret[i].Validate(); err != nil {
			panic(err)
		}
	}

	return ret
}()

// FindCountry locates a country by its ISO code or by a prefix of its name.
// Code matches are exact and case insensitive; name matches must be
// unambiguous. Returns an error if no match or multiple matches are found.
func FindCountry(q string) (*Country, error) {
	if q == "" {
		return nil, errors.New("empty search query")
	}

	for i := range countries {
		if strings.EqualFold(countries[i].Code, q) {
			// Create a copy to avoid returning a reference to the slice element
			c := countries[i]

			return &c, nil
		}
	}

	var found *Country

	prefix := utils.Normalize(q)

	for i := range countries {
		if strings.HasPrefix(utils.Normalize(countries[i].Name), prefix) {
			if found == nil {
				c := countries[i]
				found = &c
			} else {
				return nil, fmt.Errorf("%w for %q: %q, %q", errMultipleMatches, q, found.Name, countries[i].Name)
			}
		}
	}

	if found == nil {
		return nil, fmt.Errorf("%w: %q", errCountryNotFound, q)
	}

	return found, nil
}

// EachCountry applies the given callback function to each country.
// It stops iteration and returns the error if the callback returns an error.
func EachCountry(callback func(Country) error) error {
	for i := range countries {
		if err := callback(countries[i]); err != nil {
			return err
		}
	}

	return nil
}
