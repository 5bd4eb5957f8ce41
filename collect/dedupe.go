// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/abakirov/mektep/collect/utils"
	"github.com/abakirov/mektep/spatial"
)

// DefaultCoordPrecision rounds coordinates to 4 decimal places, about 11
// meters, before comparing them. Providers jitter coordinates between
// requests by less than that.
const DefaultCoordPrecision = 4

// DedupeOptions configuration for Dedupe.
type DedupeOptions struct {
	// CoordPrecision is the number of decimal places coordinates keep
	// when used as a merge key, <= 0 for DefaultCoordPrecision
	CoordPrecision int
}

// dsu is a disjoint-set forest over candidate indexes, with path halving
// and union by size. The final partition does not depend on the order the
// unions arrive in.
type dsu struct {
	parent []int
	size   []int
}

func newDSU(n int) *dsu {
	d := &dsu{
		parent: make([]int, n),
		size:   make([]int, n),
	}

	for i := range d.parent {
		d.parent[i] = i
		d.size[i] = 1
	}

	return d
}

func (d *dsu) find(x int) int {
	for d.parent[x] != x {
		d.parent[x] = d.parent[d.parent[x]]
		x = d.parent[x]
	}

	return x
}

func (d *dsu) union(a, b int) {
	ra, rb := d.find(a), d.find(b)
	if ra == rb {
		return
	}

	if d.size[ra] < d.size[rb] {
		ra, rb = rb, ra
	}

	d.parent[rb] = ra
	d.size[ra] += d.size[rb]
}

// keyText normalizes a string for use in merge keys: punctuation and
// symbols become spaces, so "Школа №5" and "Школа, 5" compare equal.
func keyText(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return ' '
		}

		return r
	}, utils.Normalize(s))

	return strings.Join(strings.Fields(mapped), " ")
}

// completeness scores how much a candidate knows about itself. The
// provider ID weighs the most: a hit carrying one is canonical.
func completeness(c *Candidate) int {
	score := 0

	if c.ID != "" {
		score += 4
	}

	if c.Address != "" {
		score += 2
	}

	if c.Point != (spatial.Point{}) {
		score += 2
	}

	if len(c.Phones) > 0 {
		score++
	}

	if c.Hours != "" {
		score++
	}

	if c.Site != "" {
		score++
	}

	return score + len(c.Categories)
}

// Dedupe folds raw candidates into unique schools. Two candidates belong
// to the same school when they share a provider ID, a normalized
// name+address pair, or a normalized name plus rounded coordinates; the
// relation is transitive, so a hit without an ID can still glue two
// differently-named hits of the same school together.
//
// The output is deterministic: schools appear in the order their first
// member appeared in the input, and running Dedupe over its own output
// merges nothing further.
func Dedupe(candidates []Candidate, opts DedupeOptions) []School {
	precision := opts.CoordPrecision
	if precision <= 0 {
		precision = DefaultCoordPrecision
	}

	d := newDSU(len(candidates))

	byID := make(map[string]int)
	byNameAddr := make(map[string]int)
	byNameCoord := make(map[string]int)

	for i := range candidates {
		c := &candidates[i]

		if c.ID != "" {
			if first, ok := byID[c.ID]; ok {
				d.union(first, i)
			} else {
				byID[c.ID] = i
			}
		}

		name := keyText(c.Name)
		if name == "" {
			// Nameless hits only ever merge through their ID
			continue
		}

		addrKey := name + "|" + keyText(c.Address)
		if first, ok := byNameAddr[addrKey]; ok {
			d.union(first, i)
		} else {
			byNameAddr[addrKey] = i
		}

		if c.Point != (spatial.Point{}) {
			coordKey := fmt.Sprintf("%s|%.*f,%.*f",
				name, precision, c.Point.Lat, precision, c.Point.Lng)
			if first, ok := byNameCoord[coordKey]; ok {
				d.union(first, i)
			} else {
				byNameCoord[coordKey] = i
			}
		}
	}

	// Group members by root, keeping first-appearance order
	groups := make(map[int][]int)
	order := make([]int, 0, len(candidates))

	for i := range candidates {
		root := d.find(i)
		if _, ok := groups[root]; !ok {
			order = append(order, root)
		}

		groups[root] = append(groups[root], i)
	}

	schools := make([]School, 0, len(order))
	for _, root := range order {
		schools = append(schools, mergeGroup(candidates, groups[root]))
	}

	return schools
}

// mergeGroup builds one school out of a group of candidates. The most
// complete member becomes the representative; the others fill in whatever
// fields it is missing. Categories are unioned because the same school is
// often listed under different ones.
func mergeGroup(candidates []Candidate, members []int) School {
	best := members[0]

	for _, i := range members[1:] {
		if completeness(&candidates[i]) > completeness(&candidates[best]) {
			best = i
		}
	}

	rep := &candidates[best]

	s := School{
		ID:      rep.ID,
		Name:    rep.Name,
		Address: rep.Address,
		Point:   rep.Point,
		Hours:   rep.Hours,
		Site:    rep.Site,
		Merged:  len(members),
	}

	seenCategory := make(map[string]bool)
	seenPhone := make(map[string]bool)

	for _, i := range members {
		c := &candidates[i]

		for _, category := range c.Categories {
			if !seenCategory[category] {
				seenCategory[category] = true

				s.Categories = append(s.Categories, category)
			}
		}

		for _, phone := range c.Phones {
			if !seenPhone[phone] {
				seenPhone[phone] = true

				s.Phones = append(s.Phones, phone)
			}
		}

		if s.ID == "" && c.ID != "" {
			s.ID = c.ID
		}

		if s.Address == "" && c.Address != "" {
			s.Address = c.Address
		}

		if s.Point == (spatial.Point{}) && c.Point != (spatial.Point{}) {
			s.Point = c.Point
		}

		if s.Hours == "" && c.Hours != "" {
			s.Hours = c.Hours
		}

		if s.Site == "" && c.Site != "" {
			s.Site = c.Site
		}
	}

	sort.Strings(s.Categories)

	return s
}
