// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

// Package collect turns Yandex Maps organization search results into
// per-country school listings.
package collect

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/abakirov/mektep/spatial"
	"github.com/abakirov/mektep/yandex"
)

const (
	// DefaultTilesPerAxis splits a country bounding box into an 8×8 grid.
	DefaultTilesPerAxis = 8
	// DefaultQuery is the search text sent for every tile.
	DefaultQuery = "школа"
	// DefaultMaxProcs bounds the number of tiles queried concurrently.
	DefaultMaxProcs = 4
)

// Searcher is the part of the Yandex client the collector needs.
type Searcher interface {
	// TileSearch returns all organizations matching query inside the tile.
	TileSearch(ctx context.Context, tile spatial.Tile, query string) ([]yandex.Place, error)
}

// Options configures a collection run.
type Options struct {
	// TilesPerAxis splits the country bounding box into n×n search tiles.
	TilesPerAxis int
	// Overlap scales the tile search radius, see spatial.DefaultOverlap.
	Overlap float64
	// Query is the text submitted to the organization search.
	Query string
	// Strict keeps only general-education schools when true.
	Strict bool
	// CoordPrecision is the coordinate rounding used for deduplication.
	CoordPrecision int
	// MaxProcs bounds the number of concurrent tile searches.
	MaxProcs int
}

// Failure records a tile whose search did not complete.
type Failure struct {
	Tile spatial.Tile `json:"tile"`
	Err  string       `json:"error"`
}

// Metrics tracks statistics during the collection phase.
type Metrics struct {
	TilesOK     int
	TilesFailed int
	Raw         int
	Excluded    int
	Schools     int
}

// Merge combines two Metrics.
func (m *Metrics) Merge(o *Metrics) *Metrics {
	m.TilesOK += o.TilesOK
	m.TilesFailed += o.TilesFailed
	m.Raw += o.Raw
	m.Excluded += o.Excluded
	m.Schools += o.Schools

	return m
}

// Result is the outcome of collecting one country.
type Result struct {
	Country  *Country  `json:"country"`
	Schools  []School  `json:"schools"`
	Failures []Failure `json:"failures,omitempty"`
	Metrics  Metrics   `json:"-"`
}

// Collector runs tile searches over a country and reduces the hits into a
// deduplicated school listing.
type Collector struct {
	searcher   Searcher
	options    Options
	classifier *Classifier
}

func NewCollector(searcher Searcher, options Options) *Collector {
	if options.TilesPerAxis <= 0 {
		options.TilesPerAxis = DefaultTilesPerAxis
	}

	if options.Query == "" {
		options.Query = DefaultQuery
	}

	if options.MaxProcs <= 0 {
		options.MaxProcs = DefaultMaxProcs
	}

	return &Collector{
		searcher:   searcher,
		options:    options,
		classifier: NewClassifier(options.Strict),
	}
}

// CollectCountry resolves the country by code or name prefix and collects it.
func (c *Collector) CollectCountry(ctx context.Context, q string) (*Result, error) {
	country, err := FindCountry(q)
	if err != nil {
		return nil, err
	}

	return c.Collect(ctx, country)
}

type tileOutcome struct {
	tile   spatial.Tile
	places []yandex.Place
	err    error
}

// Collect queries every tile of the country grid, classifies the hits and
// deduplicates them. A failed tile is recorded and the run continues; a
// fatal search error cancels the remaining tiles and is returned alongside
// the partial result.
func (c *Collector) Collect(ctx context.Context, country *Country) (*Result, error) {
	tiles, err := spatial.Grid(country.BBox, c.options.TilesPerAxis, c.options.Overlap)
	if err != nil {
		return nil, fmt.Errorf("tiling %s: %w", country.Code, err)
	}

	n := len(tiles)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var bar *progressbar.ProgressBar
	if isatty.IsTerminal(os.Stderr.Fd()) {
		bar = progressbar.NewOptions(n,
			progressbar.OptionSetDescription("Collecting "+country.Name),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var wg sync.WaitGroup

	semaphore := make(chan struct{}, c.options.MaxProcs)
	outcomes := make(chan tileOutcome, n)

	var fatalOnce sync.Once

	var fatalErr error

	for _, tile := range tiles {
		wg.Add(1)

		go func(tile spatial.Tile) {
			defer wg.Done()
			semaphore <- struct{}{}

			defer func() { <-semaphore }()

			outcome := tileOutcome{tile: tile}

			if err := ctx.Err(); err != nil {
				outcome.err = err
			} else {
				outcome.places, outcome.err = c.searcher.TileSearch(ctx, tile, c.options.Query)
			}

			if outcome.err != nil && yandex.IsFatalError(outcome.err) {
				// A rejected API key fails every tile the same way.
				fatalOnce.Do(func() {
					fatalErr = outcome.err

					cancel()
				})
			}

			outcomes <- outcome

			if bar == nil {
				log.Printf("Collected tile %s", tile.String())
			} else if err := bar.Add(1); err != nil {
				log.Printf("updating progress bar for %s: %v", tile.String(), err)
			}
		}(tile)
	}

	wg.Wait()
	close(outcomes)

	collected := make([]tileOutcome, 0, n)
	for outcome := range outcomes {
		collected = append(collected, outcome)
	}

	if fatalErr == nil {
		// Caller cancellation surfaces as an error too.
		fatalErr = ctx.Err()
	}

	sort.Slice(collected, func(i, j int) bool {
		if collected[i].tile.Row != collected[j].tile.Row {
			return collected[i].tile.Row < collected[j].tile.Row
		}

		return collected[i].tile.Col < collected[j].tile.Col
	})

	result := &Result{Country: country}

	var candidates []Candidate

	for _, outcome := range collected {
		if outcome.err != nil {
			result.Metrics.TilesFailed++
			result.Failures = append(result.Failures, Failure{Tile: outcome.tile, Err: outcome.err.Error()})

			log.Printf("Tile %s failed - %s", outcome.tile.String(), outcome.err)

			continue
		}

		result.Metrics.TilesOK++
		result.Metrics.Raw += len(outcome.places)

		for _, place := range outcome.places {
			candidates = append(candidates, Candidate{Place: place, Tile: outcome.tile})
		}
	}

	kept := make([]Candidate, 0, len(candidates))

	for i := range candidates {
		if decision := c.classifier.Classify(&candidates[i].Place); !decision.Included {
			result.Metrics.Excluded++

			continue
		}

		kept = append(kept, candidates[i])
	}

	result.Schools = Dedupe(kept, DedupeOptions{CoordPrecision: c.options.CoordPrecision})
	result.Metrics.Schools = len(result.Schools)

	log.Printf(
		"Collection phase complete - %d schools from %d raw hits, %d excluded, %d/%d tiles ok.",
		result.Metrics.Schools,
		result.Metrics.Raw,
		result.Metrics.Excluded,
		result.Metrics.TilesOK,
		n,
	)

	if fatalErr != nil {
		return result, fmt.Errorf("collecting %s: %w", country.Code, fatalErr)
	}

	return result, nil
}
