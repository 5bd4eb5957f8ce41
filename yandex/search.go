// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package yandex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/abakirov/mektep/spatial"
	"github.com/abakirov/mektep/utils/httputils"
)

// Place is one organization returned by the search API, flattened to the
// fields the collector stores.
type Place struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Address    string        `json:"address"`
	Point      spatial.Point `json:"point"`
	Categories []string      `json:"categories"` // category names, e.g. "Общеобразовательная школа"
	Classes    []string      `json:"classes"`    // category classes, e.g. "education"
	Phones     []string      `json:"phones"`
	Hours      string        `json:"hours"`
	Site       string        `json:"site"`
}

// Tracks statistics during the search phase.
type SearchMetrics struct {
	Requests int // HTTP requests issued, including retries
	Retries  int // requests that were retries of a failed attempt
	Pages    int // result pages decoded
	Records  int // organizations seen across all pages
}

// Combines two SearchMetrics objects.
func (m *SearchMetrics) Merge(o *SearchMetrics) *SearchMetrics {
	m.Requests += o.Requests
	m.Retries += o.Retries
	m.Pages += o.Pages
	m.Records += o.Records

	return m
}

// The subset of the GeoJSON-ish search response the collector cares about.
type searchResponse struct {
	Features []feature `json:"features"`
}

type feature struct {
	Geometry struct {
		Coordinates []float64 `json:"coordinates"` // lon, lat
	} `json:"geometry"`
	Properties struct {
		Name            string           `json:"name"`
		Description     string           `json:"description"`
		CompanyMetaData *companyMetaData `json:"CompanyMetaData"`
	} `json:"properties"`
}

type companyMetaData struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	Phones  []struct {
		Formatted string `json:"formatted"`
		Number    string `json:"number"`
	} `json:"Phones"`
	Categories []struct {
		Class string `json:"class"`
		Name  string `json:"name"`
	} `json:"Categories"`
	Hours *struct {
		Text string `json:"text"`
	} `json:"Hours"`
	Links []struct {
		Href string `json:"href"`
	} `json:"Links"`
}

// Flattens a feature to a Place. CompanyMetaData is the richer source but
// not every feature carries it, so the bare GeoJSON properties act as the
// fallback for name and address.
func (f *feature) place() Place {
	p := Place{
		Name:    f.Properties.Name,
		Address: f.Properties.Description,
	}

	if len(f.Geometry.Coordinates) == 2 {
		p.Point = spatial.Point{
			Lat: f.Geometry.Coordinates[1],
			Lng: f.Geometry.Coordinates[0],
		}
	}

	meta := f.Properties.CompanyMetaData
	if meta == nil {
		return p
	}

	p.ID = meta.ID

	if meta.Name != "" {
		p.Name = meta.Name
	}

	if meta.Address != "" {
		p.Address = meta.Address
	}

	for _, phone := range meta.Phones {
		switch {
		case phone.Formatted != "":
			p.Phones = append(p.Phones, phone.Formatted)
		case phone.Number != "":
			p.Phones = append(p.Phones, phone.Number)
		}
	}

	for _, category := range meta.Categories {
		if category.Name != "" {
			p.Categories = append(p.Categories, category.Name)
		}

		if category.Class != "" {
			p.Classes = append(p.Classes, category.Class)
		}
	}

	if meta.Hours != nil {
		p.Hours = meta.Hours.Text
	}

	if len(meta.Links) > 0 {
		p.Site = meta.Links[0].Href
	}

	return p
}

// wireBBox converts a tile back to the "lon1,lat1~lon2,lat2" bounding box
// parameter the API expects. One degree of latitude is about 111.32km and
// longitude shrinks with cos(lat), floored so the box stays finite near
// the poles.
func wireBBox(tile spatial.Tile) string {
	const metersPerDegree = 111320.0

	dLat := tile.Radius / metersPerDegree

	cosLat := math.Cos(tile.Center.Lat * math.Pi / 180)
	if cosLat < 0.01 {
		cosLat = 0.01
	}

	dLng := tile.Radius / (metersPerDegree * cosLat)

	return fmt.Sprintf("%g,%g~%g,%g",
		tile.Center.Lng-dLng, tile.Center.Lat-dLat,
		tile.Center.Lng+dLng, tile.Center.Lat+dLat)
}

// Issues one throttled request and decodes the response.
func (c *Client) doSearch(ctx context.Context, reqURL *url.URL) (*searchResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	c.mu.Lock()
	c.metrics.Requests++
	c.mu.Unlock()

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, &SearchError{Type: ErrorTypeTimeout, Message: "тайм-аут запроса", Err: err}
		}

		return nil, &SearchError{Type: ErrorTypeNetwork, Message: "сбой соединения", Err: err}
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPStatus(resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decoding response from %s: %w",
			httputils.RedactURL(reqURL, "apikey"), err)
	}

	return &decoded, nil
}

// fetches a single page of search results, retrying transient failures.
func (c *Client) searchPage(ctx context.Context, query, bbox string, skip int) (*searchResponse, error) {
	params := url.Values{}
	params.Set("text", query)
	params.Set("type", "biz")
	params.Set("lang", c.lang())
	params.Set("results", strconv.Itoa(pageSize))
	params.Set("bbox", bbox)
	params.Set("apikey", c.options.APIKey)

	if skip > 0 {
		params.Set("skip", strconv.Itoa(skip))
	}

	reqURL := *c.baseURL
	reqURL.RawQuery = params.Encode()

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries(); attempt++ {
		if attempt > 0 {
			c.mu.Lock()
			c.metrics.Retries++
			c.mu.Unlock()

			timer := time.NewTimer(c.retryBackoff() << (attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()

				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		resp, err := c.doSearch(ctx, &reqURL)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		// Stop conditions
		if !IsTransientError(err) {
			break
		}
	}

	return nil, lastErr
}

// TileSearch runs a paginated search over one tile and returns every place
// the API reports inside it. Pagination stops at the first short page or
// after maxPages pages, whichever comes first.
func (c *Client) TileSearch(ctx context.Context, tile spatial.Tile, query string) ([]Place, error) {
	bbox := wireBBox(tile)

	var places []Place

	for page := range maxPages {
		decoded, err := c.searchPage(ctx, query, bbox, page*pageSize)
		if err != nil {
			return nil, fmt.Errorf("querying tile %s page %d: %w", tile, page+1, err)
		}

		c.mu.Lock()
		c.metrics.Pages++
		c.metrics.Records += len(decoded.Features)
		c.mu.Unlock()

		for i := range decoded.Features {
			places = append(places, decoded.Features[i].place())
		}

		if len(decoded.Features) < pageSize {
			break
		}
	}

	return places, nil
}
