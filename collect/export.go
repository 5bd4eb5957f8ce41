// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// csvHeader is the column layout consumers of the per-country files
// already rely on. Changing it breaks their importers.
var csvHeader = []string{
	"id", "name", "address", "lat", "lon",
	"phones", "categories", "hours_text", "site_url",
}

// exportRecord is the flat on-disk shape of a school, shared by the CSV
// and JSON files. Coordinates are pointers so schools without a location
// export as null rather than as the Null Island.
type exportRecord struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	Phones     []string `json:"phones"`
	Categories []string `json:"categories"`
	HoursText  string   `json:"hours_text"`
	SiteURL    string   `json:"site_url"`
}

func newExportRecord(s *School) exportRecord {
	r := exportRecord{
		ID:         s.ID,
		Name:       s.Name,
		Address:    s.Address,
		Phones:     s.Phones,
		Categories: s.Categories,
		HoursText:  s.Hours,
		SiteURL:    s.Site,
	}

	if s.Point.Lat != 0 || s.Point.Lng != 0 {
		lat, lon := s.Point.Lat, s.Point.Lng
		r.Lat, r.Lon = &lat, &lon
	}

	return r
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}

	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// WriteCSV writes the schools in the fixed csvHeader column order.
func WriteCSV(w io.Writer, schools []School) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}

	for i := range schools {
		r := newExportRecord(&schools[i])

		record := []string{
			r.ID,
			r.Name,
			r.Address,
			formatCoord(r.Lat),
			formatCoord(r.Lon),
			strings.Join(r.Phones, ", "),
			strings.Join(r.Categories, ", "),
			r.HoursText,
			r.SiteURL,
		}

		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing CSV record %d: %w", i, err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// WriteJSON writes the schools as an indented JSON array, with HTML
// escaping off so URLs stay readable.
func WriteJSON(w io.Writer, schools []School) error {
	records := make([]exportRecord, 0, len(schools))
	for i := range schools {
		records = append(records, newExportRecord(&schools[i]))
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	return nil
}

// ExportFiles writes the per-country CSV and JSON files into dir and
// returns their paths.
func ExportFiles(dir string, country *Country, schools []School) (csvPath, jsonPath string, err error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", "", fmt.Errorf("creating output directory %q: %w", dir, err)
	}

	code := strings.ToLower(country.Code)
	csvPath = filepath.Join(dir, code+"_schools.csv")
	jsonPath = filepath.Join(dir, code+"_schools.json")

	var buf bytes.Buffer

	if err := WriteCSV(&buf, schools); err != nil {
		return "", "", err
	}

	if err := os.WriteFile(csvPath, buf.Bytes(), 0o600); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", csvPath, err)
	}

	buf.Reset()

	if err := WriteJSON(&buf, schools); err != nil {
		return "", "", err
	}

	if err := os.WriteFile(jsonPath, buf.Bytes(), 0o600); err != nil {
		return "", "", fmt.Errorf("writing %s: %w", jsonPath, err)
	}

	return csvPath, jsonPath, nil
}
