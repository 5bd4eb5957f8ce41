// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/uber/h3-go/v4"

	"github.com/abakirov/mektep/collect/utils"
)

// CountryCount summarizes what the catalog holds for one country.
type CountryCount struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Schools  int    `json:"schools"`
	Failures int    `json:"failures"`
}

// CellCount is the number of schools inside one H3 cell.
type CellCount struct {
	Cell  string `json:"cell"`
	Count int    `json:"count"`
}

// SchoolRepository defines the interface for catalog operations.
type SchoolRepository interface {
	// CreateSchema creates the database schema.
	CreateSchema() error
	// ReplaceCountry replaces the stored snapshot of a country with the
	// result of a fresh collection run.
	ReplaceCountry(country *Country, schools []School, failures []Failure) error
	// Countries returns per-country school and failure counts.
	Countries() ([]CountryCount, error)
	// ListSchools returns the schools of a country, optionally filtered by a
	// name or address substring.
	ListSchools(code, q string, limit int) ([]School, error)
	// CellCounts aggregates the schools of a country into H3 cells at the
	// given resolution.
	CellCounts(code string, res int) ([]CellCount, error)
}

type sqlSchoolRepository struct {
	db *sql.DB
}

func NewSQLSchoolRepository(db *sql.DB) (SchoolRepository, error) {
	// DuckDB needs to load the spatial extension
	_, err := db.Exec(`INSTALL spatial; LOAD spatial;`)
	if err != nil {
		return nil, err
	}

	return &sqlSchoolRepository{db: db}, nil
}

func (r *sqlSchoolRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS schools (
			country CHAR(2) NOT NULL,
			school_id VARCHAR,
			name VARCHAR NOT NULL,
			address VARCHAR,
			point POINT_2D,
			categories VARCHAR[],
			phones VARCHAR[],
			hours VARCHAR,
			site VARCHAR,
			merged INTEGER NOT NULL,
			collected_at TIMESTAMPTZ NOT NULL,
			h3_res1 UBIGINT,
			h3_res2 UBIGINT,
			h3_res3 UBIGINT,
			h3_res4 UBIGINT,
			h3_res5 UBIGINT,
			h3_res6 UBIGINT,
			h3_res7 UBIGINT,
			h3_res8 UBIGINT
		);

		CREATE TABLE IF NOT EXISTS tile_failures (
			country CHAR(2) NOT NULL,
			tile_row INTEGER NOT NULL,
			tile_col INTEGER NOT NULL,
			lat DOUBLE,
			lng DOUBLE,
			radius_m DOUBLE,
			error VARCHAR NOT NULL,
			collected_at TIMESTAMPTZ NOT NULL
		);
	`)

	return err
}

func nve(v string) any {
	var ret any
	if len(v) == 0 {
		ret = nil
	} else {
		ret = v
	}

	return ret
}

func nz(v int64) any {
	if v == 0 {
		return nil
	}

	return v
}

func (r *sqlSchoolRepository) ReplaceCountry(country *Country, schools []School, failures []Failure) error {
	for i := range schools {
		if err := schools[i].computeH3(); err != nil {
			return fmt.Errorf("indexing %q: %w", schools[i].Name, err)
		}
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction for %s: %w", country.Code, err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			log.Printf("failed to rollback transaction for %s: %v", country.Code, err)
		}
	}()

	for _, table := range []string{"schools", "tile_failures"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE country = ?", country.Code); err != nil {
			return fmt.Errorf("deleting %s rows for %s: %w", table, country.Code, err)
		}
	}

	now := time.Now().UTC()

	stmt, err := tx.Prepare(`
		INSERT INTO schools (
			country, school_id, name, address, point,
			categories, phones, hours, site, merged, collected_at,
			h3_res1, h3_res2, h3_res3, h3_res4, h3_res5, h3_res6, h3_res7, h3_res8
		) VALUES (?, ?, ?, ?, ST_Point(?, ?), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing school statement: %w", err)
	}
	defer stmt.Close()

	for i := range schools {
		s := &schools[i]

		var lng, lat any
		if s.Point.Lat != 0 || s.Point.Lng != 0 {
			lng = s.Point.Lng
			lat = s.Point.Lat
		}

		_, err := stmt.Exec(
			country.Code,
			nve(s.ID),
			s.Name,
			nve(s.Address),
			lng,
			lat,
			s.Categories,
			s.Phones,
			nve(s.Hours),
			nve(s.Site),
			s.Merged,
			now,
			nz(s.H3Res1),
			nz(s.H3Res2),
			nz(s.H3Res3),
			nz(s.H3Res4),
			nz(s.H3Res5),
			nz(s.H3Res6),
			nz(s.H3Res7),
			nz(s.H3Res8),
		)
		if err != nil {
			return fmt.Errorf("inserting %q: %w", s.Name, err)
		}
	}

	fstmt, err := tx.Prepare(`
		INSERT INTO tile_failures (
			country, tile_row, tile_col, lat, lng, radius_m, error, collected_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing failure statement: %w", err)
	}
	defer fstmt.Close()

	for _, f := range failures {
		_, err := fstmt.Exec(
			country.Code,
			f.Tile.Row,
			f.Tile.Col,
			f.Tile.Center.Lat,
			f.Tile.Center.Lng,
			f.Tile.Radius,
			f.Err,
			now,
		)
		if err != nil {
			return fmt.Errorf("inserting failure for tile %s: %w", f.Tile.String(), err)
		}
	}

	return tx.Commit()
}

func (r *sqlSchoolRepository) Countries() ([]CountryCount, error) {
	counts := make(map[string]*CountryCount)

	get := func(code string) *CountryCount {
		c, ok := counts[code]
		if !ok {
			c = &CountryCount{Code: code}
			if country, err := FindCountry(code); err == nil {
				c.Name = country.Name
			}

			counts[code] = c
		}

		return c
	}

	rows, err := r.db.Query("SELECT country, COUNT(*) FROM schools GROUP BY country")
	if err != nil {
		return nil, fmt.Errorf("counting schools: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code string

		var n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scanning school count: %w", err)
		}

		get(code).Schools = n
	}

	frows, err := r.db.Query("SELECT country, COUNT(*) FROM tile_failures GROUP BY country")
	if err != nil {
		return nil, fmt.Errorf("counting failures: %w", err)
	}
	defer frows.Close()

	for frows.Next() {
		var code string

		var n int
		if err := frows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("scanning failure count: %w", err)
		}

		get(code).Failures = n
	}

	ret := make([]CountryCount, 0, len(counts))
	for _, c := range counts {
		ret = append(ret, *c)
	}

	sort.Slice(ret, func(i, j int) bool { return ret[i].Code < ret[j].Code })

	return ret, nil
}

var schoolSelect = `
	SELECT school_id, name, address, point,
	       categories, phones, hours, site, merged,
	       h3_res1, h3_res2, h3_res3, h3_res4, h3_res5, h3_res6, h3_res7, h3_res8
	FROM schools
`

// maxListLimit caps a single page of results. Even Moscow fits.
const maxListLimit = 1000

func (r *sqlSchoolRepository) ListSchools(code, q string, limit int) ([]School, error) {
	query := schoolSelect + " WHERE country = ?"
	args := []any{code}

	if q != "" {
		pattern := "%" + q + "%"
		query += " AND (name ILIKE ? OR address ILIKE ?)"

		args = append(args, pattern, pattern)
	}

	query += " ORDER BY name"

	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	query += " LIMIT ?"
	args = append(args, limit)

	return r.list(query, args)
}

func (r *sqlSchoolRepository) list(query string, args []any) ([]School, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schools []School

	for rows.Next() {
		var s School

		var id, address, hours, site sql.NullString

		var categories, phones any

		var h3Res1, h3Res2, h3Res3, h3Res4, h3Res5, h3Res6, h3Res7, h3Res8 sql.NullInt64

		err := rows.Scan(
			&id, &s.Name, &address, &s.Point,
			&categories, &phones, &hours, &site, &s.Merged,
			&h3Res1, &h3Res2, &h3Res3, &h3Res4, &h3Res5, &h3Res6, &h3Res7, &h3Res8,
		)
		if err != nil {
			return nil, err
		}

		s.ID = id.String
		s.Address = address.String
		s.Hours = hours.String
		s.Site = site.String

		if xs, ok := utils.AnyToStringSlice(categories); ok {
			s.Categories = xs
		}

		if xs, ok := utils.AnyToStringSlice(phones); ok {
			s.Phones = xs
		}

		if h3Res1.Valid {
			s.H3Res1 = h3Res1.Int64
		}

		if h3Res2.Valid {
			s.H3Res2 = h3Res2.Int64
		}

		if h3Res3.Valid {
			s.H3Res3 = h3Res3.Int64
		}

		if h3Res4.Valid {
			s.H3Res4 = h3Res4.Int64
		}

		if h3Res5.Valid {
			s.H3Res5 = h3Res5.Int64
		}

		if h3Res6.Valid {
			s.H3Res6 = h3Res6.Int64
		}

		if h3Res7.Valid {
			s.H3Res7 = h3Res7.Int64
		}

		if h3Res8.Valid {
			s.H3Res8 = h3Res8.Int64
		}

		schools = append(schools, s)
	}

	return schools, nil
}

func (r *sqlSchoolRepository) CellCounts(code string, res int) ([]CellCount, error) {
	if res < 1 || res > 8 {
		return nil, fmt.Errorf("h3 resolution out of range: %d", res)
	}

	// res is validated above, the column name is safe to interpolate.
	column := fmt.Sprintf("h3_res%d", res)

	rows, err := r.db.Query(fmt.Sprintf(`
		SELECT %s, COUNT(*)
		FROM schools
		WHERE country = ? AND %s IS NOT NULL
		GROUP BY 1
		ORDER BY 2 DESC, 1
	`, column, column), code)
	if err != nil {
		return nil, fmt.Errorf("aggregating cells: %w", err)
	}
	defer rows.Close()

	var counts []CellCount

	for rows.Next() {
		var cell int64

		var n int
		if err := rows.Scan(&cell, &n); err != nil {
			return nil, fmt.Errorf("scanning cell count: %w", err)
		}

		counts = append(counts, CellCount{Cell: h3.Cell(cell).String(), Count: n})
	}

	return counts, nil
}
