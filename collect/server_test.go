// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupAPITest seeds an in-memory catalog and returns a router over it.
func setupAPITest(t *testing.T) (*gin.Engine, *sql.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, repo := setupTestDB(t)

	require.NoError(t, repo.ReplaceCountry(mustFindCountry(t, "KG"), repoSchools(), []Failure{repoFailure()}))

	return NewServer(repo, "").router(), db
}

func get(t *testing.T, router *gin.Engine, url string) *httptest.ResponseRecorder {
	t.Helper()

	w := httptest.NewRecorder()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)

	router.ServeHTTP(w, req)

	return w
}

func TestHealthAPI(t *testing.T) {
	router, db := setupAPITest(t)
	defer db.Close()

	w := get(t, router, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListCountriesAPI(t *testing.T) {
	router, db := setupAPITest(t)
	defer db.Close()

	w := get(t, router, "/api/countries")
	require.Equal(t, http.StatusOK, w.Code)

	var counts []CountryCount
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &counts))
	require.Len(t, counts, 1)

	assert.Equal(t, "KG", counts[0].Code)
	assert.Equal(t, "Кыргызстан", counts[0].Name)
	assert.Equal(t, 2, counts[0].Schools)
	assert.Equal(t, 1, counts[0].Failures)
}

func TestListSchoolsAPI(t *testing.T) {
	router, db := setupAPITest(t)
	defer db.Close()

	w := get(t, router, "/api/schools")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Lowercase country codes are accepted.
	w = get(t, router, "/api/schools?country=kg")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Schools []School `json:"schools"`
		Total   int      `json:"total"`
	}

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Schools, 2)

	w = get(t, router, "/api/schools?country=KG&q=гимназия")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "Школа-гимназия №24", resp.Schools[0].Name)
	assert.InDelta(t, 42.87431, resp.Schools[0].Point.Lat, 1e-9)

	w = get(t, router, "/api/schools?country=KG&limit=1")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)

	w = get(t, router, "/api/schools?country=AM")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)
}

func TestListCellsAPI(t *testing.T) {
	router, db := setupAPITest(t)
	defer db.Close()

	w := get(t, router, "/api/schools/cells")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, router, "/api/schools/cells?country=KG&res=12")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(t, router, "/api/schools/cells?country=KG&res=5")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Res   int         `json:"res"`
		Cells []CellCount `json:"cells"`
	}

	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 5, resp.Res)
	// Only the school with coordinates lands in a cell.
	require.Len(t, resp.Cells, 1)
	assert.Equal(t, 1, resp.Cells[0].Count)

	// Unset res falls back to the default resolution.
	w = get(t, router, "/api/schools/cells?country=KG")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 6, resp.Res)
}
