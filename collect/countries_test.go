// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"errors"
	"strings"
	"testing"
)

func TestFindCountry(t *testing.T) {
	// table-driven test cases
	tests := []struct {
		name         string
		query        string
		expectedCode string
		expectErr    string
	}{
		{
			name:         "CodeMatch",
			query:        "KG",
			expectedCode: "KG",
		},
		{
			name:         "CodeCaseInsensitive",
			query:        "kz",
			expectedCode: "KZ",
		},
		{
			name:         "NameExactMatch",
			query:        "Грузия",
			expectedCode: "GE",
		},
		{
			name:         "NamePrefixMatch",
			query:        "Кырг",
			expectedCode: "KG",
		},
		{
			name:         "NameCaseInsensitive",
			query:        "узбек",
			expectedCode: "UZ",
		},
		{
			name:      "NoMatch",
			query:     "Атлантида",
			expectErr: "not found",
		},
		{
			name:      "MultipleMatches",
			query:     "К", // Кыргызстан, Казахстан
			expectErr: "multiple matches",
		},
		{
			name:      "Empty",
			query:     "",
			expectErr: "empty",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := FindCountry(tc.query)
			// Check error conditions
			if tc.expectErr != "" {
				switch {
				case got != nil:
					t.Errorf("FindCountry(%q) expected nil country", tc.query)
				case err == nil:
					t.Errorf("FindCountry(%q) expected error but got none", tc.query)
				case !strings.Contains(err.Error(), tc.expectErr):
					t.Errorf("FindCountry(%q) expecting %v but got: %v", tc.query, tc.expectErr, err)
				}
			} else {
				if err != nil {
					t.Errorf("FindCountry(%q) unexpected error: %v", tc.query, err)
				}

				if got == nil {
					t.Errorf("FindCountry(%q) expected %q but got nil", tc.query, tc.expectedCode)
				} else if got.Code != tc.expectedCode {
					t.Errorf("FindCountry(%q) expected code %q, got %q", tc.query, tc.expectedCode, got.Code)
				}
			}
		})
	}
}

func TestFindCountryReturnsCopy(t *testing.T) {
	a, err := FindCountry("KG")
	if err != nil {
		t.Fatal(err)
	}

	a.Name = "mutated"

	b, err := FindCountry("KG")
	if err != nil {
		t.Fatal(err)
	}

	if b.Name != "Кыргызстан" {
		t.Errorf("registry was mutated through a returned pointer: %q", b.Name)
	}
}

func TestEachCountry_Ok(t *testing.T) {
	var found []string

	err := EachCountry(func(c Country) error {
		found = append(found, c.Code)

		return nil
	})
	if err != nil {
		t.Errorf("unexpected error: %s", err)
	} else if expected, got := "KG", found[0]; expected != got {
		t.Errorf("expected %q, got %q", expected, got)
	} else if expected, got := "GE", found[len(found)-1]; expected != got {
		t.Errorf("expected %q, got %q", expected, got)
	} else if expected, got := 11, len(found); expected != got {
		t.Errorf("expected %d countries, got %d", expected, got)
	}
}

func TestEachCountry_Err(t *testing.T) {
	var found []string

	i := 0

	err := EachCountry(func(c Country) (err error) {
		if i >= 2 {
			err = errors.New("fail")
		} else {
			found = append(found, c.Code)
		}

		i++

		return err
	})
	if err == nil {
		t.Error("expecting an error")
	} else if expected, got := "KG", found[0]; expected != got {
		t.Errorf("expected %q, got %q", expected, got)
	} else if expected, got := "KZ", found[len(found)-1]; expected != got {
		t.Errorf("expected %q, got %q", expected, got)
	}
}
