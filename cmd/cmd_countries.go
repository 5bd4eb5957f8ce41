// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abakirov/mektep/collect"
)

// pad pads by rune count, fmt's %-14s counts bytes and misaligns
// cyrillic cells.
func pad(s string, width int) string {
	if n := width - len([]rune(s)); n > 0 {
		return s + strings.Repeat(" ", n)
	}

	return s
}

var countriesCmd = &cobra.Command{
	Use:   "countries",
	Short: "Список поддерживаемых стран",
	RunE: func(_ *cobra.Command, _ []string) error {
		a, b, c := strings.Repeat("─", 3), strings.Repeat("─", 14), strings.Repeat("─", 30)
		fmt.Println("Поддерживаемые страны:")
		fmt.Printf("╭─%s─┬─%s─┬─%s─╮\n", a, b, c)
		fmt.Printf("│ %s │ %s │ %s │\n", pad("Код", 3), pad("Страна", 14), pad("Границы", 30))
		fmt.Printf("├─%s─┼─%s─┼─%s─┤\n", a, b, c)
		err := collect.EachCountry(func(country collect.Country) error {
			fmt.Printf("│ %s │ %s │ %s │\n",
				pad(country.Code, 3),
				pad(country.Name, 14),
				pad(country.BBox.String(), 30),
			)

			return nil
		})
		fmt.Printf("╰─%s─┴─%s─┴─%s─╯\n", a, b, c)

		return err
	},
}

func init() {
	rootCmd.AddCommand(countriesCmd)
}
