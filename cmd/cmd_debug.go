// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abakirov/mektep/collect"
	"github.com/abakirov/mektep/yandex"
)

// we say that it isn't.
func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}

	return (info.Mode() & os.ModeCharDevice) != 0
}

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Dev tools",
}

var debugClassifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Интерактивная проверка фильтра школ",
	Long: `Читает по названию на строку (после табуляции можно перечислить
категории через запятую) и печатает решение фильтра в строгом и
нестрогом режимах.

$ echo 'Автошкола №3' | mektep debug classify
Автошкола №3		{"strict":{"included":false,…},"lenient":{"included":false,…}}
	`,
	Run: func(_ *cobra.Command, _ []string) {
		strict := collect.NewClassifier(true)
		lenient := collect.NewClassifier(false)

		input := os.Stdin
		if isTerminal(input) {
			fmt.Fprintln(os.Stderr, "Введите названия для проверки, по одному на строку…")
		}
		scanner := bufio.NewScanner(input)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.TrimSpace(line) == "" {
				continue
			}

			place := yandex.Place{Name: line}
			if name, rest, found := strings.Cut(line, "\t"); found {
				place.Name = name
				for _, category := range strings.Split(rest, ",") {
					if category = strings.TrimSpace(category); category != "" {
						place.Categories = append(place.Categories, category)
					}
				}
			}

			verdicts := map[string]collect.Decision{
				"strict":  strict.Classify(&place),
				"lenient": lenient.Classify(&place),
			}
			if s, err := json.Marshal(verdicts); err == nil {
				fmt.Printf("%s\t\t%s\n", place.Name, s)
			} else {
				log.Fatal(err)
			}
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(debugCmd)
	debugCmd.AddCommand(debugClassifyCmd)
}
