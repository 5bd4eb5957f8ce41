// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/spf13/cobra"

	"github.com/abakirov/mektep/collect"
)

var serveOptions = struct {
	outputDir string
	addr      string
}{}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запускает локальный просмотр собранного каталога",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		dbpath := filepath.Join(serveOptions.outputDir, catalogFile)

		if _, err := os.Stat(dbpath); errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("database not found at %s - run 'collect' first", dbpath)
		}

		db, err := sql.Open("duckdb", dbpath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		repo, err := collect.NewSQLSchoolRepository(db)
		if err != nil {
			return fmt.Errorf("initializing repository: %w", err)
		}

		if err := repo.CreateSchema(); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}

		fmt.Println("🏫 Каталог школ:", dbpath)
		fmt.Printf("📍 Открой http://%s в браузере\n", serveOptions.addr)
		fmt.Println("🔒 Только локально, наружу не выставляется")

		return collect.NewServer(repo, serveOptions.addr).Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.PersistentFlags().StringVar(
		&serveOptions.outputDir,
		"output-dir",
		"./output",
		"Каталог с базой DuckDB",
	)
	serveCmd.PersistentFlags().StringVar(
		&serveOptions.addr,
		"addr",
		collect.DefaultAddr,
		"Адрес, на котором слушает сервер",
	)
}
