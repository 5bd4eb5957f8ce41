// Copyright 2025 The Mektep Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/abakirov/mektep/collect"
	"github.com/abakirov/mektep/collect/utils"
	"github.com/abakirov/mektep/spatial"
	"github.com/abakirov/mektep/yandex"
)

const catalogFile = "mektep.duckdb"

type collectFlags struct {
	tiles          int
	overlap        float64
	query          string
	lang           string
	outputDir      string
	maxProcs       int
	coordPrecision int
	strict         bool
	dryRun         bool
	interactive    bool
	traceHTTP      bool
	traceHTTPBody  bool
}

var collectOptions = &collectFlags{}

var collectCmd = &cobra.Command{
	Use:   "collect [страна]",
	Short: "Собирает список школ для страны",
	Long: `
Разбивает территорию страны на сетку тайлов, опрашивает поиск по
организациям Яндекс Карт по каждому тайлу, фильтрует заведения по
названию и категориям и склеивает дубликаты. Итог сохраняется в
<output-dir>/{код}_schools.csv, {код}_schools.json и в каталог DuckDB.

Ключ API берётся из переменной окружения YANDEX_MAPS_API_KEY,
файл .env в текущем каталоге подхватывается автоматически.
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCollect,
}

// Flags win over the environment, the environment wins over defaults.
func applyCollectEnv(cmd *cobra.Command) error {
	flags := cmd.Flags()

	if !flags.Changed("tiles") {
		if v := os.Getenv("TILES_PER_AXIS"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("parsing TILES_PER_AXIS=%q: %w", v, err)
			}

			collectOptions.tiles = n
		}
	}

	if !flags.Changed("output-dir") {
		if v := os.Getenv("OUTPUT_DIR"); v != "" {
			collectOptions.outputDir = v
		}
	}

	if !flags.Changed("strict") {
		if v := os.Getenv("STRICT_SCHOOL_FILTER"); v != "" {
			collectOptions.strict = v != "0"
		}
	}

	if !flags.Changed("lang") {
		if v := os.Getenv("YANDEX_LANG"); v != "" {
			collectOptions.lang = v
		}
	}

	return nil
}

func runCollect(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	if err := applyCollectEnv(cmd); err != nil {
		return err
	}

	var country string

	switch {
	case len(args) > 0:
		country = args[0]
	case collectOptions.interactive:
		var err error

		country, err = promptCountry()
		if err != nil {
			return err
		}
	default:
		country = os.Getenv("COUNTRY")
		if country == "" {
			country = "KG"
		}
	}

	apiKey := os.Getenv("YANDEX_MAPS_API_KEY")
	if apiKey == "" {
		return errors.New("не задан ключ API: укажите YANDEX_MAPS_API_KEY в окружении или в .env")
	}

	client, err := yandex.NewClient(&yandex.ClientOptions{
		APIKey:              apiKey,
		Lang:                collectOptions.lang,
		UserAgent:           fmt.Sprintf("mektep/%s (+https://github.com/abakirov/mektep)", Version),
		EnableHTTPTrace:     collectOptions.traceHTTP,
		EnableHTTPBodyTrace: collectOptions.traceHTTPBody,
	})
	if err != nil {
		return fmt.Errorf("initializing client: %w", err)
	}

	collector := collect.NewCollector(client, collect.Options{
		TilesPerAxis:   collectOptions.tiles,
		Overlap:        collectOptions.overlap,
		Query:          collectOptions.query,
		Strict:         collectOptions.strict,
		CoordPrecision: collectOptions.coordPrecision,
		MaxProcs:       collectOptions.maxProcs,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := collector.CollectCountry(ctx, country)

	if result != nil {
		metrics := client.Metrics()
		log.Printf(
			"Total search phase metrics - %d requests, %d retries, %d pages, %d records",
			metrics.Requests,
			metrics.Retries,
			metrics.Pages,
			metrics.Records,
		)

		reportResult(result)
	}

	// A fatal error means an incomplete listing, don't publish it.
	if err != nil {
		return err
	}

	if collectOptions.dryRun {
		fmt.Println("⏭️  Режим dry-run: результат не сохраняется")

		return nil
	}

	return saveResult(collectOptions.outputDir, result)
}

func reportResult(result *collect.Result) {
	fmt.Printf("✅ %s: найдено %s школ (%s сырых записей, %s исключено)\n",
		result.Country.Name,
		utils.FormatInt(int64(result.Metrics.Schools)),
		utils.FormatInt(int64(result.Metrics.Raw)),
		utils.FormatInt(int64(result.Metrics.Excluded)),
	)

	if len(result.Failures) > 0 {
		fmt.Printf("⚠️  Не удалось опросить %d из %d тайлов:\n",
			len(result.Failures),
			result.Metrics.TilesOK+result.Metrics.TilesFailed,
		)

		for _, f := range result.Failures {
			fmt.Printf("   %s: %s\n", f.Tile.String(), f.Err)
		}
	}
}

func saveResult(outputDir string, result *collect.Result) error {
	csvPath, jsonPath, err := collect.ExportFiles(outputDir, result.Country, result.Schools)
	if err != nil {
		return err
	}

	fmt.Printf("💾 Списки сохранены в %s и %s\n", csvPath, jsonPath)

	db, err := sql.Open("duckdb", filepath.Join(outputDir, catalogFile))
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

	if err := repo.ReplaceCountry(result.Country, result.Schools, result.Failures); err != nil {
		return fmt.Errorf("storing snapshot: %w", err)
	}

	fmt.Printf("💾 Каталог обновлён: %s\n", filepath.Join(outputDir, catalogFile))

	return nil
}

func promptCountry() (string, error) {
	fmt.Println("Доступные страны:")

	var codes []string

	_ = collect.EachCountry(func(c collect.Country) error {
		codes = append(codes, c.Code)
		fmt.Printf("%3d. %s — %s\n", len(codes), c.Code, c.Name)

		return nil
	})

	fmt.Print("Выберите страну (номер или код): ")

	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}

		return "", errors.New("ввод прерван")
	}

	answer := strings.TrimSpace(scanner.Text())
	if n, err := strconv.Atoi(answer); err == nil {
		if n < 1 || n > len(codes) {
			return "", fmt.Errorf("нет страны с номером %d", n)
		}

		return codes[n-1], nil
	}

	return answer, nil
}

func init() {
	rootCmd.AddCommand(collectCmd)
	collectCmd.PersistentFlags().IntVar(
		&collectOptions.tiles,
		"tiles",
		collect.DefaultTilesPerAxis,
		"Количество тайлов по каждой оси сетки",
	)
	collectCmd.PersistentFlags().Float64Var(
		&collectOptions.overlap,
		"overlap",
		spatial.DefaultOverlap,
		"Множитель радиуса поиска тайла, >1 даёт перекрытие соседних тайлов",
	)
	collectCmd.PersistentFlags().StringVar(
		&collectOptions.query,
		"query",
		collect.DefaultQuery,
		"Текст запроса к поиску по организациям",
	)
	collectCmd.PersistentFlags().StringVar(
		&collectOptions.lang,
		"lang",
		"",
		"Язык ответов API, по умолчанию ru_RU",
	)
	collectCmd.PersistentFlags().StringVar(
		&collectOptions.outputDir,
		"output-dir",
		"./output",
		"Каталог для CSV, JSON и базы DuckDB",
	)
	collectCmd.PersistentFlags().IntVar(
		&collectOptions.maxProcs,
		"max-procs",
		collect.DefaultMaxProcs,
		"Максимум одновременно опрашиваемых тайлов",
	)
	collectCmd.PersistentFlags().IntVar(
		&collectOptions.coordPrecision,
		"coord-precision",
		collect.DefaultCoordPrecision,
		"Знаков после запятой при сравнении координат дубликатов",
	)
	collectCmd.PersistentFlags().BoolVar(
		&collectOptions.strict,
		"strict",
		true,
		"Оставлять только общеобразовательные школы",
	)
	collectCmd.PersistentFlags().BoolVar(
		&collectOptions.dryRun,
		"dry-run",
		false,
		"Не сохраняет результат на диск",
	)
	collectCmd.PersistentFlags().BoolVar(
		&collectOptions.interactive,
		"interactive",
		false,
		"Выбор страны из списка",
	)
	collectCmd.PersistentFlags().BoolVar(
		&collectOptions.traceHTTP,
		"trace-http",
		false,
		"Display HTTP requests-responses",
	)
	collectCmd.PersistentFlags().BoolVar(
		&collectOptions.traceHTTPBody,
		"trace-http-body",
		false,
		"Display HTTP requests-responses bodies",
	)
}
