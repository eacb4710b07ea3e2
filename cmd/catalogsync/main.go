// Command catalogsync runs the incremental catalog-sync pipeline: fetch
// uploads and comments for each configured channel, extract and score
// setlists, classify genres, merge into the canonical catalog, and
// republish the front-end JSON documents.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"songcatalog/internal/appconfig"
	"songcatalog/internal/catalog"
	"songcatalog/internal/genre"
	"songcatalog/internal/logging"
	"songcatalog/internal/orchestrator"
	"songcatalog/internal/platform"
	"songcatalog/internal/publish"
	"songcatalog/internal/transport"
	"songcatalog/internal/watermark"
)

var log = logging.New("main")

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "update":
		err = cmdRun(args, false)
	case "backfill":
		err = cmdRun(args, true)
	case "publish":
		err = cmdPublish(args)
	case "classify-recheck":
		err = cmdClassifyRecheck(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a run-ending error to its documented process exit code:
// 0 ok, 2 quota exceeded (partial success), 3 config error, 4 I/O error.
// Every error that reaches main has already been narrowed to one of these
// kinds by the recovery policy; anything unrecognized still falls back to
// the I/O-error code rather than silently succeeding.
func exitCode(err error) int {
	if errors.Is(err, platform.ErrQuotaExceeded) {
		return 2
	}
	var cfgErr *appconfig.ConfigError
	if errors.As(err, &cfgErr) {
		return 3
	}
	return 4
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `catalogsync - song-setlist catalog sync

Usage:
  catalogsync update [flags]             Incrementally sync every enabled channel
  catalogsync backfill [flags]           Full re-sync ignoring watermarks
  catalogsync publish [flags]            Republish JSON outputs from the current catalog
  catalogsync classify-recheck [flags]   Re-run genre classification over the catalog
  catalogsync help                       Show this help message

Flags (all commands): -data <dir>  directory holding run_config.json, channels.json,
  genre_keywords.json, catalog.csv, watermarks.json, genre_cache.json, and out/.
`)
}

// paths resolves the on-disk layout rooted at -data.
type paths struct {
	dataDir      string
	runConfig    string
	channels     string
	genreKeywords string
	catalog      string
	watermarks   string
	genreCache   string
	outDir       string
}

func resolvePaths(dataDir string) paths {
	return paths{
		dataDir:       dataDir,
		runConfig:     filepath.Join(dataDir, "run_config.json"),
		channels:      filepath.Join(dataDir, "channels.json"),
		genreKeywords: filepath.Join(dataDir, "genre_keywords.json"),
		catalog:       filepath.Join(dataDir, "catalog.csv"),
		watermarks:    filepath.Join(dataDir, "watermarks.json"),
		genreCache:    filepath.Join(dataDir, "genre_cache.json"),
		outDir:        filepath.Join(dataDir, "out"),
	}
}

func (p paths) publishPaths() publish.Paths {
	return publish.Paths{
		Singing:  filepath.Join(p.outDir, "timestamps_singing.json"),
		All:      filepath.Join(p.outDir, "timestamps_all.json"),
		Channels: filepath.Join(p.outDir, "channels.json"),
	}
}

func dataFlag(fs *flag.FlagSet) *string {
	return fs.String("data", "./data", "Directory holding config, catalog, and output files")
}

func cmdRun(args []string, backfill bool) error {
	name := "update"
	if backfill {
		name = "backfill"
	}
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	dataDir := dataFlag(fs)
	onlyChannel := fs.String("channel", "", "Restrict the run to a single channel ID")
	fs.Parse(args)

	p := resolvePaths(*dataDir)

	runCfg, err := appconfig.LoadRunConfig(p.runConfig)
	if err != nil {
		return fmt.Errorf("load run config: %w", err)
	}

	channels, err := appconfig.LoadChannels(p.channels)
	if err != nil {
		return fmt.Errorf("load channels: %w", err)
	}

	classifier, err := buildClassifier(p)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(p.catalog)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	watermarks, err := watermark.Load(p.watermarks)
	if err != nil {
		return fmt.Errorf("load watermarks: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Hour)
	defer cancel()

	apiKey := os.Getenv(runCfg.APIKeyEnv)
	plat, err := platform.New(ctx, platform.Config{
		APIKey:          apiKey,
		DailyQuotaUnits: runCfg.DailyQuotaUnits,
		Transport:       transport.DefaultConfig(),
		Retry:           platform.DefaultRetryConfig(),
	})
	if err != nil {
		return fmt.Errorf("create platform client: %w", err)
	}
	defer plat.Close()

	orch := orchestrator.New(plat, classifier, cat, watermarks, runCfg, channels, p.publishPaths(), p.catalog)

	result, err := orch.Run(ctx, backfill, *onlyChannel)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	printRunResult(result)
	return nil
}

func buildClassifier(p paths) (*genre.Classifier, error) {
	genreCfg, err := appconfig.LoadGenreConfig(p.genreKeywords)
	if err != nil {
		return nil, fmt.Errorf("load genre keywords: %w", err)
	}
	cache, err := genre.LoadCache(p.genreCache, genre.DefaultTTL)
	if err != nil {
		return nil, fmt.Errorf("load genre cache: %w", err)
	}
	return genre.NewClassifier(genreCfg, nil, cache), nil
}

func printRunResult(result *orchestrator.RunResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHANNEL\tSTATE\tVIDEOS\tROWS\tERROR")
	for _, r := range result.Channels {
		errStr := ""
		if r.Err != nil {
			errStr = r.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", r.ChannelID, r.State, r.VideosSeen, r.RowsExtracted, errStr)
	}
	w.Flush()
}

func cmdPublish(args []string) error {
	fs := flag.NewFlagSet("publish", flag.ExitOnError)
	dataDir := dataFlag(fs)
	fs.Parse(args)

	p := resolvePaths(*dataDir)

	channels, err := appconfig.LoadChannels(p.channels)
	if err != nil {
		return fmt.Errorf("load channels: %w", err)
	}

	runCfg, err := appconfig.LoadRunConfig(p.runConfig)
	if err != nil {
		return fmt.Errorf("load run config: %w", err)
	}

	cat, err := catalog.Load(p.catalog)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	confidenceByVideo := make(map[string]float64)
	for _, row := range cat.Rows() {
		confidenceByVideo[row.VideoID] = row.Confidence
	}

	if err := publish.Publish(cat.Rows(), channels, confidenceByVideo, runCfg.ConfidenceThreshold, time.Now().UTC(), p.publishPaths()); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	fmt.Printf("Published %d rows to %s\n", len(cat.Rows()), p.outDir)
	return nil
}

func cmdClassifyRecheck(args []string) error {
	fs := flag.NewFlagSet("classify-recheck", flag.ExitOnError)
	dataDir := dataFlag(fs)
	fs.Parse(args)

	p := resolvePaths(*dataDir)

	classifier, err := buildClassifier(p)
	if err != nil {
		return err
	}

	cat, err := catalog.Load(p.catalog)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	rows := cat.Rows()
	changed := 0
	for i, row := range rows {
		newGenre := classifier.Classify(row.Artist, row.Song)
		if newGenre != row.Genre {
			rows[i].Genre = newGenre
			changed++
		}
	}

	cat.Merge(rows)
	cat.Sort(catalog.OrderDateDesc)
	if err := cat.Save(p.catalog); err != nil {
		return fmt.Errorf("save catalog: %w", err)
	}

	log.Printf("classify-recheck: re-classified %d/%d rows", changed, len(rows))
	fmt.Printf("Re-classified %d of %d rows\n", changed, len(rows))
	return nil
}
