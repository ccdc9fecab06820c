package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"

	"github.com/RyanBlaney/sonido-harmony/analysis"
	"github.com/RyanBlaney/sonido-harmony/api"
	"github.com/RyanBlaney/sonido-harmony/config"
	"github.com/RyanBlaney/sonido-harmony/fingerprint"
	"github.com/RyanBlaney/sonido-harmony/logging"
	"github.com/RyanBlaney/sonido-harmony/transcode"
)

const shutdownTimeout = 10 * time.Second

// appState carries the configuration resolved before any command runs
type appState struct {
	cfg *config.Config
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(stdin io.Reader, stdout, stderr io.Writer) *cli.App {
	state := &appState{}

	app := &cli.App{
		Name:      "sonido-harmony",
		Usage:     "Key, Roman numeral and harmonic fingerprint analysis of chord progressions",
		Version:   Version,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "JSON config file", EnvVars: []string{"SONIDO_CONFIG"}},
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "Environment file read before SONIDO_* variables"},
			&cli.StringFlag{Name: "log-level", Usage: "Log level: debug|info|warn|error"},
		},
		Before: state.load,
		Commands: []*cli.Command{
			analyzeCmd(state),
			batchCmd(state),
			compareCmd(state),
			serveCmd(state),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// load resolves config file, environment and flags, then installs the logger
func (s *appState) load(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return outputError(err)
	}
	if err := config.LoadEnv(cfg, c.String("env-file")); err != nil {
		return outputError(err)
	}
	cfg = config.Merge(cfg, &config.Config{LogLevel: c.String("log-level")})
	if err := cfg.Validate(); err != nil {
		return outputError(err)
	}

	logger := logging.NewDefaultLoggerWithWriters(c.App.ErrWriter, c.App.ErrWriter)
	logger.SetLevel(cfg.Level())
	logging.SetGlobalLogger(logger)

	s.cfg = cfg
	return nil
}

// analyzeCmd creates the analyze command.
func analyzeCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Analyse one chord progression (from arguments or stdin)",
		ArgsUsage: "[chords...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "key", Aliases: []string{"k"}, Usage: "Known key, e.g. \"A minor\"; skips detection"},
			&cli.BoolFlag{Name: "detail", Usage: "Include key detection diagnostics"},
		},
		Action: func(c *cli.Context) error {
			chords := strings.Join(c.Args().Slice(), " ")
			if chords == "" {
				text, err := readInput(c.App.Reader)
				if err != nil {
					return outputError(err)
				}
				chords = text
			}

			analyzerConfig, err := state.cfg.AnalyzerConfig()
			if err != nil {
				return outputError(err)
			}
			analyzerConfig.IncludeDetail = c.Bool("detail")

			result := analysis.NewAnalyzer(analyzerConfig).AnalyzeWithKey(chords, c.String("key"))
			return outputJSON(c.App.Writer, result)
		},
	}
}

// batchCmd creates the batch command.
func batchCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "batch",
		Usage: "Analyse every record of a CSV file and write the enriched CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true, Usage: "Input CSV with a chords column"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "Output CSV path"},
			&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Worker count (default NumCPU-1, minimum 2)"},
			&cli.BoolFlag{Name: "no-progress", Usage: "Disable the progress bar"},
		},
		Action: func(c *cli.Context) error {
			cfg := state.cfg
			if c.IsSet("workers") {
				cfg.Workers = c.Int("workers")
			}

			header, records, err := readRecords(c.String("in"), cfg)
			if err != nil {
				return outputError(err)
			}

			analyzerConfig, err := cfg.AnalyzerConfig()
			if err != nil {
				return outputError(err)
			}
			processor := analysis.NewBatchProcessor(analysis.NewAnalyzer(analyzerConfig), cfg.Workers)

			var reporter *progressReporter
			var onProgress analysis.ProgressFunc
			if cfg.Progress && !c.Bool("no-progress") && len(records) > 0 {
				reporter = newProgressReporter(c.App.ErrWriter, len(records))
				onProgress = reporter.Update
			}

			results, summary, err := processor.Process(c.Context, songsFromRecords(records, cfg), onProgress)
			reporter.Finish()
			if err != nil && !errors.Is(err, analysis.ErrNoRecords) {
				return outputError(fmt.Errorf("batch %s stopped after %d of %d records: %w",
					summary.RunID, summary.Processed, summary.Total, err))
			}

			if err := writeRecords(c.String("out"), header, records, results); err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, summary)
		},
	}
}

// compareCmd creates the compare command.
func compareCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Compare the harmonic fingerprints of two chord progressions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "a", Required: true, Usage: "First chord progression"},
			&cli.StringFlag{Name: "b", Required: true, Usage: "Second chord progression"},
		},
		Action: func(c *cli.Context) error {
			analyzerConfig, err := state.cfg.AnalyzerConfig()
			if err != nil {
				return outputError(err)
			}
			analyzer := analysis.NewAnalyzer(analyzerConfig)
			comparator := fingerprint.NewFingerprintComparator(state.cfg.ComparisonConfig())

			a := analyzer.Analyze(c.String("a"))
			b := analyzer.Analyze(c.String("b"))
			similarity, err := comparator.Compare(a.HarmonicFingerprint, b.HarmonicFingerprint)
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, map[string]any{
				"a":          a,
				"b":          b,
				"similarity": similarity,
			})
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(state *appState) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the analysis HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Aliases: []string{"a"}, Usage: "Listen address (default from config, :8080)"},
		},
		Action: func(c *cli.Context) error {
			cfg := state.cfg
			if c.IsSet("addr") {
				cfg.HTTPAddr = c.String("addr")
			}
			if cfg.Level() != logging.DebugLevel {
				gin.SetMode(gin.ReleaseMode)
			}

			router, err := api.SetupRouter(cfg, Version)
			if err != nil {
				return outputError(err)
			}

			server := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- server.ListenAndServe()
			}()
			logging.Info("HTTP server listening", logging.Fields{
				"addr":    cfg.HTTPAddr,
				"version": Version,
			})

			select {
			case err := <-errCh:
				if err != nil && !errors.Is(err, http.ErrServerClosed) {
					return outputError(fmt.Errorf("server failed: %w", err))
				}
				return nil
			case <-c.Context.Done():
			}

			logging.Info("Shutting down HTTP server")
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return outputError(fmt.Errorf("shutdown failed: %w", err))
			}
			return nil
		},
	}
}

// Helper functions

func readRecords(path string, cfg *config.Config) ([]string, []transcode.Record, error) {
	in, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	reader, err := transcode.NewRecordReader(in, cfg.ChordsColumn)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return reader.Header(), records, nil
}

func songsFromRecords(records []transcode.Record, cfg *config.Config) []analysis.Song {
	songs := make([]analysis.Song, len(records))
	for i, record := range records {
		id := record.Get(cfg.IDColumn)
		if id == "" {
			id = strconv.Itoa(record.Line)
		}
		song := analysis.Song{ID: id, Chords: record.Get(cfg.ChordsColumn)}
		if cfg.KeyColumn != "" {
			song.Key = record.Get(cfg.KeyColumn)
		}
		songs[i] = song
	}
	return songs
}

func writeRecords(path string, header []string, records []transcode.Record, results []analysis.SongResult) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer out.Close()

	writer := transcode.NewRecordWriter(out, header)
	for i, record := range records {
		result := results[i]
		record.Set(transcode.KeyColumn, result.Key)
		record.Set(transcode.RomanNumeralsColumn, result.RomanNumerals)
		record.Set(transcode.HarmonicFingerprintColumn, result.HarmonicFingerprint)
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return out.Close()
}

// outputJSON marshals result to w as JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	return cli.Exit(err.Error(), 1)
}

// readInput reads chords piped on stdin. An interactive terminal is rejected
// rather than waited on.
func readInput(r io.Reader) (string, error) {
	if f, ok := r.(*os.File); ok {
		stat, err := f.Stat()
		if err != nil || stat.Mode()&os.ModeCharDevice != 0 {
			return "", errors.New("no chords given: pass them as arguments or pipe them via stdin")
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
