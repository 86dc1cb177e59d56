// Package main provides the CLI entrypoint for hearme.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/verte-zerg/hearme/internal/compare"
	"github.com/verte-zerg/hearme/internal/config"
	"github.com/verte-zerg/hearme/internal/libraryui"
	"github.com/verte-zerg/hearme/internal/model"
	"github.com/verte-zerg/hearme/internal/recognizer"
	"github.com/verte-zerg/hearme/internal/report"
	"github.com/verte-zerg/hearme/internal/session"
	"github.com/verte-zerg/hearme/internal/source"
	"github.com/verte-zerg/hearme/internal/stats"
	"github.com/verte-zerg/hearme/internal/store"
	"github.com/verte-zerg/hearme/internal/tui"
)

const (
	defaultLang       = "en-US"
	defaultListenAddr = "127.0.0.1:8765"
	defaultReportDir  = "."
	defaultLogLevel   = "info"
	defaultLibraryMax = 50
	defaultTopFlagged = 5
)

var (
	readTolerance  float64
	readTxtMax     int
	readPdfMax     int
	readPdfPages   int
	readLang       string
	readListen     string
	readTranscript string
	readReport     string
	readHeadless   bool
	readLogLevel   string

	compareTolerance float64
	compareJSON      bool

	libraryLimit int
	libraryList  bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hearme [file]",
		Short:         "Read-aloud pronunciation checker",
		SilenceUsage:  true,
		SilenceErrors: false,
		Args:          cobra.MaximumNArgs(1),
		RunE:          runReadCmd,
	}

	rootCmd.Flags().Float64Var(&readTolerance, "tolerance", compare.DefaultTolerance, "largest normalized edit distance still counted as the same word (0-1)")
	rootCmd.Flags().IntVar(&readTxtMax, "txt-max", source.DefaultTextMaxChars, "characters kept from a text file")
	rootCmd.Flags().IntVar(&readPdfMax, "pdf-max", source.DefaultPDFMaxChars, "characters kept from a PDF")
	rootCmd.Flags().IntVar(&readPdfPages, "pdf-pages", source.DefaultPDFPages, "PDF pages scanned on open")
	rootCmd.Flags().StringVar(&readLang, "lang", defaultLang, "recognition language (BCP 47)")
	rootCmd.Flags().StringVar(&readListen, "listen", defaultListenAddr, "address of the recognizer page and socket")
	rootCmd.Flags().StringVar(&readTranscript, "transcript", "", "read transcript lines from a file instead of the browser ('-' for stdin)")
	rootCmd.Flags().StringVar(&readReport, "report", "", "report path (default: <report dir>/"+report.DefaultFileName+")")
	rootCmd.Flags().BoolVar(&readHeadless, "headless", false, "run without the TUI and export the report when input ends")
	rootCmd.Flags().StringVar(&readLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newCompareCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newLibraryCmd())

	return rootCmd
}

func runReadCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFloatConfig(cmd, "tolerance", &readTolerance, fileCfg.Reading.Tolerance)
	applyIntConfig(cmd, "txt-max", &readTxtMax, fileCfg.Reading.TxtMaxChars)
	applyIntConfig(cmd, "pdf-max", &readPdfMax, fileCfg.Reading.PdfMaxChars)
	applyIntConfig(cmd, "pdf-pages", &readPdfPages, fileCfg.Reading.PdfPages)
	applyStringConfig(cmd, "lang", &readLang, fileCfg.Reading.Lang)
	applyStringConfig(cmd, "listen", &readListen, fileCfg.Listen.Addr)
	applyStringConfig(cmd, "log-level", &readLogLevel, fileCfg.Log.Level)

	cfg := model.Config{
		Tolerance:   readTolerance,
		TxtMaxChars: readTxtMax,
		PdfMaxChars: readPdfMax,
		PdfPages:    readPdfPages,
		Lang:        readLang,
		ListenAddr:  readListen,
		ReportDir:   defaultReportDir,
		LogLevel:    readLogLevel,
	}
	if fileCfg.Report.Dir != nil {
		cfg.ReportDir = *fileCfg.Report.Dir
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	if readTranscript == "-" && !readHeadless {
		return fmt.Errorf("--transcript - requires --headless")
	}
	if readHeadless && path == "" {
		return fmt.Errorf("--headless requires a file argument")
	}
	if !readHeadless && !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("stdout is not a terminal; use --headless")
	}

	log, closeLog, err := newLogger(cfg.LogLevel, readHeadless)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			log.Warn().Err(cerr).Msg("failed to close db")
		}
	}()

	limits := source.Limits{TextMaxChars: cfg.TxtMaxChars, PDFMaxChars: cfg.PdfMaxChars, PDFPages: cfg.PdfPages}
	loader := source.NewLoader(limits, st, log.With().Str("component", "source").Logger())
	ctrl := session.New(
		session.WithTolerance(cfg.Tolerance),
		session.WithLogger(log.With().Str("component", "session").Logger()),
	)
	reportPath := resolveReportPath(readReport, cfg.ReportDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	recLog := log.With().Str("component", "recognizer").Logger()
	var rec recognizer.Recognizer
	if readTranscript != "" {
		in, closeIn, err := openTranscript(readTranscript)
		if err != nil {
			return err
		}
		defer closeIn()
		rec = recognizer.NewLineRecognizer(in, recLog)
	} else {
		sock := recognizer.NewSocketRecognizer(cfg.ListenAddr, cfg.Lang, recLog)
		g.Go(func() error {
			return sock.Serve(gctx)
		})
		rec = sock
	}

	g.Go(func() error {
		defer cancel()
		if readHeadless {
			return runHeadless(gctx, headlessDeps{
				loader:     loader,
				ctrl:       ctrl,
				rec:        rec,
				reportPath: reportPath,
				listenAddr: cfg.ListenAddr,
				log:        log,
				out:        cmd.OutOrStdout(),
			}, path)
		}
		return runTUI(gctx, tui.Options{
			Controller:  ctrl,
			Recognizer:  rec,
			Loader:      loader,
			Logger:      log.With().Str("component", "tui").Logger(),
			ReportPath:  reportPath,
			InitialPath: path,
		})
	})
	return g.Wait()
}

func runTUI(ctx context.Context, opts tui.Options) error {
	program := tea.NewProgram(tui.NewModel(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

type headlessDeps struct {
	loader     *source.Loader
	ctrl       *session.Controller
	rec        recognizer.Recognizer
	reportPath string
	listenAddr string
	log        zerolog.Logger
	out        io.Writer
}

// runHeadless reads one document until the recognizer ends or the process is
// interrupted, then exports the report.
func runHeadless(ctx context.Context, d headlessDeps, path string) error {
	doc, err := d.loader.Load(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	d.ctrl.Open(doc)

	events, err := startRecognizer(ctx, d.rec, d.listenAddr, d.log)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := d.ctrl.Start(); err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	if err := d.ctrl.Run(ctx, events); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err := d.rec.Stop(); err != nil {
		d.log.Warn().Err(err).Msg("failed to stop recognizer")
	}
	d.ctrl.Stop()

	snap := d.ctrl.Snapshot()
	if _, err := report.Export(d.reportPath, snap, time.Now()); err != nil {
		return err
	}
	d.log.Info().Str("path", d.reportPath).Int("flagged", len(snap.Session.Mispronounced)).Msg("report exported")
	return renderResult(d.out, snap.Result, stats.Summarize(snap.Result, snap.Session.Start, snap.Session.End, time.Now()))
}

// startRecognizer retries while no browser page is connected yet. Only the
// socket recognizer can become available later.
func startRecognizer(ctx context.Context, rec recognizer.Recognizer, addr string, log zerolog.Logger) (<-chan recognizer.Event, error) {
	_, retry := rec.(*recognizer.SocketRecognizer)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	announced := false
	for {
		events, err := rec.Start(ctx)
		if err == nil {
			return events, nil
		}
		if !retry || !errors.Is(err, recognizer.ErrUnavailable) {
			return nil, fmt.Errorf("failed to start recognizer: %w", err)
		}
		if !announced {
			log.Info().Str("url", "http://"+addr+"/").Msg("waiting for a recognizer page")
			announced = true
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func renderResult(w io.Writer, res compare.Result, sum stats.Summary) error {
	if err := stats.RenderSummary(w, sum); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if err := stats.RenderMismatchTable(w, res); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	top := stats.TopFlagged(res.Mismatches, defaultTopFlagged)
	if len(top) == 0 {
		return nil
	}
	parts := make([]string, 0, len(top))
	for _, f := range top {
		parts = append(parts, fmt.Sprintf("%s (%d)", f.Expected, f.Count))
	}
	if _, err := fmt.Fprintf(w, "Most flagged: %s\n", strings.Join(parts, ", ")); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func openTranscript(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	return f, func() {
		if cerr := f.Close(); cerr != nil {
			// Best-effort close of a read-only file.
			_ = cerr
		}
	}, nil
}

func newCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare <expected-file> <transcript-file>",
		Short: "Compare a transcript against a document once",
		Args:  cobra.ExactArgs(2),
		RunE:  runCompareCmd,
	}
	cmd.Flags().Float64Var(&compareTolerance, "tolerance", compare.DefaultTolerance, "largest normalized edit distance still counted as the same word (0-1)")
	cmd.Flags().BoolVar(&compareJSON, "json", false, "print the JSON report instead of tables")
	return cmd
}

func runCompareCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyFloatConfig(cmd, "tolerance", &compareTolerance, fileCfg.Reading.Tolerance)
	if compareTolerance < 0 || compareTolerance > 1 {
		return fmt.Errorf("--tolerance must be between 0 and 1")
	}

	limits := source.DefaultLimits()
	if fileCfg.Reading.TxtMaxChars != nil {
		limits.TextMaxChars = *fileCfg.Reading.TxtMaxChars
	}
	if fileCfg.Reading.PdfMaxChars != nil {
		limits.PDFMaxChars = *fileCfg.Reading.PdfMaxChars
	}
	if fileCfg.Reading.PdfPages != nil {
		limits.PDFPages = *fileCfg.Reading.PdfPages
	}
	loader := source.NewLoader(limits, nil, zerolog.Nop())
	doc, err := loader.Load(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", args[0], err)
	}
	transcript, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read transcript: %w", err)
	}

	ctrl := session.New(session.WithTolerance(compareTolerance))
	ctrl.Open(doc)
	ctrl.HandleTranscript(strings.Join(strings.Fields(string(transcript)), " "))
	snap := ctrl.Snapshot()

	out := cmd.OutOrStdout()
	if compareJSON {
		data, err := report.Marshal(report.Build(snap, time.Now()))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(out, string(data)); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	return renderResult(out, snap.Result, stats.Summarize(snap.Result, nil, nil, time.Now()))
}

func newLibraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Browse previously opened documents",
		Args:  cobra.NoArgs,
		RunE:  runLibraryCmd,
	}
	cmd.Flags().IntVar(&libraryLimit, "limit", defaultLibraryMax, "number of documents (0 for all)")
	cmd.Flags().BoolVar(&libraryList, "list", false, "print a table instead of the browser")
	return cmd
}

func runLibraryCmd(cmd *cobra.Command, _ []string) error {
	if libraryLimit < 0 {
		return fmt.Errorf("--limit must be >= 0")
	}
	selected, err := browseLibrary(cmd)
	if err != nil || selected == "" {
		return err
	}
	// Flags of the root command are unparsed here, so config values apply.
	return runReadCmd(cmd.Root(), []string{selected})
}

// browseLibrary prints or browses the cache and returns the path picked in
// the browser, if any.
func browseLibrary(cmd *cobra.Command) (string, error) {
	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return "", fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	if libraryList || !term.IsTerminal(int(os.Stdout.Fd())) {
		lib, err := stats.BuildLibrary(cmd.Context(), st, libraryLimit)
		if err != nil {
			return "", fmt.Errorf("failed to list documents: %w", err)
		}
		return "", stats.RenderLibrary(cmd.OutOrStdout(), lib)
	}

	browser := libraryui.NewModel(st, libraryLimit)
	program := tea.NewProgram(browser, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return "", fmt.Errorf("failed to run library TUI: %w", err)
	}
	return browser.Selected(), nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// newLogger writes to the state log file in TUI mode so the alt screen stays
// intact, and to stderr in headless mode.
func newLogger(level string, headless bool) (zerolog.Logger, func(), error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("--log-level %q is not a valid level", level)
	}
	if headless {
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
		return zerolog.New(w).With().Timestamp().Logger().Level(lvl), func() {}, nil
	}
	path := config.DefaultLogPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("failed to open log file: %w", err)
	}
	log := zerolog.New(f).With().Timestamp().Logger().Level(lvl)
	return log, func() {
		if cerr := f.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}, nil
}

func resolveReportPath(flagPath, dir string) string {
	if flagPath != "" {
		return flagPath
	}
	if dir == "" {
		dir = defaultReportDir
	}
	return filepath.Join(dir, report.DefaultFileName)
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# hearme configuration
# Uncomment a value to enable it. CLI flags override config values.

[reading]
# tolerance = %.2f        # Largest normalized edit distance still counted as the same word
# txt-max-chars = %d    # Characters kept from a text file
# pdf-max-chars = %d    # Characters kept from a PDF
# pdf-pages = %d          # PDF pages scanned on open
# lang = %q         # Recognition language

[listen]
# addr = %q   # Recognizer page and socket

[report]
# dir = %q                # Directory for %s

[log]
# level = %q           # debug, info, warn, error
`,
		compare.DefaultTolerance,
		source.DefaultTextMaxChars,
		source.DefaultPDFMaxChars,
		source.DefaultPDFPages,
		defaultLang,
		defaultListenAddr,
		defaultReportDir,
		report.DefaultFileName,
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if cfg.Tolerance < 0 || cfg.Tolerance > 1 {
		return fmt.Errorf("--tolerance must be between 0 and 1")
	}
	if cfg.TxtMaxChars <= 0 {
		return fmt.Errorf("--txt-max must be > 0")
	}
	if cfg.PdfMaxChars <= 0 {
		return fmt.Errorf("--pdf-max must be > 0")
	}
	if cfg.PdfPages <= 0 {
		return fmt.Errorf("--pdf-pages must be > 0")
	}
	if strings.TrimSpace(cfg.Lang) == "" {
		return fmt.Errorf("--lang must not be empty")
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("--listen must not be empty")
	}
	return nil
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
