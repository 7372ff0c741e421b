// Package main is the kotae CLI entry point.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/corpus"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/qa"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/storage"
	"github.com/hyperjump/kotae/internal/textproc"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

var errUsage = errors.New("usage")

// options holds the parsed command line.
type options struct {
	configPath  string
	debug       bool
	files       int
	sentences   int
	output      string
	watch       bool
	httpAddr    string
	historyPath string
	once        bool
	strict      bool
	showVersion bool
	corpus      string
	set         map[string]bool
}

func newFlagSet(opts *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("kotae", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", defaultConfigPath, "config file path")
	fs.BoolVar(&opts.debug, "debug", false, "enable debug logging")
	fs.IntVar(&opts.files, "files", 1, "number of documents to take sentences from")
	fs.IntVar(&opts.sentences, "sentences", 1, "number of sentences to print per answer")
	fs.StringVar(&opts.output, "output", "text", "output format: text, verbose or json")
	fs.BoolVar(&opts.watch, "watch", false, "rebuild the corpus snapshot when files change")
	fs.StringVar(&opts.httpAddr, "http", "", "serve the HTTP API on this address instead of prompting")
	fs.StringVar(&opts.historyPath, "history", "", "record answers in this SQLite database")
	fs.BoolVar(&opts.once, "once", false, "answer a single query and exit")
	fs.BoolVar(&opts.strict, "strict", false, "fail when a document cannot be read")
	fs.BoolVar(&opts.showVersion, "version", false, "print the version and exit")
	fs.Usage = func() { printUsage(fs) }
	return fs
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: kotae [flags] <corpus-directory>\n\n")
	fmt.Fprintf(fs.Output(), "Loads every document in the directory and answers questions typed at the Query: prompt.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  kotae corpus
  kotae --files 2 --sentences 3 corpus
  echo "Who was Alan Turing?" | kotae --once --output json corpus
  kotae --http :8080 --watch corpus
`)
}

// argsReorder moves flags (and their values) ahead of positional arguments so that
// flag.Parse sees them; the flag package stops at the first non-flag argument, so
// "kotae corpus --once" would otherwise leave --once unparsed.
func argsReorder(args []string, boolFlags map[string]bool) []string {
	flags := make([]string, 0, len(args))
	var positional []string
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			positional = append(positional, args[i+1:]...)
			break
		}
		if len(a) < 2 || a[0] != '-' {
			positional = append(positional, a)
			continue
		}
		flags = append(flags, a)
		name := strings.TrimLeft(a, "-")
		if strings.Contains(name, "=") || boolFlags[name] {
			continue
		}
		if i+1 < len(args) {
			flags = append(flags, args[i+1])
			i++
		}
	}
	return append(flags, positional...)
}

// parseArgs parses the command line. Exactly one positional argument, the corpus
// directory, is required unless --version is given.
func parseArgs(args []string, stderr io.Writer) (*options, error) {
	opts := &options{set: make(map[string]bool)}
	fs := newFlagSet(opts, stderr)
	boolFlags := make(map[string]bool)
	fs.VisitAll(func(f *flag.Flag) {
		if bf, ok := f.Value.(interface{ IsBoolFlag() bool }); ok && bf.IsBoolFlag() {
			boolFlags[f.Name] = true
		}
	})
	if err := fs.Parse(argsReorder(args, boolFlags)); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, errUsage
	}
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })
	if opts.showVersion {
		return opts, nil
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return nil, errUsage
	}
	opts.corpus = fs.Arg(0)
	return opts, nil
}

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory; a missing default config is not an error.
// Returns the config and the path that was actually loaded ("" when defaults were used).
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			cfg, err := config.LoadOrDefault(path)
			return cfg, "", err
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// applyFlags overrides config values with flags given on the command line.
func applyFlags(cfg *config.Config, opts *options) error {
	if opts.debug {
		cfg.Debug = true
	}
	if opts.set["files"] {
		cfg.Ranking.FileMatches = opts.files
	}
	if opts.set["sentences"] {
		cfg.Ranking.SentenceMatches = opts.sentences
	}
	if opts.set["history"] {
		cfg.History.DatabasePath = opts.historyPath
	}
	if opts.strict {
		cfg.Corpus.Strict = true
	}
	if cfg.Ranking.FileMatches <= 0 {
		return fmt.Errorf("files must be at least 1, got %d", cfg.Ranking.FileMatches)
	}
	if cfg.Ranking.SentenceMatches <= 0 {
		return fmt.Errorf("sentences must be at least 1, got %d", cfg.Ranking.SentenceMatches)
	}
	if opts.httpAddr != "" {
		host, port, err := net.SplitHostPort(opts.httpAddr)
		if err != nil {
			return fmt.Errorf("invalid --http address: %w", err)
		}
		p, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid --http port: %w", err)
		}
		cfg.Server.Host = host
		cfg.Server.Port = p
	}
	return nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	opts, err := parseArgs(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		return 1
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "kotae version %s\n", version)
		return 0
	}
	format, err := cli.ParseOutputFormat(opts.output)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	cfg, resolvedConfigPath, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if err := applyFlags(cfg, opts); err != nil {
		fmt.Fprintf(stderr, "Invalid configuration: %v\n", err)
		return 1
	}

	var logger *zap.Logger
	if opts.httpAddr != "" {
		logger, err = utils.NewLogger(cfg.Debug)
	} else {
		logger, err = utils.NewPromptLogger(cfg.Debug)
	}
	if err != nil {
		fmt.Fprintf(stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()
	logger.Debug("config loaded", zap.String("config_path", resolvedConfigPath), zap.Bool("debug", cfg.Debug))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	components, err := initializeComponents(opts.corpus, cfg, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize: %v\n", err)
		return 1
	}
	defer components.Close()

	if _, err := components.Engine.Reload(ctx); err != nil {
		fmt.Fprintf(stderr, "Failed to load corpus: %v\n", err)
		return 1
	}

	if opts.watch {
		w := watcher.NewWatcher(opts.corpus, cfg.Corpus.Extensions, func(paths []string) {
			logger.Info("corpus changed, rebuilding", zap.Int("paths", len(paths)))
			if _, err := components.Engine.Reload(ctx); err != nil {
				logger.Warn("rebuild failed; keeping previous snapshot", zap.Error(err))
			}
		}, watcher.WithDebounce(cfg.Watch.Debounce()), watcher.WithLogger(logger))
		if err := w.Start(ctx); err != nil {
			fmt.Fprintf(stderr, "Failed to start watcher: %v\n", err)
			return 1
		}
		defer w.Stop()
	}

	if opts.httpAddr != "" {
		if err := serve(ctx, components, cfg, logger); err != nil {
			fmt.Fprintf(stderr, "Server failed: %v\n", err)
			return 1
		}
		return 0
	}

	err = runPrompt(ctx, components.Engine, stdin, stdout, format, opts.once)
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(stderr, "Failed to answer: %v\n", err)
		return 1
	}
	return 0
}

// Components holds the wired application pieces.
type Components struct {
	Engine  *qa.Engine
	History storage.HistoryStore
	Metrics *metrics.Metrics
}

// Close releases the history database.
func (c *Components) Close() {
	if c.History != nil {
		_ = c.History.Close()
	}
}

func initializeComponents(root string, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	text, err := textproc.New()
	if err != nil {
		return nil, fmt.Errorf("failed to create text processor: %w", err)
	}
	loader := corpus.NewLoader(extract.NewExtractor(),
		corpus.WithExtensions(cfg.Corpus.Extensions),
		corpus.WithMaxParallel(cfg.Corpus.MaxParallelReads),
		corpus.WithStrict(cfg.Corpus.Strict),
		corpus.WithLogger(logger),
	)
	c := &Components{Metrics: metrics.New()}
	engineOpts := []qa.Option{
		qa.WithLogger(logger),
		qa.WithMetrics(c.Metrics),
		qa.WithMatches(cfg.Ranking.FileMatches, cfg.Ranking.SentenceMatches),
	}
	if cfg.History.Enabled() {
		store, err := storage.NewSQLiteStorage(cfg.History.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		c.History = store
		engineOpts = append(engineOpts, qa.WithHistory(store))
	}
	c.Engine = qa.NewEngine(root, loader, text, engineOpts...)
	return c, nil
}

func serve(ctx context.Context, components *Components, cfg *config.Config, logger *zap.Logger) error {
	srvOpts := []server.Option{server.WithMetrics(components.Metrics)}
	if components.History != nil {
		srvOpts = append(srvOpts, server.WithHistory(components.History))
	}
	srv := server.NewServer(components.Engine, &cfg.Server, logger, srvOpts...)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

type asker interface {
	Ask(ctx context.Context, req *models.AskRequest) (*models.Answer, error)
}

// runPrompt reads queries line by line, printing "Query: " before each, until EOF or
// ctx is cancelled. With once it stops after the first query.
func runPrompt(ctx context.Context, engine asker, in io.Reader, out io.Writer, format cli.OutputFormat, once bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		fmt.Fprint(out, "Query: ")
		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				fmt.Fprintln(out)
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			line = l
		}
		answer, err := engine.Ask(ctx, &models.AskRequest{Query: line})
		if err != nil {
			return err
		}
		if err := cli.WriteAnswer(out, answer, format); err != nil {
			return err
		}
		if once {
			return nil
		}
	}
}
