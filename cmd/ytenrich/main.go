package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/mxpv/ytenrich/pkg/cache"
	"github.com/mxpv/ytenrich/pkg/model"
	"github.com/mxpv/ytenrich/pkg/youtube"
)

type Opts struct {
	ConfigPath string `long:"config" short:"c" env:"YTENRICH_CONFIG" description:"Path to TOML configuration file"`
	Debug      bool   `long:"debug" description:"Enable debug logging"`
	APIKey     string `long:"api-key" env:"YOUTUBE_API_KEY" description:"YouTube Data API key"`

	Enrich   EnrichCommand  `command:"enrich" description:"Enrich a playlist CSV file or a Takeout playlists directory"`
	Video    VideoCommand   `command:"video" description:"Enrich a single video and print it"`
	Compare  CompareCommand `command:"compare" description:"Compare an enriched result with its playlist CSV"`
	Cache    CacheCommand   `command:"cache" description:"Inspect and manage the metadata cache"`
	DebugAPI DebugCommand   `command:"debug" description:"Print raw API responses"`
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var opts Opts

func main() {
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
	})

	parser := flags.NewParser(&opts, flags.HelpFlag|flags.PassDoubleDash)
	parser.CommandHandler = func(command flags.Commander, args []string) error {
		if opts.Debug {
			log.SetLevel(log.DebugLevel)
		}

		log.WithFields(log.Fields{
			"version": version,
			"commit":  commit,
			"date":    date,
		}).Debug("running ytenrich")

		if command == nil {
			return nil
		}

		return command.Execute(args)
	}

	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) {
			if flagsErr.Type == flags.ErrHelp {
				fmt.Fprintln(os.Stdout, flagsErr.Message)
				return
			}

			fmt.Fprintln(os.Stderr, flagsErr.Message)
			os.Exit(2)
		}

		log.WithError(err).Error("command failed")
		os.Exit(1)
	}
}

// App holds the resources shared by commands.
type App struct {
	config *Config
	cache  cache.Storage
	logs   io.Closer
}

func newApp() (*App, error) {
	configPath, optional := opts.ConfigPath, false
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, errors.Wrap(err, "failed to resolve home directory")
		}

		configPath, optional = filepath.Join(home, model.DefaultCacheDirName, "config.toml"), true
	}

	log.Debugf("loading configuration %q", configPath)
	cfg, err := LoadConfig(configPath, optional)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration file")
	}

	app := &App{config: cfg}

	if cfg.Log.Filename != "" {
		logger := &lumberjack.Logger{
			Filename:   cfg.Log.Filename,
			MaxSize:    cfg.Log.MaxSize,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAge,
			Compress:   cfg.Log.Compress,
		}

		log.SetOutput(logger)
		app.logs = logger

		log.WithField("filename", cfg.Log.Filename).Debug("using log file")
	}

	storage, err := cache.New(&cfg.Cache)
	if err != nil {
		app.Close()
		return nil, errors.Wrap(err, "failed to open cache")
	}

	app.cache = storage
	return app, nil
}

// Source creates the YouTube metadata source. The --api-key flag (or YOUTUBE_API_KEY)
// takes precedence over the tokens from the configuration file.
func (a *App) Source(ctx context.Context) (*youtube.Source, error) {
	keys := []string(a.config.Tokens.YouTube)
	if opts.APIKey != "" {
		keys = []string{opts.APIKey}
	}

	if len(keys) == 0 {
		return nil, errors.New("YouTube API key is required (use --api-key, YOUTUBE_API_KEY or [tokens] in config)")
	}

	provider, err := youtube.NewKeyProvider(keys)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create API key provider")
	}

	return youtube.NewSource(ctx, provider, a.config.YouTube.Timeout)
}

func (a *App) Close() {
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			log.WithError(err).Error("failed to close cache")
		}
	}

	if a.logs != nil {
		log.SetOutput(os.Stderr)
		_ = a.logs.Close()
	}
}

// run executes fn with the application resources and a context
// that is cancelled on SIGINT/SIGTERM.
func run(fn func(ctx context.Context, app *App) error) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer cancel()
		return fn(ctx, app)
	})

	group.Go(func() error {
		select {
		case <-ctx.Done():
			return nil
		case sig := <-stop:
			log.Warnf("received %s, stopping after the current item", sig)
			cancel()
			return nil
		}
	})

	return group.Wait()
}

func printJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
