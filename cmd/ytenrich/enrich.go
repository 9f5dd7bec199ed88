package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mxpv/ytenrich/pkg/enrich"
	"github.com/mxpv/ytenrich/pkg/export"
	"github.com/mxpv/ytenrich/pkg/model"
	"github.com/mxpv/ytenrich/pkg/takeout"
)

type EnrichCommand struct {
	Output string `long:"output" short:"o" description:"Path to the JSON result (default: next to the input)"`
	SQLite string `long:"sqlite" description:"Also export the result to a SQLite database at this path"`

	Args struct {
		Input string `positional-arg-name:"input" description:"Playlist CSV file or Takeout playlists directory"`
	} `positional-args:"yes" required:"yes"`
}

func (c *EnrichCommand) Execute(_ []string) error {
	return run(func(ctx context.Context, app *App) error {
		in, err := loadInput(c.Args.Input)
		if err != nil {
			return err
		}

		source, err := app.Source(ctx)
		if err != nil {
			return err
		}

		log.WithFields(log.Fields{
			"input":     c.Args.Input,
			"videos":    len(in.items),
			"playlists": len(in.playlists),
		}).Info("starting enrichment")

		engine := enrich.New(app.cache, source, app.config.Enrich.Options())
		result, runErr := engine.Run(ctx, in.items)
		result.Metadata.Source = c.Args.Input

		output := c.Output
		if output == "" {
			output = defaultOutput(c.Args.Input, in.dir)
		}

		if err := enrich.WriteJSON(output, result); err != nil {
			return err
		}
		log.WithField("path", output).Info("saved result")

		if c.SQLite != "" {
			if err := export.NewSQLite().Export(ctx, c.SQLite, result, in.playlists); err != nil {
				return errors.Wrap(err, "failed to export database")
			}
		}

		summarize(result)
		return runErr
	})
}

type input struct {
	dir       bool
	items     []enrich.Item
	playlists []*model.Playlist
}

func loadInput(path string) (*input, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read input %q", path)
	}

	if stat.IsDir() {
		dir, err := takeout.LoadDir(path)
		if err != nil {
			return nil, err
		}

		return &input{dir: true, items: enrich.Merge(dir.Sources), playlists: dir.Playlists}, nil
	}

	entries, err := takeout.LoadFile(path)
	if err != nil {
		return nil, err
	}

	return &input{items: enrich.Items(entries)}, nil
}

// defaultOutput places the result next to the input:
// "list.csv" -> "list-enriched.json", "takeout/" -> "takeout/enriched.json".
func defaultOutput(path string, dir bool) string {
	if dir {
		return filepath.Join(path, "enriched.json")
	}

	return strings.TrimSuffix(path, filepath.Ext(path)) + "-enriched.json"
}

func summarize(result *enrich.Result) {
	meta := result.Metadata

	logger := log.WithFields(log.Fields{
		"processed":          meta.Processed,
		"total":              meta.TotalItems,
		"video_cache_hits":   meta.VideoCacheHits,
		"channel_cache_hits": meta.ChannelCacheHits,
		"api_calls":          meta.APICalls,
		"api_success":        meta.APISuccess,
		"not_found":          meta.NotFound,
		"transient_errors":   meta.TransientErrors,
		"channels":           meta.TotalChannels,
	})

	switch meta.State {
	case enrich.StateDone:
		logger.Info("enrichment finished")
	case enrich.StateInterrupted:
		logger.Warn("enrichment interrupted, rerun to continue from cache")
	default:
		logger.Error("enrichment aborted, rerun to continue from cache")
	}
}
