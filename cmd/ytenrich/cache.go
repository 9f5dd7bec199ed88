package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mxpv/ytenrich/pkg/cache"
	"github.com/mxpv/ytenrich/pkg/model"
)

type CacheCommand struct {
	Info    CacheInfoCommand    `command:"info" description:"Print cache statistics"`
	Clear   CacheClearCommand   `command:"clear" description:"Delete cached entries"`
	Inspect CacheInspectCommand `command:"inspect" description:"Print a cached entry"`
	Remove  CacheRemoveCommand  `command:"remove" description:"Delete a single cached entry"`
}

type cacheEntryArgs struct {
	Kind string `positional-arg-name:"kind" description:"video or channel"`
	ID   string `positional-arg-name:"id"`
}

type CacheInfoCommand struct{}

func (c *CacheInfoCommand) Execute(_ []string) error {
	return run(func(ctx context.Context, app *App) error {
		stats, err := app.cache.DetailedStats(ctx)
		if err != nil {
			return err
		}

		return printJSON(os.Stdout, stats)
	})
}

type CacheClearCommand struct {
	Kind string `long:"kind" description:"Only clear this namespace (video or channel)"`
}

func (c *CacheClearCommand) Execute(_ []string) error {
	return run(func(ctx context.Context, app *App) error {
		var kinds []cache.Kind
		if c.Kind != "" {
			kind, err := cache.ParseKind(c.Kind)
			if err != nil {
				return err
			}
			kinds = append(kinds, kind)
		}

		if err := app.cache.Clear(ctx, kinds...); err != nil {
			return err
		}

		log.WithField("path", app.cache.Path()).Info("cache cleared")
		return nil
	})
}

type CacheInspectCommand struct {
	Args cacheEntryArgs `positional-args:"yes" required:"yes"`
}

func (c *CacheInspectCommand) Execute(_ []string) error {
	return run(func(ctx context.Context, app *App) error {
		kind, err := cache.ParseKind(c.Args.Kind)
		if err != nil {
			return err
		}

		var raw json.RawMessage
		if err := app.cache.Get(ctx, kind, c.Args.ID, &raw); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				return errors.Errorf("%s %q is not cached", kind, c.Args.ID)
			}
			return err
		}

		return printJSON(os.Stdout, raw)
	})
}

type CacheRemoveCommand struct {
	Args cacheEntryArgs `positional-args:"yes" required:"yes"`
}

func (c *CacheRemoveCommand) Execute(_ []string) error {
	return run(func(ctx context.Context, app *App) error {
		kind, err := cache.ParseKind(c.Args.Kind)
		if err != nil {
			return err
		}

		removed, err := app.cache.Remove(ctx, kind, c.Args.ID)
		if err != nil {
			return err
		}

		logger := log.WithFields(log.Fields{"kind": kind, "id": c.Args.ID})
		if !removed {
			logger.Warn("entry not found in cache")
			return nil
		}

		logger.Info("entry removed")
		return nil
	})
}
