package main

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"

	"github.com/mxpv/ytenrich/pkg/enrich"
	"github.com/mxpv/ytenrich/pkg/model"
)

type VideoCommand struct {
	Args struct {
		ID string `positional-arg-name:"id" description:"YouTube video ID"`
	} `positional-args:"yes" required:"yes"`
}

type videoOutput struct {
	*enrich.VideoItem
	Channel *model.Channel `json:"channel,omitempty"`
}

func (c *VideoCommand) Execute(_ []string) error {
	return run(func(ctx context.Context, app *App) error {
		id := strings.TrimSpace(c.Args.ID)
		if id == "" {
			return errors.New("video id is required")
		}

		source, err := app.Source(ctx)
		if err != nil {
			return err
		}

		engine := enrich.New(app.cache, source, app.config.Enrich.Options())
		result, err := engine.Run(ctx, []enrich.Item{{VideoID: id}})
		if err != nil && !errors.Is(err, enrich.ErrAborted) {
			return err
		}

		if len(result.Videos) == 0 {
			return errors.Errorf("video %q was not processed", id)
		}

		item := result.Videos[0]
		out := videoOutput{VideoItem: item, Channel: result.Channels[item.ChannelID()]}
		if err := printJSON(os.Stdout, out); err != nil {
			return err
		}

		if item.Failed() {
			return errors.Errorf("failed to enrich video %q: %s", id, item.Error)
		}

		return nil
	})
}
