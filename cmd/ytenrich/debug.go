package main

import (
	"context"
	"net/http"
	"os"
	"strings"

	ytapi "google.golang.org/api/youtube/v3"

	"github.com/mxpv/ytenrich/pkg/youtube"
)

type DebugCommand struct {
	Video DebugVideoCommand `command:"video" description:"Print the raw API response for a video"`
}

type DebugVideoCommand struct {
	Args struct {
		ID string `positional-arg-name:"id" description:"YouTube video ID"`
	} `positional-args:"yes" required:"yes"`
}

type rawVideoOutput struct {
	Parts      string                   `json:"parts"`
	StatusCode int                      `json:"status_code"`
	Headers    http.Header              `json:"headers"`
	Response   *ytapi.VideoListResponse `json:"response"`
}

func (c *DebugVideoCommand) Execute(_ []string) error {
	return run(func(ctx context.Context, app *App) error {
		source, err := app.Source(ctx)
		if err != nil {
			return err
		}

		resp, err := source.RawVideo(ctx, strings.TrimSpace(c.Args.ID))
		if err != nil {
			return err
		}

		return printJSON(os.Stdout, rawVideoOutput{
			Parts:      strings.Join(youtube.VideoParts(), ","),
			StatusCode: resp.HTTPStatusCode,
			Headers:    resp.Header,
			Response:   resp,
		})
	})
}
