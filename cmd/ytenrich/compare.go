package main

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/mxpv/ytenrich/pkg/enrich"
	"github.com/mxpv/ytenrich/pkg/takeout"
)

type CompareCommand struct {
	Output string `long:"output" short:"o" description:"Path to the JSON report (default: stdout)"`

	Args struct {
		Playlist string `positional-arg-name:"playlist" description:"Playlist CSV file the result was produced from"`
		Enriched string `positional-arg-name:"enriched" description:"Enriched JSON result"`
	} `positional-args:"yes" required:"yes"`
}

type compareReport struct {
	Metadata compareMetadata `json:"metadata"`
	*enrich.Comparison
}

type compareMetadata struct {
	GeneratedAt        time.Time `json:"generated_at"`
	PlaylistFile       string    `json:"playlist_file"`
	PlaylistSize       int64     `json:"playlist_size_bytes"`
	PlaylistChecksum   string    `json:"playlist_checksum_sha256"`
	PlaylistModifiedAt time.Time `json:"playlist_modified_at"`
	EnrichedFile       string    `json:"enriched_file"`
}

func (c *CompareCommand) Execute(_ []string) error {
	report, err := buildReport(c.Args.Playlist, c.Args.Enriched, time.Now())
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"playlist_total": report.Summary.PlaylistTotal,
		"enriched_total": report.Summary.EnrichedTotal,
		"without_errors": report.Summary.EnrichedWithoutErrors,
		"errors":         report.Summary.ErrorsTotal,
		"missing":        len(report.Missing),
		"success_rate":   report.Summary.SuccessRate,
	}).Info("comparison finished")

	if c.Output == "" {
		return printJSON(os.Stdout, report)
	}

	if err := enrich.WriteJSON(c.Output, report); err != nil {
		return err
	}

	log.WithField("path", c.Output).Info("saved report")
	return nil
}

func buildReport(playlistPath, enrichedPath string, now time.Time) (*compareReport, error) {
	entries, err := takeout.LoadFile(playlistPath)
	if err != nil {
		return nil, err
	}

	result, err := enrich.LoadJSON(enrichedPath)
	if err != nil {
		return nil, err
	}

	meta, err := fileMetadata(playlistPath)
	if err != nil {
		return nil, err
	}

	meta.GeneratedAt = now.UTC()
	meta.EnrichedFile = enrichedPath

	return &compareReport{Metadata: *meta, Comparison: enrich.Compare(entries, result)}, nil
}

func fileMetadata(path string) (*compareMetadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %q", path)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to stat %q", path)
	}

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return nil, errors.Wrapf(err, "failed to read %q", path)
	}

	return &compareMetadata{
		PlaylistFile:       path,
		PlaylistSize:       stat.Size(),
		PlaylistChecksum:   hex.EncodeToString(hash.Sum(nil)),
		PlaylistModifiedAt: stat.ModTime().UTC(),
	}, nil
}
