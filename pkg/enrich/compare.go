package enrich

import (
	"math"
	"sort"
	"strings"

	"github.com/mxpv/ytenrich/pkg/model"
)

// Comparison checks an enrichment result against the playlist it was produced from.
type Comparison struct {
	Summary ComparisonSummary `json:"summary"`
	// Errors groups failed items by outcome, largest group first
	Errors []*ErrorGroup `json:"errors_by_type"`
	// Missing lists playlist videos absent from the result (e.g. after an aborted run)
	Missing []string `json:"missing,omitempty"`
}

type ComparisonSummary struct {
	PlaylistTotal         int     `json:"playlist_total"`
	EnrichedTotal         int     `json:"enriched_total"`
	EnrichedWithoutErrors int     `json:"enriched_without_errors"`
	ErrorsTotal           int     `json:"errors_total"`
	SuccessRate           float64 `json:"success_rate"`
}

type ErrorGroup struct {
	Type   Outcome        `json:"type"`
	Count  int            `json:"count"`
	Videos []*FailedVideo `json:"videos"`
}

type FailedVideo struct {
	ID      string `json:"video_id"`
	URL     string `json:"url"`
	Error   string `json:"error"`
	AddedAt string `json:"added_at"`
}

// Compare reports how much of a playlist made it into result.
// Totals count unique video identifiers, the success rate is the percentage of playlist
// videos enriched without errors, rounded to one decimal.
func Compare(entries []model.Entry, result *Result) *Comparison {
	var (
		playlist = map[string]bool{}
		enriched = map[string]bool{}
		groups   = map[Outcome]*ErrorGroup{}
		cmp      = &Comparison{Errors: []*ErrorGroup{}}
	)

	for _, entry := range entries {
		if id := strings.TrimSpace(entry.VideoID); id != "" {
			playlist[id] = true
		}
	}

	for _, item := range result.Videos {
		if item == nil || item.ID == "" {
			continue
		}

		enriched[item.ID] = true

		if !item.Failed() {
			cmp.Summary.EnrichedWithoutErrors++
			continue
		}

		group, ok := groups[item.Outcome]
		if !ok {
			group = &ErrorGroup{Type: item.Outcome}
			groups[item.Outcome] = group
			cmp.Errors = append(cmp.Errors, group)
		}

		group.Count++
		group.Videos = append(group.Videos, &FailedVideo{
			ID:      item.ID,
			URL:     model.VideoURL(item.ID),
			Error:   item.Error,
			AddedAt: item.AddedAt,
		})
		cmp.Summary.ErrorsTotal++
	}

	for id := range playlist {
		if !enriched[id] {
			cmp.Missing = append(cmp.Missing, id)
		}
	}
	sort.Strings(cmp.Missing)

	for _, group := range cmp.Errors {
		sort.Slice(group.Videos, func(i, j int) bool {
			return group.Videos[i].ID < group.Videos[j].ID
		})
	}

	sort.SliceStable(cmp.Errors, func(i, j int) bool {
		if cmp.Errors[i].Count != cmp.Errors[j].Count {
			return cmp.Errors[i].Count > cmp.Errors[j].Count
		}
		return cmp.Errors[i].Type < cmp.Errors[j].Type
	})

	cmp.Summary.PlaylistTotal = len(playlist)
	cmp.Summary.EnrichedTotal = len(enriched)

	if cmp.Summary.PlaylistTotal > 0 {
		rate := float64(cmp.Summary.EnrichedWithoutErrors) / float64(cmp.Summary.PlaylistTotal) * 100
		cmp.Summary.SuccessRate = math.Round(rate*10) / 10
	}

	return cmp
}
