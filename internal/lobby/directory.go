// Package lobby mirrors live games into a shared directory for listing
// and housekeeping.
package lobby

import (
	"context"
	"errors"
	"sort"

	"github.com/park285/ek-server/pkg/ekdto"
)

var ErrNotFound = errors.New("lobby: game not found")

// Directory stores lobby summaries keyed by game id.
type Directory interface {
	Publish(ctx context.Context, s ekdto.GameSummary) error
	Remove(ctx context.Context, gameID string) error
	Get(ctx context.Context, gameID string) (ekdto.GameSummary, error)
	List(ctx context.Context) ([]ekdto.GameSummary, error)
}

func sortSummaries(out []ekdto.GameSummary) {
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
}
