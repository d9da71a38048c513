package ports

import (
	"context"

	"github.com/ghalamif/LineFlow/internal/domain"
)

// SeriesSource fetches every sample of a window. Failures are *domain.UpstreamError.
type SeriesSource interface {
	Fetch(ctx context.Context, w domain.QueryWindow) (domain.Series, error)
	Name() string
}
