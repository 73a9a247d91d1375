package out

import (
	"context"

	"beatmark/internal/modules/aggregate/domain"
)

type ManifestStore interface {
	Load(ctx context.Context) ([]domain.Manifest, error)
}

// Host runs plugin processes.
type Host interface {
	CheckLifecycle(ctx context.Context, manifest domain.Manifest) error
	GetMetadata(ctx context.Context, manifest domain.Manifest) (domain.Metadata, error)
	Aggregate(ctx context.Context, manifest domain.Manifest, request domain.Request) (domain.Result, error)
}
