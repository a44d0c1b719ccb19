package profile_registry

import (
	"context"
	"iter"

	"diffusion_session_bot/entities"
)

type Registry interface {
	Save(ctx context.Context, profile entities.Profile) error
	Remove(ctx context.Context, name string) error
	List() iter.Seq[entities.Profile]
	Apply(name string) (*entities.Profile, error)
}
