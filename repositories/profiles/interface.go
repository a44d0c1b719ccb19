package profiles

import (
	"context"

	"diffusion_session_bot/entities"
)

type Repository interface {
	Upsert(ctx context.Context, profile *entities.Profile) (*entities.Profile, error)
	Delete(ctx context.Context, name string) error
	GetByName(ctx context.Context, name string) (*entities.Profile, error)
	ListAll(ctx context.Context) ([]entities.Profile, error)
}
