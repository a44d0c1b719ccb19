package session_snapshots

import (
	"context"

	"diffusion_session_bot/entities"
)

type Repository interface {
	Save(ctx context.Context, snapshot *entities.SessionSnapshot) error
	Load(ctx context.Context) (*entities.SessionSnapshot, error)
}
