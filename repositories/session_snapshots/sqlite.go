package session_snapshots

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"diffusion_session_bot/clock"
	"diffusion_session_bot/entities"
	"diffusion_session_bot/repositories"
)

// The whole session is persisted as one versioned blob under a fixed
// storage key. The version column rides alongside the blob so a future
// migration can decide what to do with an old snapshot without decoding it.
const storageKey = "session"

const upsertSnapshotQuery string = `
INSERT OR REPLACE INTO session_snapshots (storage_key, version, data, updated_at) VALUES (?, ?, ?, ?);
`

const getSnapshotQuery string = `
SELECT version, data FROM session_snapshots WHERE storage_key = ?;
`

type sqliteRepo struct {
	dbConn *sql.DB
	clock  clock.Clock
}

type Config struct {
	DB *sql.DB
}

func NewRepository(cfg *Config) (Repository, error) {
	if cfg.DB == nil {
		return nil, errors.New("missing DB parameter")
	}

	newRepo := &sqliteRepo{
		dbConn: cfg.DB,
		clock:  clock.NewClock(),
	}

	return newRepo, nil
}

func (repo *sqliteRepo) Save(ctx context.Context, snapshot *entities.SessionSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	_, err = repo.dbConn.ExecContext(ctx, upsertSnapshotQuery,
		storageKey, snapshot.Version, string(data), repo.clock.Now())

	return err
}

func (repo *sqliteRepo) Load(ctx context.Context) (*entities.SessionSnapshot, error) {
	var version int
	var data string

	err := repo.dbConn.QueryRowContext(ctx, getSnapshotQuery, storageKey).Scan(&version, &data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.NewNotFoundError("session snapshot")
		}

		return nil, err
	}

	var snapshot entities.SessionSnapshot

	err = json.Unmarshal([]byte(data), &snapshot)
	if err != nil {
		return nil, err
	}

	snapshot.Version = version

	return &snapshot, nil
}
