package profiles

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"diffusion_session_bot/clock"
	"diffusion_session_bot/entities"
	"diffusion_session_bot/repositories"
)

// Profiles are stored as one JSON blob per name. The optional highres and
// upscale bundles make a flat column layout awkward, and nothing queries
// into individual parameters. ON CONFLICT keeps the original rowid, which
// is what preserves insertion order across replacements.
const upsertProfileQuery string = `
INSERT INTO profiles (name, data, created_at) VALUES (?, ?, ?)
ON CONFLICT(name) DO UPDATE SET data = excluded.data;
`

const deleteProfileQuery string = `
DELETE FROM profiles WHERE name = ?;
`

const getProfileByNameQuery string = `
SELECT data FROM profiles WHERE name = ?;
`

const listProfilesQuery string = `
SELECT data FROM profiles ORDER BY rowid;
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

func (repo *sqliteRepo) Upsert(ctx context.Context, profile *entities.Profile) (*entities.Profile, error) {
	data, err := json.Marshal(profile)
	if err != nil {
		return nil, err
	}

	_, err = repo.dbConn.ExecContext(ctx, upsertProfileQuery, profile.Name, string(data), repo.clock.Now())
	if err != nil {
		return nil, err
	}

	return profile, nil
}

func (repo *sqliteRepo) Delete(ctx context.Context, name string) error {
	_, err := repo.dbConn.ExecContext(ctx, deleteProfileQuery, name)

	return err
}

func (repo *sqliteRepo) GetByName(ctx context.Context, name string) (*entities.Profile, error) {
	var data string

	err := repo.dbConn.QueryRowContext(ctx, getProfileByNameQuery, name).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.NewNotFoundError(fmt.Sprintf("profile %q", name))
		}

		return nil, err
	}

	var profile entities.Profile

	err = json.Unmarshal([]byte(data), &profile)
	if err != nil {
		return nil, err
	}

	return &profile, nil
}

func (repo *sqliteRepo) ListAll(ctx context.Context) ([]entities.Profile, error) {
	rows, err := repo.dbConn.QueryContext(ctx, listProfilesQuery)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var profiles []entities.Profile

	for rows.Next() {
		var data string

		if err := rows.Scan(&data); err != nil {
			return nil, err
		}

		var profile entities.Profile

		if err := json.Unmarshal([]byte(data), &profile); err != nil {
			return nil, err
		}

		profiles = append(profiles, profile)
	}

	return profiles, rows.Err()
}
