package sqlite

import (
	"context"
	"database/sql"
	"log"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

const dbFile string = "diffusion_session_bot.sqlite"

const getCurrentMigration string = `PRAGMA user_version;`
const setCurrentMigration string = `PRAGMA user_version = ?;`

const createProfilesTableIfNotExistsQuery string = `
CREATE TABLE IF NOT EXISTS profiles (
name TEXT NOT NULL PRIMARY KEY,
data TEXT NOT NULL,
created_at DATETIME NOT NULL
);`

const createSessionSnapshotsTableIfNotExistsQuery string = `
CREATE TABLE IF NOT EXISTS session_snapshots (
storage_key TEXT NOT NULL PRIMARY KEY,
version INTEGER NOT NULL,
data TEXT NOT NULL,
updated_at DATETIME NOT NULL
);`

type migration struct {
	migrationName  string
	migrationQuery string
}

var migrations = []migration{
	{migrationName: "create profiles table", migrationQuery: createProfilesTableIfNotExistsQuery},
	{migrationName: "create session snapshots table", migrationQuery: createSessionSnapshotsTableIfNotExistsQuery},
}

func New(ctx context.Context) (*sql.DB, error) {
	filename, err := DBFilename()
	if err != nil {
		return nil, err
	}

	err = touchDBFile(filename)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", filename)
	if err != nil {
		return nil, err
	}

	err = migrate(ctx, db)
	if err != nil {
		return nil, err
	}

	return db, nil
}

// NewInMemory opens a private in-memory database, mainly for tests.
func NewInMemory(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, err
	}

	// Each connection to :memory: gets its own database.
	db.SetMaxOpenConns(1)

	err = migrate(ctx, db)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func migrate(ctx context.Context, db *sql.DB) error {
	var currentMigration int

	row := db.QueryRowContext(ctx, getCurrentMigration)

	err := row.Scan(&currentMigration)
	if err != nil {
		return err
	}

	requiredMigration := len(migrations)

	log.Printf("Current DB version: %v, required DB version: %v\n", currentMigration, requiredMigration)

	if currentMigration < requiredMigration {
		for migrationNum := currentMigration + 1; migrationNum <= requiredMigration; migrationNum++ {
			err = execMigration(ctx, db, migrationNum)
			if err != nil {
				log.Printf("Error running migration %v '%v'\n", migrationNum, migrations[migrationNum-1].migrationName)

				return err
			}
		}
	}

	return nil
}

func execMigration(ctx context.Context, db *sql.DB, migrationNum int) error {
	log.Printf("Running migration %v '%v'\n", migrationNum, migrations[migrationNum-1].migrationName)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	//nolint
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, migrations[migrationNum-1].migrationQuery)
	if err != nil {
		return err
	}

	setQuery := strings.Replace(setCurrentMigration, "?", strconv.Itoa(migrationNum), 1)

	_, err = tx.ExecContext(ctx, setQuery)
	if err != nil {
		return err
	}

	err = tx.Commit()
	if err != nil {
		return err
	}

	return nil
}

func DBFilename() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	return dir + "/" + dbFile, nil
}

func touchDBFile(filename string) error {
	_, err := os.Stat(filename)
	if os.IsNotExist(err) {
		file, createErr := os.Create(filename)
		if createErr != nil {
			return createErr
		}

		closeErr := file.Close()
		if closeErr != nil {
			return closeErr
		}
	}

	return nil
}
