package db

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the database, retrying while it comes up.
func Open(driver, dsn string) (*sqlx.DB, error) {
	const maxRetries = 10
	const retryInterval = 2 * time.Second
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		var conn *sqlx.DB
		conn, err = sqlx.Connect(driver, dsn)
		if err == nil {
			if driver == DriverSQLite {
				// one writer; also keeps :memory: databases on a single connection
				conn.SetMaxOpenConns(1)
			}
			log.Info().Str("driver", driver).Msg("connected to database")
			return conn, nil
		}

		log.Error().Err(err).
			Str("driver", driver).
			Int("attempt", attempt).
			Msgf("failed to connect to database, retrying in %s", retryInterval)

		time.Sleep(retryInterval)
	}

	return nil, fmt.Errorf("could not connect to database after %d attempts: %w", maxRetries, err)
}

// RunMigrations executes every embedded "*.up.sql" file in name order.
// "*.down.sql" files are ignored. The statements are idempotent so running
// them on every start is safe.
func RunMigrations(conn *sqlx.DB) error {
	files, err := fs.Glob(migrations, "migrations/*.up.sql")
	if err != nil {
		return fmt.Errorf("failed to glob migrations: %w", err)
	}
	sort.Strings(files)

	for _, file := range files {
		sqlBytes, err := migrations.ReadFile(file)
		if err != nil {
			return fmt.Errorf("could not read migration %q: %w", file, err)
		}
		if len(sqlBytes) == 0 {
			continue
		}
		if _, err := conn.Exec(string(sqlBytes)); err != nil {
			return fmt.Errorf("error executing migration %q: %w", path.Base(file), err)
		}
		log.Debug().Str("migration", path.Base(file)).Msg("applied migration")
	}
	return nil
}
