package main

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/config"
	"github.com/Nixie-Tech-LLC/beacon/internal/credentials"
	"github.com/Nixie-Tech-LLC/beacon/internal/db"
	redisclient "github.com/Nixie-Tech-LLC/beacon/internal/redis"
)

// backends holds whatever connections the configured store needed.
type backends struct {
	sql   *db.SQLStore
	redis *goredis.Client
	close []func() error
}

func (b *backends) Close() {
	for i := len(b.close) - 1; i >= 0; i-- {
		if err := b.close[i](); err != nil {
			log.Warn().Err(err).Msg("error closing backend")
		}
	}
}

// openBackends connects the store named by STORE_DRIVER, plus redis when an
// address is configured so identities can be shared between screens.
func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}

	if cfg.RedisAddress != "" {
		rdb, err := redisclient.NewClient(ctx, cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
		if err != nil {
			return nil, err
		}
		b.redis = rdb
		b.close = append(b.close, rdb.Close)
	}

	var driver, dsn string
	switch cfg.StoreDriver {
	case "redis":
		return b, nil
	case "postgres":
		driver, dsn = db.DriverPostgres, cfg.DatabaseURL
	default:
		driver, dsn = db.DriverSQLite, cfg.SQLitePath
	}

	conn, err := db.Open(driver, dsn)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.close = append(b.close, conn.Close)
	if err := db.RunMigrations(conn); err != nil {
		b.Close()
		return nil, err
	}
	b.sql = db.NewStore(conn)
	return b, nil
}

func (b *backends) screenStore() db.ScreenStore {
	if b.sql == nil {
		return redisclient.NewScreenStore(b.redis)
	}
	return b.sql
}

func (b *backends) replicaStore() (db.ReplicaStore, error) {
	if b.sql == nil {
		return nil, fmt.Errorf("the controller needs a sql store, set STORE_DRIVER to sqlite or postgres")
	}
	return b.sql, nil
}

func (b *backends) registry() credentials.Registry {
	if b.redis == nil {
		log.Info().Msg("no redis configured, pairing identities are only unique on this host")
		return credentials.NewMemoryRegistry()
	}
	return redisclient.NewRegistry(b.redis)
}
