package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

type replicaRow struct {
	model.Replica
	ClaimedAtMillis int64 `db:"claimed_at"`
}

func (r replicaRow) toModel() model.Replica {
	out := r.Replica
	out.ClaimedAt = time.UnixMilli(r.ClaimedAtMillis).UTC()
	return out
}

func (s *SQLStore) UpsertReplica(ctx context.Context, replica model.Replica) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO screen_replicas (screen_id, name, registered, screen_url, controller_url, claimed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (screen_id) DO UPDATE SET
		name = COALESCE(excluded.name, screen_replicas.name),
		registered = excluded.registered,
		screen_url = excluded.screen_url,
		controller_url = excluded.controller_url,
		claimed_at = excluded.claimed_at
		`),
		replica.ScreenID,
		nullString(replica.Name),
		replica.Registered,
		replica.ScreenURL,
		replica.ControllerURL,
		replica.ClaimedAt.UnixMilli(),
	)
	if err != nil {
		log.Error().Err(err).Str("screen_id", replica.ScreenID).Msg("failed to upsert replica")
	}
	return err
}

func (s *SQLStore) GetReplica(ctx context.Context, screenID string) (model.Replica, error) {
	var row replicaRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT screen_id, name, registered, screen_url, controller_url, claimed_at
		FROM screen_replicas
		WHERE screen_id = ?
		`), screenID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Replica{}, model.ErrScreenNotFound
	}
	if err != nil {
		log.Error().Err(err).Str("screen_id", screenID).Msg("failed to get replica")
		return model.Replica{}, err
	}
	return row.toModel(), nil
}

func (s *SQLStore) ListReplicas(ctx context.Context) ([]model.Replica, error) {
	var rows []replicaRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT screen_id, name, registered, screen_url, controller_url, claimed_at
		FROM screen_replicas
		ORDER BY claimed_at
		`)
	if err != nil {
		log.Error().Err(err).Msg("failed to list replicas")
		return nil, err
	}
	out := make([]model.Replica, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *SQLStore) DeleteReplica(ctx context.Context, screenID string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM screen_replicas WHERE screen_id = ?`), screenID)
	if err != nil {
		log.Error().Err(err).Str("screen_id", screenID).Msg("failed to delete replica")
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.ErrScreenNotFound
	}
	return nil
}
