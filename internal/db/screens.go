package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

type screenRow struct {
	ScreenID      string         `db:"screen_id"`
	PIN           string         `db:"pin"`
	Name          sql.NullString `db:"name"`
	Registered    bool           `db:"registered"`
	ControllerURL sql.NullString `db:"controller_url"`
	Content       string         `db:"content"`
	LastUpdate    int64          `db:"last_update"`
}

func (r screenRow) toModel() (model.Screen, error) {
	s := model.Screen{
		Identity:   model.Identity{ScreenID: r.ScreenID, PIN: r.PIN},
		Registered: r.Registered,
		LastUpdate: time.UnixMilli(r.LastUpdate).UTC(),
	}
	if r.Name.Valid {
		s.Name = &r.Name.String
	}
	if r.ControllerURL.Valid {
		s.ControllerURL = &r.ControllerURL.String
	}
	if err := json.Unmarshal([]byte(r.Content), &s.Content); err != nil {
		return model.Screen{}, fmt.Errorf("decode content for %s: %w", r.ScreenID, err)
	}
	return s, nil
}

func (s *SQLStore) GetScreen(ctx context.Context) (model.Screen, error) {
	var row screenRow
	err := s.db.GetContext(ctx, &row, `
		SELECT screen_id, pin, name, registered, controller_url, content, last_update
		FROM screen_state
		ORDER BY last_update DESC
		LIMIT 1
		`)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Screen{}, model.ErrNotFound
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to get screen state")
		return model.Screen{}, err
	}
	return row.toModel()
}

func (s *SQLStore) SaveScreen(ctx context.Context, screen model.Screen) error {
	content := screen.Content
	if content == nil {
		content = []model.Slide{}
	}
	encoded, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}

	_, err = s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO screen_state (screen_id, pin, name, registered, controller_url, content, last_update)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (screen_id) DO UPDATE SET
		pin = excluded.pin,
		name = excluded.name,
		registered = excluded.registered,
		controller_url = excluded.controller_url,
		content = excluded.content,
		last_update = excluded.last_update
		`),
		screen.ScreenID,
		screen.PIN,
		nullString(screen.Name),
		screen.Registered,
		nullString(screen.ControllerURL),
		string(encoded),
		screen.LastUpdate.UnixMilli(),
	)
	if err != nil {
		log.Error().Err(err).Str("screen_id", screen.ScreenID).Msg("failed to save screen state")
	}
	return err
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
