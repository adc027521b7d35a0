package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/partydeck/party-server-go/internal/card"
	"go.uber.org/zap"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id                TEXT PRIMARY KEY,
	referee_player_id TEXT,
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS players (
	session_id TEXT NOT NULL,
	player_id  TEXT NOT NULL,
	uid        TEXT,
	user_id    TEXT,
	name       TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL DEFAULT 'active',
	PRIMARY KEY (session_id, player_id)
);
CREATE INDEX IF NOT EXISTS idx_players_session ON players(session_id);
CREATE TABLE IF NOT EXISTS hands (
	session_id TEXT NOT NULL,
	player_id  TEXT NOT NULL,
	cards      JSONB NOT NULL DEFAULT '[]',
	version    INT NOT NULL DEFAULT 0,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (session_id, player_id)
);
CREATE TABLE IF NOT EXISTS rule_cards (
	player_id  TEXT PRIMARY KEY,
	cards      JSONB NOT NULL DEFAULT '[]',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS events (
	id         UUID PRIMARY KEY,
	session_id TEXT NOT NULL,
	player_id  TEXT,
	type       TEXT NOT NULL,
	payload    JSONB NOT NULL DEFAULT '{}',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_events_session ON events(session_id, created_at);
`

// Postgres is the pgx-backed Gateway. One pool serves all sessions; card
// collections are stored as jsonb documents keyed by session and player.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

var _ Gateway = (*Postgres)(nil)

// NewPostgres connects to the database, bootstraps the schema, and returns
// the gateway.
func NewPostgres(ctx context.Context, databaseURL string, maxConns int32, logger *zap.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}

	logger.Info("postgres gateway initialized",
		zap.Int32("max_conns", cfg.MaxConns),
	)
	return &Postgres{pool: pool, logger: logger}, nil
}

// SaveHand upserts a player's hand document and version counter.
func (p *Postgres) SaveHand(ctx context.Context, sessionID, playerID string, hand []card.Record, version int) error {
	payload, err := json.Marshal(hand)
	if err != nil {
		return fmt.Errorf("marshal hand: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO hands (session_id, player_id, cards, version, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (session_id, player_id)
		DO UPDATE SET cards = EXCLUDED.cards, version = EXCLUDED.version, updated_at = now()`,
		sessionID, playerID, payload, version,
	)
	if err != nil {
		return fmt.Errorf("upsert hand: %w", err)
	}
	return nil
}

// SaveRuleCards upserts a player's rule-card document.
func (p *Postgres) SaveRuleCards(ctx context.Context, playerID string, ruleCards []card.Record) error {
	payload, err := json.Marshal(ruleCards)
	if err != nil {
		return fmt.Errorf("marshal rule cards: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO rule_cards (player_id, cards, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (player_id)
		DO UPDATE SET cards = EXCLUDED.cards, updated_at = now()`,
		playerID, payload,
	)
	if err != nil {
		return fmt.Errorf("upsert rule cards: %w", err)
	}
	return nil
}

// SaveReferee updates the session's referee pointer, creating the session row
// when it does not exist yet.
func (p *Postgres) SaveReferee(ctx context.Context, sessionID, refereePlayerID string) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO sessions (id, referee_player_id, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (id)
		DO UPDATE SET referee_player_id = EXCLUDED.referee_player_id, updated_at = now()`,
		sessionID, refereePlayerID,
	)
	if err != nil {
		return fmt.Errorf("update referee: %w", err)
	}
	return nil
}

// ActivePlayers returns every player row attached to the session.
func (p *Postgres) ActivePlayers(ctx context.Context, sessionID string) ([]PlayerRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT player_id, COALESCE(uid, ''), COALESCE(user_id, ''), name, status
		FROM players WHERE session_id = $1`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query players: %w", err)
	}
	defer rows.Close()

	var players []PlayerRecord
	for rows.Next() {
		var rec PlayerRecord
		if err := rows.Scan(&rec.PlayerID, &rec.UID, &rec.UserID, &rec.Name, &rec.Status); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		players = append(players, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate players: %w", err)
	}
	return players, nil
}

// AppendEvent inserts a fan-out event row.
func (p *Postgres) AppendEvent(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = p.pool.Exec(ctx, `
		INSERT INTO events (id, session_id, player_id, type, payload, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		ev.ID, ev.SessionID, ev.PlayerID, ev.Type, payload, ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// UpsertPlayer writes a player row so ActivePlayers can see it. The game core
// calls this when a player joins or changes status.
func (p *Postgres) UpsertPlayer(ctx context.Context, sessionID string, rec PlayerRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO players (session_id, player_id, uid, user_id, name, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, player_id)
		DO UPDATE SET uid = EXCLUDED.uid, user_id = EXCLUDED.user_id,
		              name = EXCLUDED.name, status = EXCLUDED.status`,
		sessionID, rec.ResolveID(), rec.UID, rec.UserID, rec.Name, rec.Status,
	)
	if err != nil {
		return fmt.Errorf("upsert player: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
