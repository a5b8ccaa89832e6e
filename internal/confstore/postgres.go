package confstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sabrina-ksks/shaberina/internal/entity"
)

// Schema is the SQL DDL for the configuration tables. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
//
// Tone and speed are stored as signed text ("+2", "0", "-3") rather than
// integers; the rendered form is the canonical one for both display and
// persistence.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id      TEXT PRIMARY KEY,
    name    TEXT NOT NULL,
    speaker TEXT NOT NULL,
    emotion TEXT NOT NULL,
    effect  TEXT NOT NULL,
    tone    TEXT NOT NULL,
    speed   TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS guilds (
    id           TEXT PRIMARY KEY,
    name         TEXT NOT NULL,
    prefix       TEXT NOT NULL,
    target_ch    TEXT NOT NULL,
    auto_join    BOOLEAN NOT NULL,
    read_access  BOOLEAN NOT NULL,
    read_author  BOOLEAN NOT NULL,
    read_outsider BOOLEAN NOT NULL
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is the persistence interface consumed by [Service]. Get methods
// report (zero, false, nil) when no record exists.
type Store interface {
	Migrate(ctx context.Context) error
	GetUser(ctx context.Context, id string) (entity.UserConfig, bool, error)
	GetGuild(ctx context.Context, id string) (entity.GuildConfig, bool, error)
	CreateUser(ctx context.Context, ref entity.Ref, cfg entity.UserConfig) error
	CreateGuild(ctx context.Context, ref entity.Ref, cfg entity.GuildConfig) error
	UpdateUser(ctx context.Context, id string, cfg entity.UserConfig) (bool, error)
	UpdateGuild(ctx context.Context, id string, cfg entity.GuildConfig) (bool, error)
	ListGuildTargets(ctx context.Context) (map[string]string, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] using the given connection or
// pool. Call [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL, creating the users and guilds tables if
// they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("confstore: migrate: %w", err)
	}
	return nil
}

// GetUser retrieves a user's configuration by id.
func (s *PostgresStore) GetUser(ctx context.Context, id string) (entity.UserConfig, bool, error) {
	const query = `
		SELECT speaker, emotion, effect, tone, speed
		FROM users
		WHERE id = $1`

	var cfg entity.UserConfig
	var tone, speed string
	err := s.db.QueryRow(ctx, query, id).Scan(&cfg.Speaker, &cfg.Emotion, &cfg.Effect, &tone, &speed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.UserConfig{}, false, nil
		}
		return entity.UserConfig{}, false, fmt.Errorf("confstore: get user %q: %w", id, err)
	}
	if cfg.Tone, err = entity.ParseSigned(tone); err != nil {
		return entity.UserConfig{}, false, fmt.Errorf("confstore: get user %q: %w", id, err)
	}
	if cfg.Speed, err = entity.ParseSigned(speed); err != nil {
		return entity.UserConfig{}, false, fmt.Errorf("confstore: get user %q: %w", id, err)
	}
	return cfg, true, nil
}

// GetGuild retrieves a guild's configuration by id.
func (s *PostgresStore) GetGuild(ctx context.Context, id string) (entity.GuildConfig, bool, error) {
	const query = `
		SELECT prefix, target_ch, auto_join, read_access, read_author, read_outsider
		FROM guilds
		WHERE id = $1`

	var cfg entity.GuildConfig
	err := s.db.QueryRow(ctx, query, id).Scan(
		&cfg.Prefix, &cfg.TargetChannel,
		&cfg.AutoJoin, &cfg.ReadAccess, &cfg.ReadAuthor, &cfg.ReadOutsider,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entity.GuildConfig{}, false, nil
		}
		return entity.GuildConfig{}, false, fmt.Errorf("confstore: get guild %q: %w", id, err)
	}
	return cfg, true, nil
}

// CreateUser inserts a new user record. The configuration is validated and an
// error is returned if a record with the same id already exists.
func (s *PostgresStore) CreateUser(ctx context.Context, ref entity.Ref, cfg entity.UserConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("confstore: create user %q: %w", ref.ID, err)
	}

	const query = `
		INSERT INTO users (id, name, speaker, emotion, effect, tone, speed)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err := s.db.Exec(ctx, query,
		ref.ID, ref.Name, cfg.Speaker, cfg.Emotion, cfg.Effect,
		entity.FormatSigned(cfg.Tone), entity.FormatSigned(cfg.Speed),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("confstore: user %q already exists", ref.ID)
		}
		return fmt.Errorf("confstore: create user %q: %w", ref.ID, err)
	}
	return nil
}

// CreateGuild inserts a new guild record. The configuration is validated and
// an error is returned if a record with the same id already exists.
func (s *PostgresStore) CreateGuild(ctx context.Context, ref entity.Ref, cfg entity.GuildConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("confstore: create guild %q: %w", ref.ID, err)
	}

	const query = `
		INSERT INTO guilds (id, name, prefix, target_ch, auto_join, read_access, read_author, read_outsider)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

	_, err := s.db.Exec(ctx, query,
		ref.ID, ref.Name, cfg.Prefix, cfg.TargetChannel,
		cfg.AutoJoin, cfg.ReadAccess, cfg.ReadAuthor, cfg.ReadOutsider,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("confstore: guild %q already exists", ref.ID)
		}
		return fmt.Errorf("confstore: create guild %q: %w", ref.ID, err)
	}
	return nil
}

// UpdateUser replaces an existing user's configuration. It reports whether a
// record was found.
func (s *PostgresStore) UpdateUser(ctx context.Context, id string, cfg entity.UserConfig) (bool, error) {
	if err := cfg.Validate(); err != nil {
		return false, fmt.Errorf("confstore: update user %q: %w", id, err)
	}

	const query = `
		UPDATE users SET speaker = $2, emotion = $3, effect = $4, tone = $5, speed = $6
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query,
		id, cfg.Speaker, cfg.Emotion, cfg.Effect,
		entity.FormatSigned(cfg.Tone), entity.FormatSigned(cfg.Speed),
	)
	if err != nil {
		return false, fmt.Errorf("confstore: update user %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateGuild replaces an existing guild's configuration. It reports whether
// a record was found.
func (s *PostgresStore) UpdateGuild(ctx context.Context, id string, cfg entity.GuildConfig) (bool, error) {
	if err := cfg.Validate(); err != nil {
		return false, fmt.Errorf("confstore: update guild %q: %w", id, err)
	}

	const query = `
		UPDATE guilds SET prefix = $2, target_ch = $3, auto_join = $4,
			read_access = $5, read_author = $6, read_outsider = $7
		WHERE id = $1`

	tag, err := s.db.Exec(ctx, query,
		id, cfg.Prefix, cfg.TargetChannel,
		cfg.AutoJoin, cfg.ReadAccess, cfg.ReadAuthor, cfg.ReadOutsider,
	)
	if err != nil {
		return false, fmt.Errorf("confstore: update guild %q: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListGuildTargets returns the target text channel for every known guild,
// keyed by guild id. Used at startup to restore per-guild routing without a
// cold cache miss per guild.
func (s *PostgresStore) ListGuildTargets(ctx context.Context) (map[string]string, error) {
	const query = `SELECT id, target_ch FROM guilds`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("confstore: list guild targets: %w", err)
	}
	defer rows.Close()

	targets := make(map[string]string)
	for rows.Next() {
		var id, target string
		if err := rows.Scan(&id, &target); err != nil {
			return nil, fmt.Errorf("confstore: list guild targets scan: %w", err)
		}
		targets[id] = target
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("confstore: list guild targets: %w", err)
	}
	return targets, nil
}

// isDuplicateKeyError checks whether a PostgreSQL error is a unique-violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
