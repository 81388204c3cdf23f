package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kapu/cashier-dialog-gen/internal/config"
	"github.com/kapu/cashier-dialog-gen/internal/domain"
	"github.com/kapu/cashier-dialog-gen/pkg/errors"
)

const dialoguesSchema = `
CREATE TABLE IF NOT EXISTS dialogues (
	dialog_id    BIGINT PRIMARY KEY,
	run_id       TEXT NOT NULL DEFAULT '',
	mode         TEXT NOT NULL,
	lang         TEXT NOT NULL,
	personality  TEXT NOT NULL,
	turn_count   INTEGER NOT NULL,
	total_energy DOUBLE PRECISION NOT NULL,
	allergens    TEXT[] NOT NULL DEFAULT '{}',
	flags        JSONB NOT NULL,
	record       JSONB NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS dialogues_run_id_idx ON dialogues (run_id);
`

const insertDialogue = `
INSERT INTO dialogues
	(dialog_id, run_id, mode, lang, personality, turn_count, total_energy, allergens, flags, record, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (dialog_id) DO NOTHING`

// PostgresStore keeps every record as JSONB next to a few queryable columns.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenPostgres connects, pings and makes sure the table exists.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.NewStorageError("failed to open postgres", "postgres", "open", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, errors.NewStorageError("failed to ping postgres", "postgres", "ping", err)
	}

	logger.Info("PostgreSQL connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
	)

	store := NewPostgresStore(db, logger)
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func NewPostgresStore(db *sql.DB, logger *zap.Logger) *PostgresStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{db: db, logger: logger}
}

func (p *PostgresStore) Name() string { return "postgres" }

func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, dialoguesSchema); err != nil {
		return errors.NewStorageError("failed to create dialogues table", p.Name(), "schema", err)
	}
	return nil
}

// Save inserts the record; a dialog id that already exists is left untouched.
func (p *PostgresStore) Save(ctx context.Context, rec *domain.DialogueRecord) error {
	record, err := json.Marshal(rec)
	if err != nil {
		return errors.NewStorageError("failed to encode dialogue record", p.Name(), "save", err)
	}
	flags, err := json.Marshal(rec.ValidationFlags)
	if err != nil {
		return errors.NewStorageError("failed to encode validation flags", p.Name(), "save", err)
	}

	allergens := rec.FinalOrder.Allergens
	if allergens == nil {
		allergens = []string{}
	}

	res, err := p.db.ExecContext(ctx, insertDialogue,
		rec.DialogID,
		rec.RunID,
		rec.Mode,
		string(rec.ClientProfile.Lang),
		string(rec.ClientProfile.Personality),
		len(rec.Turns),
		rec.TotalEnergy,
		pq.Array(allergens),
		flags,
		record,
		rec.CreatedAt,
	)
	if err != nil {
		p.logger.Error("Postgres insert failed", zap.Int64("dialog_id", rec.DialogID), zap.Error(err))
		return errors.NewStorageError("failed to insert dialogue record", p.Name(), "save", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		p.logger.Warn("Dialogue already stored", zap.Int64("dialog_id", rec.DialogID))
	}
	return nil
}

// Load reads a stored record back from its JSONB column.
func (p *PostgresStore) Load(ctx context.Context, id int64) (*domain.DialogueRecord, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, `SELECT record FROM dialogues WHERE dialog_id = $1`, id).Scan(&raw)
	if err != nil {
		return nil, errors.NewStorageError("failed to load dialogue record", p.Name(), "load", err)
	}
	var rec domain.DialogueRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, errors.NewStorageError("failed to decode dialogue record", p.Name(), "load", err)
	}
	return &rec, nil
}

func (p *PostgresStore) Close() error {
	if p.db != nil {
		return p.db.Close()
	}
	return nil
}
