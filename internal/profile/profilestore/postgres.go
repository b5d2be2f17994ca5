package profilestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	pgxvec "github.com/pgvector/pgvector-go/pgx"

	"github.com/MrWong99/voxprint/pkg/voice"
)

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database. Profiles are
// stored as one JSONB document per user; writing samples carry an optional
// pgvector embedding column for similarity lookups.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a [PostgresStore] using the given connection or
// pool. The caller is responsible for calling [PostgresStore.Migrate] before
// issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Connect establishes a pgx connection pool to dsn with pgvector types
// registered on every connection, suitable for passing to
// [NewPostgresStore].
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("profilestore: parse dsn: %w", err)
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("profilestore: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("profilestore: ping: %w", err)
	}
	return pool, nil
}

// schemaDDL renders the DDL for the voxprint tables. embeddingDimensions
// must match the configured embedding model's output dimension; changing it
// after the first migration requires a manual schema change.
func schemaDDL(embeddingDimensions int) string {
	return fmt.Sprintf(`
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS voice_profiles (
    user_id     TEXT         PRIMARY KEY,
    profile     JSONB        NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now(),
    updated_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS writing_samples (
    id          TEXT         PRIMARY KEY,
    user_id     TEXT         NOT NULL,
    text        TEXT         NOT NULL,
    patterns    JSONB,
    embedding   vector(%d),
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_writing_samples_user
    ON writing_samples (user_id);

CREATE INDEX IF NOT EXISTS idx_writing_samples_embedding
    ON writing_samples USING hnsw (embedding vector_cosine_ops);

CREATE TABLE IF NOT EXISTS calibration_rounds (
    id          TEXT         PRIMARY KEY,
    user_id     TEXT         NOT NULL,
    rating      INT          NOT NULL,
    feedback    TEXT         NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_calibration_rounds_user
    ON calibration_rounds (user_id);
`, embeddingDimensions)
}

// Migrate creates the voxprint tables, indexes, and the pgvector extension
// if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context, embeddingDimensions int) error {
	if _, err := s.db.Exec(ctx, schemaDDL(embeddingDimensions)); err != nil {
		return fmt.Errorf("profilestore: migrate: %w", err)
	}
	return nil
}

// ─── profiles ────────────────────────────────────────────────────────────────

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*voice.VoiceProfile, error) {
	const q = `SELECT profile FROM voice_profiles WHERE user_id = $1`

	var doc []byte
	err := s.db.QueryRow(ctx, q, userID).Scan(&doc)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("profilestore: get profile %q: %w", userID, err)
	}

	var p voice.VoiceProfile
	if err := json.Unmarshal(doc, &p); err != nil {
		return nil, fmt.Errorf("profilestore: unmarshal profile %q: %w", userID, err)
	}
	return &p, nil
}

func (s *PostgresStore) SaveProfile(ctx context.Context, p *voice.VoiceProfile) error {
	if p == nil || p.UserID == "" {
		return errors.New("profilestore: profile must have a user id")
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("profilestore: marshal profile %q: %w", p.UserID, err)
	}

	const q = `
		INSERT INTO voice_profiles (user_id, profile)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET
		    profile    = EXCLUDED.profile,
		    updated_at = now()`

	if _, err := s.db.Exec(ctx, q, p.UserID, doc); err != nil {
		return fmt.Errorf("profilestore: save profile %q: %w", p.UserID, err)
	}
	return nil
}

func (s *PostgresStore) DeleteProfile(ctx context.Context, userID string) error {
	// Not transactional on purpose: each statement is idempotent and a
	// partial delete is repaired by retrying.
	stmts := []string{
		`DELETE FROM calibration_rounds WHERE user_id = $1`,
		`DELETE FROM writing_samples WHERE user_id = $1`,
		`DELETE FROM voice_profiles WHERE user_id = $1`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q, userID); err != nil {
			return fmt.Errorf("profilestore: delete profile %q: %w", userID, err)
		}
	}
	return nil
}

func (s *PostgresStore) ListUserIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT user_id FROM voice_profiles ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("profilestore: list user ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("profilestore: scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profilestore: list user ids: %w", err)
	}
	return ids, nil
}

// ─── writing samples ─────────────────────────────────────────────────────────

func (s *PostgresStore) AddSample(ctx context.Context, sample *voice.WritingSample) error {
	if sample == nil || sample.ID == "" || sample.UserID == "" {
		return errors.New("profilestore: sample must have an id and user id")
	}
	patternsJSON, err := marshalPatterns(sample.Patterns)
	if err != nil {
		return fmt.Errorf("profilestore: marshal sample patterns %q: %w", sample.ID, err)
	}

	const q = `
		INSERT INTO writing_samples (id, user_id, text, patterns, embedding)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err = s.db.QueryRow(ctx, q,
		sample.ID, sample.UserID, sample.Text, patternsJSON, embeddingArg(sample.Embedding),
	).Scan(&sample.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("profilestore: sample with id %q already exists", sample.ID)
		}
		return fmt.Errorf("profilestore: add sample %q: %w", sample.ID, err)
	}
	return nil
}

func (s *PostgresStore) GetSample(ctx context.Context, id string) (*voice.WritingSample, error) {
	const q = `
		SELECT id, user_id, text, patterns, embedding, created_at
		FROM writing_samples
		WHERE id = $1`

	sample, err := scanSample(s.db.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("profilestore: get sample %q: %w", id, err)
	}
	return sample, nil
}

func (s *PostgresStore) ListSamples(ctx context.Context, userID string) ([]voice.WritingSample, error) {
	const q = `
		SELECT id, user_id, text, patterns, embedding, created_at
		FROM writing_samples
		WHERE user_id = $1
		ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("profilestore: list samples %q: %w", userID, err)
	}
	defer rows.Close()

	samples := []voice.WritingSample{}
	for rows.Next() {
		sample, err := scanSample(rows)
		if err != nil {
			return nil, fmt.Errorf("profilestore: scan sample: %w", err)
		}
		samples = append(samples, *sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profilestore: list samples %q: %w", userID, err)
	}
	return samples, nil
}

func (s *PostgresStore) DeleteSample(ctx context.Context, id string) error {
	const q = `DELETE FROM writing_samples WHERE id = $1`
	if _, err := s.db.Exec(ctx, q, id); err != nil {
		return fmt.Errorf("profilestore: delete sample %q: %w", id, err)
	}
	return nil
}

func (s *PostgresStore) NearestSamples(ctx context.Context, userID string, embedding []float32, topK int) ([]SampleMatch, error) {
	const q = `
		SELECT id, user_id, text, patterns, embedding, created_at,
		       embedding <=> $2 AS distance
		FROM writing_samples
		WHERE user_id = $1 AND embedding IS NOT NULL
		ORDER BY distance
		LIMIT $3`

	rows, err := s.db.Query(ctx, q, userID, pgvector.NewVector(embedding), topK)
	if err != nil {
		return nil, fmt.Errorf("profilestore: nearest samples %q: %w", userID, err)
	}
	defer rows.Close()

	matches := []SampleMatch{}
	for rows.Next() {
		var (
			sample       voice.WritingSample
			patternsJSON []byte
			vec          *pgvector.Vector
			distance     float64
		)
		if err := rows.Scan(
			&sample.ID, &sample.UserID, &sample.Text, &patternsJSON, &vec, &sample.CreatedAt,
			&distance,
		); err != nil {
			return nil, fmt.Errorf("profilestore: scan sample match: %w", err)
		}
		if err := unmarshalSampleFields(&sample, patternsJSON, vec); err != nil {
			return nil, err
		}
		matches = append(matches, SampleMatch{Sample: sample, Distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profilestore: nearest samples %q: %w", userID, err)
	}
	return matches, nil
}

// ─── calibration rounds ──────────────────────────────────────────────────────

func (s *PostgresStore) AddRound(ctx context.Context, r *voice.CalibrationRound) error {
	if r == nil || r.ID == "" || r.UserID == "" {
		return errors.New("profilestore: round must have an id and user id")
	}
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("profilestore: round rating must be 1-5, got %d", r.Rating)
	}

	const q = `
		INSERT INTO calibration_rounds (id, user_id, rating, feedback)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := s.db.QueryRow(ctx, q, r.ID, r.UserID, r.Rating, r.Feedback).Scan(&r.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("profilestore: round with id %q already exists", r.ID)
		}
		return fmt.Errorf("profilestore: add round %q: %w", r.ID, err)
	}
	return nil
}

func (s *PostgresStore) ListRounds(ctx context.Context, userID string) ([]voice.CalibrationRound, error) {
	const q = `
		SELECT id, user_id, rating, feedback, created_at
		FROM calibration_rounds
		WHERE user_id = $1
		ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("profilestore: list rounds %q: %w", userID, err)
	}
	defer rows.Close()

	rounds := []voice.CalibrationRound{}
	for rows.Next() {
		var r voice.CalibrationRound
		if err := rows.Scan(&r.ID, &r.UserID, &r.Rating, &r.Feedback, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("profilestore: scan round: %w", err)
		}
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profilestore: list rounds %q: %w", userID, err)
	}
	return rounds, nil
}

func (s *PostgresStore) AverageRating(ctx context.Context, userID string) (float64, int, error) {
	const q = `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM calibration_rounds
		WHERE user_id = $1`

	var (
		avg   float64
		count int
	)
	if err := s.db.QueryRow(ctx, q, userID).Scan(&avg, &count); err != nil {
		return 0, 0, fmt.Errorf("profilestore: average rating %q: %w", userID, err)
	}
	return avg, count, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

// row is the subset of pgx.Row shared by pgx.Row and pgx.Rows.
type row interface {
	Scan(dest ...any) error
}

func scanSample(r row) (*voice.WritingSample, error) {
	var (
		sample       voice.WritingSample
		patternsJSON []byte
		vec          *pgvector.Vector
	)
	if err := r.Scan(
		&sample.ID, &sample.UserID, &sample.Text, &patternsJSON, &vec, &sample.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := unmarshalSampleFields(&sample, patternsJSON, vec); err != nil {
		return nil, err
	}
	return &sample, nil
}

func unmarshalSampleFields(sample *voice.WritingSample, patternsJSON []byte, vec *pgvector.Vector) error {
	if len(patternsJSON) > 0 {
		var patterns voice.WrittenPatterns
		if err := json.Unmarshal(patternsJSON, &patterns); err != nil {
			return fmt.Errorf("profilestore: unmarshal sample patterns %q: %w", sample.ID, err)
		}
		sample.Patterns = &patterns
	}
	if vec != nil {
		sample.Embedding = vec.Slice()
	}
	return nil
}

// marshalPatterns keeps unanalyzed samples as SQL NULL rather than a JSON
// null literal.
func marshalPatterns(p *voice.WrittenPatterns) ([]byte, error) {
	if p == nil {
		return nil, nil
	}
	return json.Marshal(p)
}

// embeddingArg keeps absent embeddings as SQL NULL.
func embeddingArg(embedding []float32) any {
	if len(embedding) == 0 {
		return nil
	}
	return pgvector.NewVector(embedding)
}

// isDuplicateKeyError reports whether err is a PostgreSQL unique violation
// (SQLSTATE 23505).
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
