package store

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/careatlas/provision-cli/internal/authority"
	"github.com/careatlas/provision-cli/internal/db"
	"github.com/careatlas/provision-cli/internal/feature"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool; tests inject pgxmock here.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS authorities (
	code                TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	tier                TEXT,
	boundary            BYTEA,
	under4_count        BIGINT NOT NULL,
	under4_pct          DOUBLE PRECISION NOT NULL,
	over65_count        BIGINT NOT NULL,
	over65_pct          DOUBLE PRECISION NOT NULL,
	carehome_locations  BIGINT NOT NULL,
	carehome_beds       BIGINT NOT NULL,
	earlyyears_sites    BIGINT NOT NULL,
	earlyyears_places   BIGINT NOT NULL,
	loaded_at           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS features (
	code                    TEXT PRIMARY KEY REFERENCES authorities(code),
	name                    TEXT NOT NULL,
	under4_pct              DOUBLE PRECISION NOT NULL,
	over65_pct              DOUBLE PRECISION NOT NULL,
	under4_per_eys_site     DOUBLE PRECISION NOT NULL,
	under4_per_eys_place    DOUBLE PRECISION NOT NULL,
	over65_per_carehome     DOUBLE PRECISION NOT NULL,
	over65_per_carehome_bed DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS feature_stats (
	name    TEXT PRIMARY KEY,
	mean    DOUBLE PRECISION NOT NULL,
	std_dev DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS cluster_runs (
	id         TEXT PRIMARY KEY,
	k          INT NOT NULL,
	seed       BIGINT NOT NULL,
	n_init     INT NOT NULL,
	inertia    DOUBLE PRECISION NOT NULL,
	iterations INT NOT NULL,
	n_rows     INT NOT NULL,
	silhouette DOUBLE PRECISION,
	anova      JSONB,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
	run_id   TEXT NOT NULL REFERENCES cluster_runs(id),
	code     TEXT NOT NULL,
	name     TEXT NOT NULL,
	label    INT NOT NULL,
	distance DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, code)
);

CREATE TABLE IF NOT EXISTS centroids (
	run_id TEXT NOT NULL REFERENCES cluster_runs(id),
	label  INT NOT NULL,
	size   INT NOT NULL,
	f0     DOUBLE PRECISION NOT NULL,
	f1     DOUBLE PRECISION NOT NULL,
	f2     DOUBLE PRECISION NOT NULL,
	f3     DOUBLE PRECISION NOT NULL,
	f4     DOUBLE PRECISION NOT NULL,
	f5     DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, label)
);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(postgresMigration, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return eris.Wrap(err, "postgres: migrate")
		}
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

var authorityColumns = []string{
	"code", "name", "tier", "boundary",
	"under4_count", "under4_pct", "over65_count", "over65_pct",
	"carehome_locations", "carehome_beds", "earlyyears_sites", "earlyyears_places",
	"loaded_at",
}

func (s *PostgresStore) UpsertAuthorities(ctx context.Context, records []authority.Record) error {
	rows := make([][]any, len(records))
	for i, r := range records {
		rows[i] = []any{
			r.Code, r.Name, string(r.Tier), r.BoundaryEWKB,
			r.Under4Count, r.Under4Pct, r.Over65Count, r.Over65Pct,
			r.CareHomeLocations, r.CareHomeBeds, r.EarlyYearsSites, r.EarlyYearsPlaces,
			r.LoadedAt,
		}
	}
	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "authorities",
		Columns:      authorityColumns,
		ConflictKeys: []string{"code"},
	}, rows)
	return eris.Wrap(err, "postgres: upsert authorities")
}

func (s *PostgresStore) ListAuthorities(ctx context.Context) ([]authority.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT code, name, tier, boundary,
		       under4_count, under4_pct, over65_count, over65_pct,
		       carehome_locations, carehome_beds, earlyyears_sites, earlyyears_places,
		       loaded_at
		FROM authorities ORDER BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list authorities")
	}
	defer rows.Close()

	var out []authority.Record
	for rows.Next() {
		var r authority.Record
		var tier string
		if err := rows.Scan(
			&r.Code, &r.Name, &tier, &r.BoundaryEWKB,
			&r.Under4Count, &r.Under4Pct, &r.Over65Count, &r.Over65Pct,
			&r.CareHomeLocations, &r.CareHomeBeds, &r.EarlyYearsSites, &r.EarlyYearsPlaces,
			&r.LoadedAt,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan authority row")
		}
		r.Tier = authority.Tier(tier)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate authority rows")
}

func (s *PostgresStore) ReplaceFeatures(ctx context.Context, vecs []authority.FeatureVector, stats []feature.ColumnStats) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace features")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM features`); err != nil {
		return eris.Wrap(err, "postgres: clear features")
	}
	if _, err := tx.Exec(ctx, `DELETE FROM feature_stats`); err != nil {
		return eris.Wrap(err, "postgres: clear feature stats")
	}

	featureRows := make([][]any, len(vecs))
	for i, v := range vecs {
		featureRows[i] = []any{
			v.Code, v.Name,
			v.Values[0], v.Values[1], v.Values[2],
			v.Values[3], v.Values[4], v.Values[5],
		}
	}
	cols := append([]string{"code", "name"}, authority.FeatureNames...)
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"features"}, cols, pgx.CopyFromRows(featureRows)); err != nil {
		return eris.Wrap(err, "postgres: copy features")
	}

	for _, st := range stats {
		if _, err := tx.Exec(ctx,
			`INSERT INTO feature_stats (name, mean, std_dev) VALUES ($1, $2, $3)`,
			st.Name, st.Mean, st.StdDev,
		); err != nil {
			return eris.Wrapf(err, "postgres: insert stats for %s", st.Name)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace features")
}

func (s *PostgresStore) ListFeatures(ctx context.Context) ([]authority.FeatureVector, error) {
	cols := strings.Join(authority.FeatureNames, ", ")
	rows, err := s.pool.Query(ctx, `SELECT code, name, `+cols+` FROM features ORDER BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list features")
	}
	defer rows.Close()

	var out []authority.FeatureVector
	for rows.Next() {
		var v authority.FeatureVector
		if err := rows.Scan(
			&v.Code, &v.Name,
			&v.Values[0], &v.Values[1], &v.Values[2],
			&v.Values[3], &v.Values[4], &v.Values[5],
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feature row")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate feature rows")
}

func (s *PostgresStore) FeatureStats(ctx context.Context) ([]feature.ColumnStats, error) {
	rows, err := s.pool.Query(ctx, `SELECT name, mean, std_dev FROM feature_stats`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list feature stats")
	}
	defer rows.Close()

	byName := make(map[string]feature.ColumnStats)
	for rows.Next() {
		var st feature.ColumnStats
		if err := rows.Scan(&st.Name, &st.Mean, &st.StdDev); err != nil {
			return nil, eris.Wrap(err, "postgres: scan feature stats row")
		}
		byName[st.Name] = st
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate feature stats rows")
	}

	var out []feature.ColumnStats
	for _, name := range authority.FeatureNames {
		if st, ok := byName[name]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, detail RunDetail) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin create run")
	}
	defer tx.Rollback(ctx)

	run := detail.Run
	if _, err := tx.Exec(ctx,
		`INSERT INTO cluster_runs (id, k, seed, n_init, inertia, iterations, n_rows, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		run.ID, run.K, run.Seed, run.NInit, run.Inertia, run.Iterations, run.Rows, run.CreatedAt,
	); err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	assignmentRows := make([][]any, len(detail.Assignments))
	for i, a := range detail.Assignments {
		assignmentRows[i] = []any{run.ID, a.Code, a.Name, a.Label, a.Distance}
	}
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"assignments"},
		[]string{"run_id", "code", "name", "label", "distance"},
		pgx.CopyFromRows(assignmentRows),
	); err != nil {
		return eris.Wrap(err, "postgres: copy assignments")
	}

	for _, c := range detail.Centroids {
		if _, err := tx.Exec(ctx,
			`INSERT INTO centroids (run_id, label, size, f0, f1, f2, f3, f4, f5)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			run.ID, c.Label, c.Size,
			c.Values[0], c.Values[1], c.Values[2], c.Values[3], c.Values[4], c.Values[5],
		); err != nil {
			return eris.Wrapf(err, "postgres: insert centroid %d", c.Label)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit create run")
}

func (s *PostgresStore) SetRunEvaluation(ctx context.Context, runID string, silhouette float64, anovaJSON []byte) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE cluster_runs SET silhouette = $1, anova = $2 WHERE id = $3`,
		silhouette, anovaJSON, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set evaluation for run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]authority.ClusterRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, k, seed, n_init, inertia, iterations, n_rows, created_at
		 FROM cluster_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var out []authority.ClusterRun
	for rows.Next() {
		var r authority.ClusterRun
		if err := rows.Scan(&r.ID, &r.K, &r.Seed, &r.NInit, &r.Inertia, &r.Iterations, &r.Rows, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate run rows")
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*RunDetail, error) {
	var detail RunDetail
	var silhouette *float64
	var anova []byte
	err := s.pool.QueryRow(ctx,
		`SELECT id, k, seed, n_init, inertia, iterations, n_rows, silhouette, anova, created_at
		 FROM cluster_runs WHERE id = $1`, runID,
	).Scan(
		&detail.Run.ID, &detail.Run.K, &detail.Run.Seed, &detail.Run.NInit,
		&detail.Run.Inertia, &detail.Run.Iterations, &detail.Run.Rows,
		&silhouette, &anova, &detail.Run.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("postgres: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	detail.Silhouette = silhouette
	detail.ANOVA = anova

	aRows, err := s.pool.Query(ctx,
		`SELECT code, name, label, distance FROM assignments WHERE run_id = $1 ORDER BY code`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assignments")
	}
	defer aRows.Close()
	for aRows.Next() {
		var a authority.Assignment
		if err := aRows.Scan(&a.Code, &a.Name, &a.Label, &a.Distance); err != nil {
			return nil, eris.Wrap(err, "postgres: scan assignment row")
		}
		detail.Assignments = append(detail.Assignments, a)
	}
	if err := aRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate assignment rows")
	}

	cRows, err := s.pool.Query(ctx,
		`SELECT label, size, f0, f1, f2, f3, f4, f5 FROM centroids WHERE run_id = $1 ORDER BY label`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list centroids")
	}
	defer cRows.Close()
	for cRows.Next() {
		c := authority.Centroid{RunID: runID}
		if err := cRows.Scan(
			&c.Label, &c.Size,
			&c.Values[0], &c.Values[1], &c.Values[2],
			&c.Values[3], &c.Values[4], &c.Values[5],
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan centroid row")
		}
		detail.Centroids = append(detail.Centroids, c)
	}
	if err := cRows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate centroid rows")
	}

	return &detail, nil
}
