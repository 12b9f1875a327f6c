package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/careatlas/provision-cli/internal/authority"
	"github.com/careatlas/provision-cli/internal/feature"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS authorities (
	code                TEXT PRIMARY KEY,
	name                TEXT NOT NULL,
	tier                TEXT,
	boundary            BLOB,
	under4_count        INTEGER NOT NULL,
	under4_pct          REAL NOT NULL,
	over65_count        INTEGER NOT NULL,
	over65_pct          REAL NOT NULL,
	carehome_locations  INTEGER NOT NULL,
	carehome_beds       INTEGER NOT NULL,
	earlyyears_sites    INTEGER NOT NULL,
	earlyyears_places   INTEGER NOT NULL,
	loaded_at           DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS features (
	code                    TEXT PRIMARY KEY REFERENCES authorities(code),
	name                    TEXT NOT NULL,
	under4_pct              REAL NOT NULL,
	over65_pct              REAL NOT NULL,
	under4_per_eys_site     REAL NOT NULL,
	under4_per_eys_place    REAL NOT NULL,
	over65_per_carehome     REAL NOT NULL,
	over65_per_carehome_bed REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS feature_stats (
	name    TEXT PRIMARY KEY,
	mean    REAL NOT NULL,
	std_dev REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS cluster_runs (
	id         TEXT PRIMARY KEY,
	k          INTEGER NOT NULL,
	seed       INTEGER NOT NULL,
	n_init     INTEGER NOT NULL,
	inertia    REAL NOT NULL,
	iterations INTEGER NOT NULL,
	n_rows     INTEGER NOT NULL,
	silhouette REAL,
	anova      TEXT,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS assignments (
	run_id   TEXT NOT NULL REFERENCES cluster_runs(id),
	code     TEXT NOT NULL,
	name     TEXT NOT NULL,
	label    INTEGER NOT NULL,
	distance REAL NOT NULL,
	PRIMARY KEY (run_id, code)
);

CREATE TABLE IF NOT EXISTS centroids (
	run_id TEXT NOT NULL REFERENCES cluster_runs(id),
	label  INTEGER NOT NULL,
	size   INTEGER NOT NULL,
	f0     REAL NOT NULL,
	f1     REAL NOT NULL,
	f2     REAL NOT NULL,
	f3     REAL NOT NULL,
	f4     REAL NOT NULL,
	f5     REAL NOT NULL,
	PRIMARY KEY (run_id, label)
);

CREATE INDEX IF NOT EXISTS idx_assignments_run ON assignments(run_id);
CREATE INDEX IF NOT EXISTS idx_cluster_runs_created ON cluster_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertAuthorities(ctx context.Context, records []authority.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin upsert authorities")
	}
	defer tx.Rollback()

	const q = `
		INSERT INTO authorities (
			code, name, tier, boundary,
			under4_count, under4_pct, over65_count, over65_pct,
			carehome_locations, carehome_beds, earlyyears_sites, earlyyears_places,
			loaded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			tier = excluded.tier,
			boundary = excluded.boundary,
			under4_count = excluded.under4_count,
			under4_pct = excluded.under4_pct,
			over65_count = excluded.over65_count,
			over65_pct = excluded.over65_pct,
			carehome_locations = excluded.carehome_locations,
			carehome_beds = excluded.carehome_beds,
			earlyyears_sites = excluded.earlyyears_sites,
			earlyyears_places = excluded.earlyyears_places,
			loaded_at = excluded.loaded_at
	`
	for _, r := range records {
		loadedAt := r.LoadedAt
		if loadedAt.IsZero() {
			loadedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, q,
			r.Code, r.Name, string(r.Tier), r.BoundaryEWKB,
			r.Under4Count, r.Under4Pct, r.Over65Count, r.Over65Pct,
			r.CareHomeLocations, r.CareHomeBeds, r.EarlyYearsSites, r.EarlyYearsPlaces,
			loadedAt,
		); err != nil {
			return eris.Wrapf(err, "sqlite: upsert authority %s", r.Code)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit upsert authorities")
}

func (s *SQLiteStore) ListAuthorities(ctx context.Context) ([]authority.Record, error) {
	const q = `
		SELECT code, name, tier, boundary,
		       under4_count, under4_pct, over65_count, over65_pct,
		       carehome_locations, carehome_beds, earlyyears_sites, earlyyears_places,
		       loaded_at
		FROM authorities ORDER BY code
	`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list authorities")
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
			return nil, eris.Wrap(err, "sqlite: scan authority row")
		}
		r.Tier = authority.Tier(tier)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate authority rows")
}

func (s *SQLiteStore) ReplaceFeatures(ctx context.Context, vecs []authority.FeatureVector, stats []feature.ColumnStats) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace features")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM features`); err != nil {
		return eris.Wrap(err, "sqlite: clear features")
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM feature_stats`); err != nil {
		return eris.Wrap(err, "sqlite: clear feature stats")
	}

	cols := strings.Join(authority.FeatureNames, ", ")
	q := `INSERT INTO features (code, name, ` + cols + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	for _, v := range vecs {
		args := []any{v.Code, v.Name}
		for _, x := range v.Values {
			args = append(args, x)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return eris.Wrapf(err, "sqlite: insert features for %s", v.Code)
		}
	}

	for _, st := range stats {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO feature_stats (name, mean, std_dev) VALUES (?, ?, ?)`,
			st.Name, st.Mean, st.StdDev,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert stats for %s", st.Name)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace features")
}

func (s *SQLiteStore) ListFeatures(ctx context.Context) ([]authority.FeatureVector, error) {
	cols := strings.Join(authority.FeatureNames, ", ")
	rows, err := s.db.QueryContext(ctx, `SELECT code, name, `+cols+` FROM features ORDER BY code`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list features")
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
			return nil, eris.Wrap(err, "sqlite: scan feature row")
		}
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate feature rows")
}

func (s *SQLiteStore) FeatureStats(ctx context.Context) ([]feature.ColumnStats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, mean, std_dev FROM feature_stats`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list feature stats")
	}
	defer rows.Close()

	byName := make(map[string]feature.ColumnStats)
	for rows.Next() {
		var st feature.ColumnStats
		if err := rows.Scan(&st.Name, &st.Mean, &st.StdDev); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feature stats row")
		}
		byName[st.Name] = st
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate feature stats rows")
	}

	// Preserve FeatureNames order.
	var out []feature.ColumnStats
	for _, name := range authority.FeatureNames {
		if st, ok := byName[name]; ok {
			out = append(out, st)
		}
	}
	return out, nil
}

func (s *SQLiteStore) CreateRun(ctx context.Context, detail RunDetail) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin create run")
	}
	defer tx.Rollback()

	run := detail.Run
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cluster_runs (id, k, seed, n_init, inertia, iterations, n_rows, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.K, run.Seed, run.NInit, run.Inertia, run.Iterations, run.Rows, run.CreatedAt,
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	for _, a := range detail.Assignments {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO assignments (run_id, code, name, label, distance) VALUES (?, ?, ?, ?, ?)`,
			run.ID, a.Code, a.Name, a.Label, a.Distance,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert assignment %s", a.Code)
		}
	}

	for _, c := range detail.Centroids {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO centroids (run_id, label, size, f0, f1, f2, f3, f4, f5)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, c.Label, c.Size,
			c.Values[0], c.Values[1], c.Values[2], c.Values[3], c.Values[4], c.Values[5],
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert centroid %d", c.Label)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit create run")
}

func (s *SQLiteStore) SetRunEvaluation(ctx context.Context, runID string, silhouette float64, anovaJSON []byte) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cluster_runs SET silhouette = ?, anova = ? WHERE id = ?`,
		silhouette, string(anovaJSON), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set evaluation for run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: evaluation rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]authority.ClusterRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, k, seed, n_init, inertia, iterations, n_rows, created_at
		 FROM cluster_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var out []authority.ClusterRun
	for rows.Next() {
		var r authority.ClusterRun
		if err := rows.Scan(&r.ID, &r.K, &r.Seed, &r.NInit, &r.Inertia, &r.Iterations, &r.Rows, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run row")
		}
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate run rows")
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*RunDetail, error) {
	var detail RunDetail
	var silhouette sql.NullFloat64
	var anova sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, k, seed, n_init, inertia, iterations, n_rows, silhouette, anova, created_at
		 FROM cluster_runs WHERE id = ?`, runID,
	).Scan(
		&detail.Run.ID, &detail.Run.K, &detail.Run.Seed, &detail.Run.NInit,
		&detail.Run.Inertia, &detail.Run.Iterations, &detail.Run.Rows,
		&silhouette, &anova, &detail.Run.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("sqlite: run %s not found", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	if silhouette.Valid {
		detail.Silhouette = &silhouette.Float64
	}
	if anova.Valid {
		detail.ANOVA = []byte(anova.String)
	}

	aRows, err := s.db.QueryContext(ctx,
		`SELECT code, name, label, distance FROM assignments WHERE run_id = ? ORDER BY code`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assignments")
	}
	defer aRows.Close()
	for aRows.Next() {
		var a authority.Assignment
		if err := aRows.Scan(&a.Code, &a.Name, &a.Label, &a.Distance); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assignment row")
		}
		detail.Assignments = append(detail.Assignments, a)
	}
	if err := aRows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate assignment rows")
	}

	cRows, err := s.db.QueryContext(ctx,
		`SELECT label, size, f0, f1, f2, f3, f4, f5 FROM centroids WHERE run_id = ? ORDER BY label`, runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list centroids")
	}
	defer cRows.Close()
	for cRows.Next() {
		c := authority.Centroid{RunID: runID}
		if err := cRows.Scan(
			&c.Label, &c.Size,
			&c.Values[0], &c.Values[1], &c.Values[2],
			&c.Values[3], &c.Values[4], &c.Values[5],
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan centroid row")
		}
		detail.Centroids = append(detail.Centroids, c)
	}
	if err := cRows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate centroid rows")
	}

	return &detail, nil
}
