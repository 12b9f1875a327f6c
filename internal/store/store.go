// Package store persists the merged authority table, the standardized
// feature table, and cluster runs. Two backends exist: SQLite for local
// analysis (the default) and PostgreSQL for shared deployments.
package store

import (
	"context"

	"github.com/careatlas/provision-cli/internal/authority"
	"github.com/careatlas/provision-cli/internal/feature"
)

// RunDetail bundles everything recorded about one cluster run.
type RunDetail struct {
	Run         authority.ClusterRun   `json:"run"`
	Assignments []authority.Assignment `json:"assignments"`
	Centroids   []authority.Centroid   `json:"centroids"`
	Silhouette  *float64               `json:"silhouette,omitempty"`
	ANOVA       []byte                 `json:"anova,omitempty"` // JSON-encoded evaluate.ANOVAResult slice
}

// Store is the persistence interface for the analysis pipeline.
type Store interface {
	// Authorities
	UpsertAuthorities(ctx context.Context, records []authority.Record) error
	ListAuthorities(ctx context.Context) ([]authority.Record, error)

	// Feature table. Replace semantics: standardization is only valid
	// over the exact population it was computed on, so features are
	// rewritten wholesale, never patched row by row.
	ReplaceFeatures(ctx context.Context, vecs []authority.FeatureVector, stats []feature.ColumnStats) error
	ListFeatures(ctx context.Context) ([]authority.FeatureVector, error)
	FeatureStats(ctx context.Context) ([]feature.ColumnStats, error)

	// Cluster runs
	CreateRun(ctx context.Context, detail RunDetail) error
	SetRunEvaluation(ctx context.Context, runID string, silhouette float64, anovaJSON []byte) error
	ListRuns(ctx context.Context, limit int) ([]authority.ClusterRun, error)
	GetRun(ctx context.Context, runID string) (*RunDetail, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
