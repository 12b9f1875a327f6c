// Package authority defines the local-authority domain model shared across
// the ingestion, feature, clustering, and reporting layers.
package authority

import (
	"time"
)

// Tier identifies the kind of upper-tier English local authority.
type Tier string

const (
	TierUnitary      Tier = "unitary"
	TierMetropolitan Tier = "metropolitan"
	TierLondonBoro   Tier = "london_borough"
	TierCounty       Tier = "county"
)

// Record holds the merged per-authority table row: census demand counts
// plus aggregated care-home and early-years supply counts.
type Record struct {
	Code string `json:"code"` // ONS GSS code, e.g. E08000025
	Name string `json:"name"`
	Tier Tier   `json:"tier,omitempty"`

	// Boundary geometry as EWKB (SRID 4326). Owned by the boundary loader;
	// nil when the authority was joined by code only.
	BoundaryEWKB []byte `json:"-"`

	// Census demand side.
	Under4Count int64   `json:"under4_count"`
	Under4Pct   float64 `json:"under4_pct"`
	Over65Count int64   `json:"over65_count"`
	Over65Pct   float64 `json:"over65_pct"`

	// Supply side, aggregated from point datasets.
	CareHomeLocations int64 `json:"carehome_locations"`
	CareHomeBeds      int64 `json:"carehome_beds"`
	EarlyYearsSites   int64 `json:"earlyyears_sites"`
	EarlyYearsPlaces  int64 `json:"earlyyears_places"`

	LoadedAt time.Time `json:"loaded_at,omitempty"`
}

// FeatureNames is the fixed column order of the standardized feature
// matrix. Every consumer (clustering, evaluation, reporting, storage)
// indexes features by this order.
var FeatureNames = []string{
	"under4_pct",
	"over65_pct",
	"under4_per_eys_site",
	"under4_per_eys_place",
	"over65_per_carehome",
	"over65_per_carehome_bed",
}

// FeatureCount is the width of the feature matrix.
const FeatureCount = 6

// FeatureVector holds the six standardized features for one authority, in
// FeatureNames order.
type FeatureVector struct {
	Code   string                `json:"code"`
	Name   string                `json:"name"`
	Values [FeatureCount]float64 `json:"values"`
}

// Assignment is one authority's cluster membership within a run: the label
// and the Euclidean distance to the assigned centroid in standardized space.
type Assignment struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	Label    int     `json:"label"`
	Distance float64 `json:"distance"`
}

// ClusterRun records one K-means fit over the feature table.
type ClusterRun struct {
	ID         string    `json:"id"`
	K          int       `json:"k"`
	Seed       int64     `json:"seed"`
	NInit      int       `json:"n_init"`
	Inertia    float64   `json:"inertia"`
	Iterations int       `json:"iterations"`
	Rows       int       `json:"rows"`
	CreatedAt  time.Time `json:"created_at"`
}

// Centroid is one cluster center in standardized feature space.
type Centroid struct {
	RunID  string                `json:"run_id"`
	Label  int                   `json:"label"`
	Values [FeatureCount]float64 `json:"values"`
	Size   int                   `json:"size"`
}
