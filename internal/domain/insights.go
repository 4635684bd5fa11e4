package domain

import "time"

// PeriodPoint is one aggregated value for a single period (e.g. monthly revenue).
type PeriodPoint struct {
	Period time.Time `json:"period" db:"period"`
	Value  float64   `json:"value" db:"value"`
}

// ForecastPoint is one estimated future period with its confidence band.
type ForecastPoint struct {
	Period    time.Time `json:"period"`
	Predicted float64   `json:"predicted"`
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
}

// EntityFeatureVector holds the numeric features describing one clusterable entity.
type EntityFeatureVector struct {
	ID       string    `json:"id"`
	Features []float64 `json:"features"`
}

// Cluster is a group of entities sharing the nearest centroid.
type Cluster struct {
	ClusterID int       `json:"cluster_id"`
	MemberIDs []string  `json:"member_ids"`
	Centroid  []float64 `json:"centroid"`
	Label     string    `json:"label,omitempty"`
}

// Anomaly is a period whose value deviates from the series mean beyond the z-score threshold.
type Anomaly struct {
	Period   time.Time   `json:"period"`
	Observed float64     `json:"observed"`
	Expected float64     `json:"expected"`
	ZScore   float64     `json:"z_score"`
	Severity Severity    `json:"severity"`
	Kind     AnomalyKind `json:"kind"`
}

// RatingMatrix maps entityID -> itemID -> interaction weight. A missing key means no interaction.
type RatingMatrix map[string]map[string]float64

// Interaction is a single entity/item transaction line used to build a RatingMatrix.
type Interaction struct {
	EntityID string  `json:"entity_id" db:"entity_id"`
	ItemID   string  `json:"item_id" db:"item_id"`
	Quantity float64 `json:"quantity" db:"quantity"`
}

// Recommendation is a ranked item the target entity has not interacted with yet.
type Recommendation struct {
	ItemID string  `json:"item_id"`
	Score  float64 `json:"score"`
}

// InventoryItem is the replenishment input for one stocked item.
type InventoryItem struct {
	ID                string  `json:"id" db:"id"`
	Name              string  `json:"name,omitempty" db:"name"`
	QuantityOnHand    float64 `json:"quantity_on_hand" db:"quantity_on_hand"`
	MinQuantity       float64 `json:"min_quantity" db:"min_quantity"`
	AverageDailySales float64 `json:"average_daily_sales" db:"average_daily_sales"`
	LeadTimeDays      float64 `json:"lead_time_days" db:"lead_time_days"`
	Value             float64 `json:"value" db:"value"`
}

// ReorderSuggestion is emitted for every item at or below its reorder point.
type ReorderSuggestion struct {
	ItemID           string  `json:"item_id"`
	QuantityOnHand   float64 `json:"quantity_on_hand"`
	SafetyStock      float64 `json:"safety_stock"`
	ReorderPoint     float64 `json:"reorder_point"`
	ReorderQuantity  float64 `json:"reorder_quantity"`
	DaysUntilReorder int     `json:"days_until_reorder"`
	DaysOfCover      float64 `json:"days_of_cover"`
	Urgency          Urgency `json:"urgency"`
}

// ABCEntry is the value classification of a single inventory item.
type ABCEntry struct {
	ItemID                    string   `json:"item_id"`
	Value                     float64  `json:"value"`
	Classification            ABCClass `json:"classification"`
	CumulativeValuePercentage float64  `json:"cumulative_value_percentage"`
}

// Snapshot is the read-only view of business records handed to the engine.
type Snapshot struct {
	Label        string                `json:"label"`
	TakenAt      time.Time             `json:"taken_at"`
	Revenue      []PeriodPoint         `json:"revenue"`
	Customers    []EntityFeatureVector `json:"customers"`
	Interactions RatingMatrix          `json:"interactions"`
	Inventory    []InventoryItem       `json:"inventory"`
}

// ForecastReport wraps forecast output with the fitted model parameters.
type ForecastReport struct {
	Points    []ForecastPoint `json:"points"`
	Smoothed  []float64       `json:"smoothed"`
	Slope     float64         `json:"slope"`
	Intercept float64         `json:"intercept"`
	Mean      float64         `json:"mean"`
	StdDev    float64         `json:"std_dev"`
}

// SegmentReport wraps clustering output.
type SegmentReport struct {
	Clusters   []Cluster `json:"clusters"`
	Iterations int       `json:"iterations"`
	Converged  bool      `json:"converged"`
}

// Report bundles every analysis computed over one snapshot.
type Report struct {
	ID              string                      `json:"id"`
	SnapshotLabel   string                      `json:"snapshot_label"`
	GeneratedAt     time.Time                   `json:"generated_at"`
	Forecast        *ForecastReport             `json:"forecast,omitempty"`
	Anomalies       []Anomaly                   `json:"anomalies"`
	Segments        *SegmentReport              `json:"segments,omitempty"`
	Recommendations map[string][]Recommendation `json:"recommendations,omitempty"`
	Replenishment   []ReorderSuggestion         `json:"replenishment"`
	ABC             []ABCEntry                  `json:"abc"`
	Skipped         []string                    `json:"skipped,omitempty"`
}
