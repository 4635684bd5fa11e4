package segment

import "github.com/andresuchdata/autopo-insights/backend-go/internal/domain"

// RFM feature positions expected by LabelRFM.
const (
	FeatureRecency = iota
	FeatureFrequency
	FeatureMonetary
)

const (
	LabelChampions = "champions"
	LabelLoyal     = "loyal"
	LabelAtRisk    = "at_risk"
	LabelLost      = "lost"
	LabelRegular   = "regular"
)

// LabelThresholds are tuning knobs; recalibrate per dataset.
type LabelThresholds struct {
	RecentDays     float64
	LapsedDays     float64
	HighMonetary   float64
	FrequentOrders float64
}

func DefaultLabelThresholds() LabelThresholds {
	return LabelThresholds{
		RecentDays:     30,
		LapsedDays:     90,
		HighMonetary:   1000,
		FrequentOrders: 5,
	}
}

// LabelRFM names each non-empty cluster from its raw [recency, frequency,
// monetary] averages. Clusters without members or with fewer than three
// features are left unlabeled. The input slice is not modified.
func LabelRFM(clusters []domain.Cluster, th LabelThresholds) []domain.Cluster {
	out := make([]domain.Cluster, len(clusters))
	for i, c := range clusters {
		out[i] = c
		if len(c.MemberIDs) == 0 || len(c.Centroid) <= FeatureMonetary {
			continue
		}
		out[i].Label = rfmLabel(c.Centroid, th)
	}
	return out
}

func rfmLabel(centroid []float64, th LabelThresholds) string {
	recency := centroid[FeatureRecency]
	frequency := centroid[FeatureFrequency]
	monetary := centroid[FeatureMonetary]

	switch {
	case recency < th.RecentDays && monetary > th.HighMonetary:
		return LabelChampions
	case recency < th.RecentDays && frequency >= th.FrequentOrders:
		return LabelLoyal
	case recency > th.LapsedDays && monetary > th.HighMonetary:
		return LabelAtRisk
	case recency > th.LapsedDays:
		return LabelLost
	default:
		return LabelRegular
	}
}
