package history

import (
	"fmt"
	"math"
	"time"
)

// BuildTrendReport summarizes runs ordered oldest first, with per-run deltas
// and a moving average of affected-member counts over the window.
func BuildTrendReport(runs []Run, window time.Duration) (TrendReport, error) {
	if len(runs) == 0 {
		return TrendReport{}, fmt.Errorf("no runs available")
	}

	points := make([]TrendPoint, 0, len(runs))
	for i, current := range runs {
		point := TrendPoint{
			Timestamp:       current.Timestamp,
			ChangedCrates:   len(current.ChangedCrates),
			AffectedMembers: len(current.AffectedLibraryMembers),
			BinaryMembers:   len(current.AffectedBinaryMembers),
			ForceAll:        current.ForceAll,
		}

		if i > 0 {
			prev := runs[i-1]
			point.DeltaChanged = point.ChangedCrates - len(prev.ChangedCrates)
			point.DeltaAffected = point.AffectedMembers - len(prev.AffectedLibraryMembers)
			if len(prev.AffectedLibraryMembers) > 0 {
				point.AffectedGrowthPct = (float64(point.DeltaAffected) / float64(len(prev.AffectedLibraryMembers))) * 100
			}
		}

		point.AvgAffected = round2(movingAverage(runs, i, window))
		point.WindowHours = round2(window.Hours())
		points = append(points, point)
	}

	return TrendReport{
		SchemaVersion: SchemaVersion,
		Since:         runs[0].Timestamp,
		Until:         runs[len(runs)-1].Timestamp,
		Window:        window.String(),
		RunCount:      len(points),
		Points:        points,
	}, nil
}

func movingAverage(runs []Run, index int, window time.Duration) float64 {
	if window <= 0 {
		return float64(len(runs[index].AffectedLibraryMembers))
	}

	cutoff := runs[index].Timestamp.Add(-window)
	total := 0
	count := 0
	for i := index; i >= 0; i-- {
		if runs[i].Timestamp.Before(cutoff) {
			break
		}
		total += len(runs[i].AffectedLibraryMembers)
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
