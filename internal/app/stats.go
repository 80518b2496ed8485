package app

import (
	"context"
	"fmt"
	"math"

	"github.com/cesargomez89/mediasync/internal/domain"
	"github.com/cesargomez89/mediasync/internal/logger"
)

// OverallKey is the time_spent_hours key summing every media type.
const OverallKey = "OVERALL"

type ScoreStats struct {
	TotalCompleted       int     `json:"total_completed"`
	WeightedAverageScore float64 `json:"weighted_average_score"`
}

// Stats is the aggregate view of a user's list. ByType only holds media
// types with at least one scored completion.
type Stats struct {
	ByType         map[domain.MediaType]ScoreStats `json:"by_type"`
	TimeSpentHours map[string]float64              `json:"time_spent_hours"`
	Overall        ScoreStats                      `json:"overall"`
}

// minutesFor converts progress to minutes spent. TV progress above 100 is
// assumed to be minutes already and weighs less per unit.
func minutesFor(mt domain.MediaType, progress int) float64 {
	p := float64(progress)
	switch mt {
	case domain.MediaTypeAnime:
		return p * 25
	case domain.MediaTypeMovie:
		return p * 120
	case domain.MediaTypeTVShow:
		if progress > 100 {
			return p * 20
		}
		return p * 45
	case domain.MediaTypeGame:
		return p
	case domain.MediaTypeBook:
		return p * 360
	case domain.MediaTypeManga:
		return p * 10
	}
	return 0
}

func round(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}

// ComputeStats aggregates time spent and weighted average scores.
//
// Every entry with progress contributes its minutes to time spent. Every
// scored completion is then weighted by the same minutes (1 when zero) for
// the averages, and that weight is added to time spent a second time.
func ComputeStats(entries []domain.ActivityEntry) Stats {
	minutes := make(map[domain.MediaType]float64, len(domain.MediaTypes))
	for _, e := range entries {
		if e.Progress <= 0 {
			continue
		}
		minutes[e.MediaType] += minutesFor(e.MediaType, e.Progress)
	}

	var (
		weightedSum, weightTotal float64
		typeSum                  = make(map[domain.MediaType]float64)
		typeWeight               = make(map[domain.MediaType]float64)
		stats                    = Stats{ByType: make(map[domain.MediaType]ScoreStats)}
	)
	for _, e := range entries {
		if e.Status != domain.StatusCompleted || e.Score == nil {
			continue
		}
		weight := minutesFor(e.MediaType, e.Progress)
		if weight == 0 {
			weight = 1
		}
		minutes[e.MediaType] += weight
		weightedSum += *e.Score * weight
		weightTotal += weight
		typeSum[e.MediaType] += *e.Score * weight
		typeWeight[e.MediaType] += weight

		ts := stats.ByType[e.MediaType]
		ts.TotalCompleted++
		stats.ByType[e.MediaType] = ts
		stats.Overall.TotalCompleted++
	}

	if weightTotal > 0 {
		stats.Overall.WeightedAverageScore = round(weightedSum/weightTotal, 2)
	}
	for mt, ts := range stats.ByType {
		if w := typeWeight[mt]; w > 0 {
			ts.WeightedAverageScore = round(typeSum[mt]/w, 2)
			stats.ByType[mt] = ts
		}
	}

	stats.TimeSpentHours = make(map[string]float64, len(domain.MediaTypes)+1)
	var total float64
	for _, mt := range domain.MediaTypes {
		total += minutes[mt]
		stats.TimeSpentHours[string(mt)] = round(minutes[mt]/60, 1)
	}
	stats.TimeSpentHours[OverallKey] = round(total/60, 1)
	return stats
}

type StatsService struct {
	Repo   Store
	Logger *logger.Logger
}

func NewStatsService(repo Store, log *logger.Logger) *StatsService {
	return &StatsService{Repo: repo, Logger: log.WithComponent("stats")}
}

func (s *StatsService) GetStats(ctx context.Context, userID string) (*Stats, error) {
	entries, err := s.Repo.ListActivityEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity entries: %w", err)
	}
	stats := ComputeStats(entries)
	s.Logger.Debug("Computed stats", "user_id", userID, "entries", len(entries))
	return &stats, nil
}
