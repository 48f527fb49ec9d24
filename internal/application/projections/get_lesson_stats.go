package projections

import (
	"context"
	"math"

	"github.com/shopspring/decimal"

	lessonStore "surfshop/internal/adapters/storage/lesson"
	"surfshop/internal/domain/lesson"
)

// DateRange bounds lesson dates, YYYY-MM-DD inclusive. Empty ends are open.
type DateRange struct {
	From string
	To   string
}

// LessonStats summarizes the lesson book.
type LessonStats struct {
	Total             int             `json:"total"`
	Scheduled         int             `json:"scheduled"`
	InProgress        int             `json:"in_progress"`
	Completed         int             `json:"completed"`
	Cancelled         int             `json:"cancelled"`
	TotalParticipants int             `json:"total_participants"`
	ProjectedRevenue  decimal.Decimal `json:"projected_revenue"`
	AverageFillRate   float64         `json:"average_fill_rate"` // percent over non-cancelled lessons
}

// GetLessonStatsDeps holds dependencies for GetLessonStats.
type GetLessonStatsDeps struct {
	LessonStore LessonStore
}

// QueryGetLessonStats folds the lessons in the range into counts and revenue.
// PRE: range bounds are YYYY-MM-DD or empty
// POST: Counts by status; revenue and fill rate exclude cancelled lessons
// INVARIANT: An empty set yields zeros, never NaN
func QueryGetLessonStats(ctx context.Context, query DateRange, deps GetLessonStatsDeps) (LessonStats, error) {
	lessons, err := deps.LessonStore.List(ctx, lessonStore.ListFilter{DateFrom: query.From, DateTo: query.To})
	if err != nil {
		return LessonStats{}, err
	}
	return foldLessonStats(lessons), nil
}

func foldLessonStats(lessons []lesson.Lesson) LessonStats {
	stats := LessonStats{ProjectedRevenue: decimal.Zero}
	var fillSum float64
	active := 0
	for _, l := range lessons {
		stats.Total++
		switch l.Status {
		case lesson.StatusScheduled:
			stats.Scheduled++
		case lesson.StatusInProgress:
			stats.InProgress++
		case lesson.StatusCompleted:
			stats.Completed++
		case lesson.StatusCancelled:
			stats.Cancelled++
			continue
		}
		stats.TotalParticipants += l.CurrentParticipants
		stats.ProjectedRevenue = stats.ProjectedRevenue.Add(l.Price.Mul(decimal.NewFromInt(int64(l.CurrentParticipants))))
		if l.MaxParticipants > 0 {
			fillSum += float64(l.CurrentParticipants) / float64(l.MaxParticipants)
			active++
		}
	}
	stats.ProjectedRevenue = stats.ProjectedRevenue.Round(2)
	stats.AverageFillRate = round1(mean(fillSum*100, active))
	return stats
}

// mean returns sum/n, or 0 for an empty set.
func mean(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}
