package projections

import (
	"context"

	"github.com/shopspring/decimal"

	lessonStore "surfshop/internal/adapters/storage/lesson"
	"surfshop/internal/domain/lesson"
)

// ShortNoticeHours is the advance notice below which a change counts as short notice.
const ShortNoticeHours = 24

// CancellationAnalytics aggregates cancelled lessons.
type CancellationAnalytics struct {
	TotalCancellations        int                       `json:"total_cancellations"`
	WeatherRelated            int                       `json:"weather_related"`
	InstructorFault           int                       `json:"instructor_fault"`
	CustomerNoShow            int                       `json:"customer_no_show"`
	Rescheduled               int                       `json:"rescheduled"`
	FollowUpsRequired         int                       `json:"follow_ups_required"`
	NotificationsPending      int                       `json:"notifications_pending"`
	CompensationOffered       int                       `json:"compensation_offered"`
	TotalCompensationValue    decimal.Decimal           `json:"total_compensation_value"`
	TotalRefunds              decimal.Decimal           `json:"total_refunds"`
	TotalProcessingFees       decimal.Decimal           `json:"total_processing_fees"`
	RevenueAtRisk             decimal.Decimal           `json:"revenue_at_risk"`
	AffectedParticipants      int                       `json:"affected_participants"`
	ByReason                  map[string]int            `json:"by_reason"`
	ByRefundType              map[lesson.RefundType]int `json:"by_refund_type"`
	AverageAdvanceNoticeHours float64                   `json:"average_advance_notice_hours"`
	ShortNotice               int                       `json:"short_notice"`
}

// GetLessonAnalyticsDeps holds dependencies for the analytics queries.
type GetLessonAnalyticsDeps struct {
	LessonStore LessonStore
}

// QueryGetCancellationAnalytics folds cancelled lessons whose date is in range.
// PRE: range bounds are YYYY-MM-DD or empty
// POST: Sums use the figures stored at cancellation time
// INVARIANT: An empty set yields zeros and empty maps
func QueryGetCancellationAnalytics(ctx context.Context, query DateRange, deps GetLessonAnalyticsDeps) (CancellationAnalytics, error) {
	lessons, err := deps.LessonStore.List(ctx, lessonStore.ListFilter{
		Status: lesson.StatusCancelled, DateFrom: query.From, DateTo: query.To,
	})
	if err != nil {
		return CancellationAnalytics{}, err
	}

	a := CancellationAnalytics{
		TotalCompensationValue: decimal.Zero,
		TotalRefunds:           decimal.Zero,
		TotalProcessingFees:    decimal.Zero,
		RevenueAtRisk:          decimal.Zero,
		ByReason:               map[string]int{},
		ByRefundType:           map[lesson.RefundType]int{},
	}
	noticeSum := 0
	for _, l := range lessons {
		c := l.Cancellation
		a.TotalCancellations++
		if c.WeatherRelated {
			a.WeatherRelated++
		}
		if c.InstructorFault {
			a.InstructorFault++
		}
		if c.CustomerNoShow {
			a.CustomerNoShow++
		}
		if l.Rescheduled {
			a.Rescheduled++
		}
		if l.FollowUpRequired {
			a.FollowUpsRequired++
		}
		if !l.NotificationSent {
			a.NotificationsPending++
		}
		if c.CompensationOffered {
			a.CompensationOffered++
			a.TotalCompensationValue = a.TotalCompensationValue.Add(c.CompensationValue)
		}
		a.TotalRefunds = a.TotalRefunds.Add(c.RefundAmount)
		a.TotalProcessingFees = a.TotalProcessingFees.Add(c.ProcessingFee)
		a.RevenueAtRisk = a.RevenueAtRisk.Add(c.TotalRevenue)
		a.AffectedParticipants += c.ParticipantCount
		a.ByReason[c.Reason]++
		a.ByRefundType[c.RefundType]++
		noticeSum += l.AdvanceNoticeHours
		if l.AdvanceNoticeHours < ShortNoticeHours {
			a.ShortNotice++
		}
	}
	a.AverageAdvanceNoticeHours = round1(mean(float64(noticeSum), a.TotalCancellations))
	return a, nil
}

// RescheduleAnalytics aggregates rescheduled lessons that still run.
type RescheduleAnalytics struct {
	TotalReschedules          int     `json:"total_reschedules"`
	AverageAdvanceNoticeHours float64 `json:"average_advance_notice_hours"`
	ShortNotice               int     `json:"short_notice"`
	FollowUpsPending          int     `json:"follow_ups_pending"`
}

// QueryGetRescheduleAnalytics folds rescheduled lessons whose new date is in range.
// Cancelled lessons are counted by the cancellation analytics instead.
// POST: An empty set yields zeros
func QueryGetRescheduleAnalytics(ctx context.Context, query DateRange, deps GetLessonAnalyticsDeps) (RescheduleAnalytics, error) {
	lessons, err := deps.LessonStore.List(ctx, lessonStore.ListFilter{
		RescheduledOnly: true, DateFrom: query.From, DateTo: query.To,
	})
	if err != nil {
		return RescheduleAnalytics{}, err
	}

	var r RescheduleAnalytics
	noticeSum := 0
	for _, l := range lessons {
		if l.Status == lesson.StatusCancelled {
			continue
		}
		r.TotalReschedules++
		noticeSum += l.AdvanceNoticeHours
		if l.AdvanceNoticeHours < ShortNoticeHours {
			r.ShortNotice++
		}
		if l.FollowUpRequired {
			r.FollowUpsPending++
		}
	}
	r.AverageAdvanceNoticeHours = round1(mean(float64(noticeSum), r.TotalReschedules))
	return r, nil
}
