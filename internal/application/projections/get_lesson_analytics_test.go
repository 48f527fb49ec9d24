package projections

import (
	"context"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"

	"surfshop/internal/domain/lesson"
)

func cancelled(id, date string, c lesson.Cancellation, notice int) lesson.Lesson {
	l := lessonAt(id, date, lesson.StatusCancelled, 0, 6, "75.00")
	l.Cancellation = c
	l.AdvanceNoticeHours = notice
	return l
}

// TestQueryGetCancellationAnalytics tests sums, breakdowns and the notice average.
func TestQueryGetCancellationAnalytics(t *testing.T) {
	weather := cancelled("w", "2026-07-11", lesson.Cancellation{
		Reason: lesson.ReasonWeather, RefundType: lesson.RefundFull, WeatherRelated: true,
		RefundAmount: decimal.NewFromInt(225), ProcessingFee: decimal.Zero, TotalRevenue: decimal.NewFromInt(225),
		ParticipantCount: 3, CompensationOffered: true, CompensationValue: decimal.NewFromInt(20),
	}, 10)
	weather.NotificationSent = true
	request := cancelled("r", "2026-07-12", lesson.Cancellation{
		Reason: lesson.ReasonCustomerRequest, RefundType: lesson.RefundPartial,
		RefundAmount: decimal.NewFromInt(135), ProcessingFee: decimal.NewFromInt(15), TotalRevenue: decimal.NewFromInt(300),
		ParticipantCount: 4,
	}, 51)
	request.FollowUpRequired = true
	outOfRange := cancelled("o", "2026-08-01", lesson.Cancellation{Reason: lesson.ReasonOther, RefundType: lesson.RefundNone}, 5)
	store := &stubLessons{lessons: []lesson.Lesson{
		weather, request, outOfRange,
		lessonAt("s", "2026-07-11", lesson.StatusScheduled, 2, 6, "75.00"),
	}}

	a, err := QueryGetCancellationAnalytics(context.Background(), DateRange{From: "2026-07-01", To: "2026-07-31"}, GetLessonAnalyticsDeps{LessonStore: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.TotalCancellations != 2 || a.WeatherRelated != 1 || a.FollowUpsRequired != 1 || a.NotificationsPending != 1 {
		t.Errorf("unexpected counts: %+v", a)
	}
	if !a.TotalRefunds.Equal(decimal.NewFromInt(360)) || !a.TotalProcessingFees.Equal(decimal.NewFromInt(15)) || !a.RevenueAtRisk.Equal(decimal.NewFromInt(525)) {
		t.Errorf("unexpected sums: refunds=%s fees=%s risk=%s", a.TotalRefunds, a.TotalProcessingFees, a.RevenueAtRisk)
	}
	if a.CompensationOffered != 1 || !a.TotalCompensationValue.Equal(decimal.NewFromInt(20)) || a.AffectedParticipants != 7 {
		t.Errorf("unexpected compensation: %+v", a)
	}
	if a.ByReason[lesson.ReasonWeather] != 1 || a.ByRefundType[lesson.RefundPartial] != 1 {
		t.Errorf("unexpected breakdowns: %v %v", a.ByReason, a.ByRefundType)
	}
	if a.AverageAdvanceNoticeHours != 30.5 || a.ShortNotice != 1 {
		t.Errorf("expected average 30.5 and 1 short notice, got %v / %d", a.AverageAdvanceNoticeHours, a.ShortNotice)
	}
}

// TestQueryGetCancellationAnalytics_Empty tests averages of an empty set are 0.
func TestQueryGetCancellationAnalytics_Empty(t *testing.T) {
	a, err := QueryGetCancellationAnalytics(context.Background(), DateRange{}, GetLessonAnalyticsDeps{LessonStore: &stubLessons{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.TotalCancellations != 0 || a.AverageAdvanceNoticeHours != 0 || a.ByReason == nil {
		t.Errorf("expected zero analytics with empty maps, got %+v", a)
	}
}

// TestQueryGetRescheduleAnalytics tests short notice and follow-ups, skipping cancelled lessons.
func TestQueryGetRescheduleAnalytics(t *testing.T) {
	moved := func(id string, notice int, followUp bool, status lesson.Status) lesson.Lesson {
		l := lessonAt(id, "2026-07-15", status, 1, 4, "75.00")
		l.Rescheduled, l.AdvanceNoticeHours, l.FollowUpRequired = true, notice, followUp
		return l
	}
	store := &stubLessons{lessons: []lesson.Lesson{
		moved("a", 12, true, lesson.StatusScheduled),
		moved("b", 72, false, lesson.StatusCompleted),
		moved("c", 2, true, lesson.StatusCancelled),
		lessonAt("d", "2026-07-15", lesson.StatusScheduled, 1, 4, "75.00"),
	}}
	r, err := QueryGetRescheduleAnalytics(context.Background(), DateRange{}, GetLessonAnalyticsDeps{LessonStore: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.TotalReschedules != 2 || r.ShortNotice != 1 || r.FollowUpsPending != 1 || r.AverageAdvanceNoticeHours != 42 {
		t.Errorf("unexpected analytics: %+v", r)
	}

	empty, _ := QueryGetRescheduleAnalytics(context.Background(), DateRange{}, GetLessonAnalyticsDeps{LessonStore: &stubLessons{}})
	if empty.AverageAdvanceNoticeHours != 0 {
		t.Errorf("expected 0 average for empty set, got %v", empty.AverageAdvanceNoticeHours)
	}
}

// TestLessonAggregates_RepeatReads tests stats and cancellation analytics are identical across reads
// with no intervening writes.
func TestLessonAggregates_RepeatReads(t *testing.T) {
	instructorOut := cancelled("i", "2026-07-15", lesson.Cancellation{
		Reason: lesson.ReasonInstructorUnavailable, RefundType: lesson.RefundFull, InstructorFault: true,
		RefundAmount: decimal.RequireFromString("150.00"), ProcessingFee: decimal.Zero, TotalRevenue: decimal.RequireFromString("150.00"),
		ParticipantCount: 2,
	}, -2)
	request := cancelled("r", "2026-07-16", lesson.Cancellation{
		Reason: lesson.ReasonCustomerRequest, RefundType: lesson.RefundPartial,
		RefundAmount: decimal.RequireFromString("33.75"), ProcessingFee: decimal.RequireFromString("3.75"), TotalRevenue: decimal.RequireFromString("75.00"),
		ParticipantCount: 1,
	}, 30)
	lowEnrollment := cancelled("e", "2026-07-17", lesson.Cancellation{
		Reason: lesson.ReasonLowEnrollment, RefundType: lesson.RefundNone, TotalRevenue: decimal.Zero,
	}, 72)
	store := &stubLessons{lessons: []lesson.Lesson{
		instructorOut, request, lowEnrollment,
		lessonAt("s", "2026-07-15", lesson.StatusScheduled, 4, 6, "62.50"),
		lessonAt("c", "2026-07-16", lesson.StatusCompleted, 3, 3, "80.00"),
	}}
	rng := DateRange{From: "2026-07-01", To: "2026-07-31"}

	firstStats, err := QueryGetLessonStats(context.Background(), rng, GetLessonStatsDeps{LessonStore: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	secondStats, err := QueryGetLessonStats(context.Background(), rng, GetLessonStatsDeps{LessonStore: store})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(firstStats, secondStats) {
		t.Errorf("stats differ between reads:\n%+v\n%+v", firstStats, secondStats)
	}

	deps := GetLessonAnalyticsDeps{LessonStore: store}
	first, err := QueryGetCancellationAnalytics(context.Background(), rng, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := QueryGetCancellationAnalytics(context.Background(), rng, deps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("analytics differ between reads:\n%+v\n%+v", first, second)
	}
	if first.TotalCancellations != 3 || len(first.ByReason) != 3 || len(first.ByRefundType) != 3 {
		t.Errorf("expected three cancellations across three reasons and refund types, got %+v", first)
	}
	if !first.TotalRefunds.Equal(decimal.RequireFromString("183.75")) {
		t.Errorf("expected refunds 183.75, got %s", first.TotalRefunds)
	}
}
