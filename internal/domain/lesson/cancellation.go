package lesson

import (
	"time"

	"github.com/shopspring/decimal"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/validation"
)

// RefundType selects how much of the collected revenue is returned.
type RefundType string

// Refund types.
const (
	RefundNone    RefundType = "none"
	RefundPartial RefundType = "partial"
	RefundFull    RefundType = "full"
)

// CompensationType is what the school offers on top of (or instead of) a refund.
type CompensationType string

// Compensation types.
const (
	CompensationNone       CompensationType = "none"
	CompensationCredit     CompensationType = "credit"
	CompensationDiscount   CompensationType = "discount"
	CompensationFreeLesson CompensationType = "free_lesson"
)

// Cancellation reasons offered by the cancel form. Only ReasonCustomerRequest
// carries a processing fee.
const (
	ReasonCustomerRequest       = "Customer request"
	ReasonWeather               = "Weather conditions"
	ReasonInstructorUnavailable = "Instructor unavailable"
	ReasonLowEnrollment         = "Low enrollment"
	ReasonEquipment             = "Equipment issue"
	ReasonOther                 = "Other"
)

var (
	partialRefundRate = decimal.RequireFromString("0.5")
	processingFeeRate = decimal.RequireFromString("0.10")
	maxProcessingFee  = decimal.RequireFromString("25.00")
)

// Cancellation holds the fields populated once a lesson is cancelled.
type Cancellation struct {
	Reason              string           `json:"reason,omitempty"`
	Notes               string           `json:"notes,omitempty"`
	RefundAmount        decimal.Decimal  `json:"refund_amount"`
	RefundType          RefundType       `json:"refund_type,omitempty"`
	CancelledAt         time.Time        `json:"cancelled_at,omitzero"`
	ProcessingFee       decimal.Decimal  `json:"processing_fee"`
	WeatherRelated      bool             `json:"weather_related"`
	InstructorFault     bool             `json:"instructor_fault"`
	CustomerNoShow      bool             `json:"customer_no_show"`
	CompensationOffered bool             `json:"compensation_offered"`
	CompensationType    CompensationType `json:"compensation_type,omitempty"`
	CompensationValue   decimal.Decimal  `json:"compensation_value"`
	TotalRevenue        decimal.Decimal  `json:"total_revenue"`
	ParticipantCount    int              `json:"participant_count"`
	OriginalPrice       decimal.Decimal  `json:"original_price"`
}

// CancelInput carries the cancel form.
type CancelInput struct {
	Reason              string           `json:"reason" validate:"required,max=200"`
	Notes               string           `json:"notes" validate:"max=4000"`
	RefundType          RefundType       `json:"refund_type" validate:"oneof=none partial full"`
	WeatherRelated      bool             `json:"weather_related"`
	InstructorFault     bool             `json:"instructor_fault"`
	CustomerNoShow      bool             `json:"customer_no_show"`
	Rescheduled         bool             `json:"rescheduled"`
	RescheduleDate      string           `json:"reschedule_date" validate:"omitempty,calendar_date"`
	RescheduleTime      string           `json:"reschedule_time" validate:"omitempty,clock_time"`
	CompensationOffered bool             `json:"compensation_offered"`
	CompensationType    CompensationType `json:"compensation_type" validate:"omitempty,oneof=none credit discount free_lesson"`
	CompensationValue   decimal.Decimal  `json:"compensation_value"`
	FollowUpRequired    bool             `json:"follow_up_required"`
}

// Validate checks the cancel form.
// POST: Returns a validation error for unknown enums, missing reason or negative compensation
func (in *CancelInput) Validate() error {
	if err := validation.Struct(in); err != nil {
		return err
	}
	if in.Rescheduled && (in.RescheduleDate == "" || in.RescheduleTime == "") {
		return apperr.Validation("reschedule date and time are required when rescheduled")
	}
	if in.CompensationValue.IsNegative() {
		return apperr.Validation("compensation value cannot be negative")
	}
	return nil
}

// RefundQuote is the money side of a cancellation.
type RefundQuote struct {
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	BaseRefund    decimal.Decimal `json:"base_refund"`
	ProcessingFee decimal.Decimal `json:"processing_fee"`
	FinalRefund   decimal.Decimal `json:"final_refund"`
}

// QuoteRefund computes the refund for cancelling a lesson priced at price
// with participants enrolled. Every step rounds half-up to cents.
// PRE: price >= 0, participants >= 0
// POST: 0 <= ProcessingFee <= 25.00, 0 <= FinalRefund <= BaseRefund <= TotalRevenue
func QuoteRefund(price decimal.Decimal, participants int, in CancelInput) RefundQuote {
	total := price.Mul(decimal.NewFromInt(int64(participants))).Round(2)

	var base decimal.Decimal
	switch in.RefundType {
	case RefundPartial:
		base = total.Mul(partialRefundRate).Round(2)
	case RefundFull:
		base = total
	default:
		base = decimal.Zero
	}

	fee := decimal.Zero
	if in.Reason == ReasonCustomerRequest && base.IsPositive() {
		fee = decimal.Min(base.Mul(processingFeeRate).Round(2), maxProcessingFee)
	}
	// Causes outside the customer's control never carry a fee.
	if in.WeatherRelated || in.InstructorFault {
		fee = decimal.Zero
	}

	final := decimal.Max(decimal.Zero, base.Sub(fee)).Round(2)
	return RefundQuote{
		TotalRevenue:  total,
		BaseRefund:    base,
		ProcessingFee: fee,
		FinalRefund:   final,
	}
}

// Cancel moves a scheduled lesson to cancelled and records refund analytics.
// Participants are left attached as history.
// PRE: in has been validated; loc is the school's time zone
// POST: Status=cancelled and all cancellation fields set, or an error with l unchanged
func (l *Lesson) Cancel(in CancelInput, now time.Time, loc *time.Location) (RefundQuote, error) {
	if !CanTransition(l.Status, StatusCancelled) {
		return RefundQuote{}, apperr.Conflict("cannot cancel a lesson that is %s", l.Status)
	}
	scheduledAt, err := l.ScheduledAt(loc)
	if err != nil {
		return RefundQuote{}, err
	}

	quote := QuoteRefund(l.Price, l.CurrentParticipants, in)

	compType := in.CompensationType
	if compType == "" {
		compType = CompensationNone
	}
	compValue := in.CompensationValue.Round(2)
	if !in.CompensationOffered {
		compType = CompensationNone
		compValue = decimal.Zero
	}

	l.Cancellation = Cancellation{
		Reason:              in.Reason,
		Notes:               in.Notes,
		RefundAmount:        quote.FinalRefund,
		RefundType:          in.RefundType,
		CancelledAt:         now,
		ProcessingFee:       quote.ProcessingFee,
		WeatherRelated:      in.WeatherRelated,
		InstructorFault:     in.InstructorFault,
		CustomerNoShow:      in.CustomerNoShow,
		CompensationOffered: in.CompensationOffered,
		CompensationType:    compType,
		CompensationValue:   compValue,
		TotalRevenue:        quote.TotalRevenue,
		ParticipantCount:    l.CurrentParticipants,
		OriginalPrice:       l.Price,
	}
	l.Status = StatusCancelled
	l.AdvanceNoticeHours = AdvanceNoticeHours(scheduledAt, now)
	l.FollowUpRequired = in.FollowUpRequired
	l.Rescheduled = in.Rescheduled
	if in.Rescheduled {
		l.RescheduleDate = in.RescheduleDate
		l.RescheduleTime = in.RescheduleTime
	}
	l.UpdatedAt = now
	return quote, nil
}
