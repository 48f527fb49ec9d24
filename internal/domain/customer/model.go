package customer

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"surfshop/internal/domain/apperr"
	"surfshop/internal/domain/validation"
)

// Status is a customer's standing with the shop.
type Status string

// Customer standings.
const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusBanned   Status = "banned"
)

// WaiverValidity is the derived waiver state shown wherever a customer appears.
type WaiverValidity string

// Waiver states.
const (
	WaiverNone         WaiverValidity = "NO_WAIVER"
	WaiverExpired      WaiverValidity = "EXPIRED"
	WaiverExpiringSoon WaiverValidity = "EXPIRING_SOON"
	WaiverValid        WaiverValidity = "VALID"
)

// Business rule constants
const (
	ExpiringSoonWindow = 30 * 24 * time.Hour
	WaiverTerm         = 1 // years
)

// Customer is a person who transacts with the shop.
type Customer struct {
	ID                 string          `json:"id"`
	FirstName          string          `json:"first_name" validate:"required,max=100"`
	LastName           string          `json:"last_name" validate:"required,max=100"`
	Email              string          `json:"email" validate:"omitempty,email,max=254"`
	Phone              string          `json:"phone" validate:"max=40"`
	EmergencyContact   string          `json:"emergency_contact" validate:"max=200"`
	WaiverSigned       bool            `json:"waiver_signed"`
	WaiverSignedAt     *time.Time      `json:"waiver_signed_at,omitempty"`
	WaiverExpiryDate   *time.Time      `json:"waiver_expiry_date,omitempty"`
	TotalVisits        int             `json:"total_visits" validate:"gte=0"`
	TotalSpent         decimal.Decimal `json:"total_spent"`
	IsCampgroundGuest  bool            `json:"is_campground_guest"`
	CampgroundSite     string          `json:"campground_site" validate:"max=20"`
	CampgroundCheckIn  *time.Time      `json:"campground_check_in,omitempty"`
	CampgroundCheckOut *time.Time      `json:"campground_check_out,omitempty"`
	Status             Status          `json:"status" validate:"oneof=active inactive banned"`
	Notes              string          `json:"notes" validate:"max=4000"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Validate checks if the Customer has valid data.
// PRE: Customer struct is initialized
// POST: Returns a validation error if validation fails, nil otherwise
// INVARIANT: TotalSpent >= 0, check-out not before check-in
func (c *Customer) Validate() error {
	if err := validation.Struct(c); err != nil {
		return err
	}
	if strings.TrimSpace(c.FirstName) == "" || strings.TrimSpace(c.LastName) == "" {
		return apperr.Validation("customer name cannot be blank")
	}
	if c.TotalSpent.IsNegative() {
		return apperr.Validation("total spent cannot be negative")
	}
	if c.CampgroundCheckIn != nil && c.CampgroundCheckOut != nil && c.CampgroundCheckOut.Before(*c.CampgroundCheckIn) {
		return apperr.Validation("campground check-out is before check-in")
	}
	return nil
}

// FullName joins first and last name.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// ClassifyWaiver derives the waiver state of c at now. It is the only place
// waiver validity is computed.
// POST: NO_WAIVER when unsigned; VALID when signed without expiry;
// EXPIRED when expiry < now; EXPIRING_SOON when now <= expiry <= now+30d; VALID otherwise
func ClassifyWaiver(c *Customer, now time.Time) WaiverValidity {
	if c == nil || !c.WaiverSigned {
		return WaiverNone
	}
	if c.WaiverExpiryDate == nil {
		return WaiverValid
	}
	expiry := *c.WaiverExpiryDate
	switch {
	case expiry.Before(now):
		return WaiverExpired
	case !expiry.After(now.Add(ExpiringSoonWindow)):
		return WaiverExpiringSoon
	default:
		return WaiverValid
	}
}

// WaiverStatus returns ClassifyWaiver(c, now).
func (c *Customer) WaiverStatus(now time.Time) WaiverValidity {
	return ClassifyWaiver(c, now)
}

// SignWaiver records a fresh waiver signed at now.
// POST: WaiverSigned, WaiverSignedAt = now, WaiverExpiryDate = now + 1 year
func (c *Customer) SignWaiver(now time.Time) {
	signed := now
	expiry := now.AddDate(WaiverTerm, 0, 0)
	c.WaiverSigned = true
	c.WaiverSignedAt = &signed
	c.WaiverExpiryDate = &expiry
	c.UpdatedAt = now
}

// CampgroundDiscountEligible reports whether the campground guest discount applies at now.
// A guest with no recorded stay window is always eligible.
func (c *Customer) CampgroundDiscountEligible(now time.Time) bool {
	if !c.IsCampgroundGuest {
		return false
	}
	if c.CampgroundCheckIn != nil && now.Before(*c.CampgroundCheckIn) {
		return false
	}
	if c.CampgroundCheckOut != nil && now.After(*c.CampgroundCheckOut) {
		return false
	}
	return true
}
