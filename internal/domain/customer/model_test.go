package customer_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"surfshop/internal/domain/customer"
)

var fixedNow = time.Date(2026, 7, 10, 8, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

// TestClassifyWaiver tests the four waiver states and their boundaries.
func TestClassifyWaiver(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		name   string
		signed bool
		expiry *time.Time
		want   customer.WaiverValidity
	}{
		{"unsigned without expiry", false, nil, customer.WaiverNone},
		{"unsigned with future expiry", false, ptr(fixedNow.Add(100 * day)), customer.WaiverNone},
		{"unsigned with past expiry", false, ptr(fixedNow.Add(-day)), customer.WaiverNone},
		{"signed without expiry", true, nil, customer.WaiverValid},
		{"expired yesterday", true, ptr(fixedNow.Add(-day)), customer.WaiverExpired},
		{"expires now", true, ptr(fixedNow), customer.WaiverExpiringSoon},
		{"expires in 10 days", true, ptr(fixedNow.Add(10 * day)), customer.WaiverExpiringSoon},
		{"expires in exactly 30 days", true, ptr(fixedNow.Add(30 * day)), customer.WaiverExpiringSoon},
		{"expires just past 30 days", true, ptr(fixedNow.Add(30*day + time.Second)), customer.WaiverValid},
		{"expires in 40 days", true, ptr(fixedNow.Add(40 * day)), customer.WaiverValid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &customer.Customer{WaiverSigned: tt.signed, WaiverExpiryDate: tt.expiry}
			if got := customer.ClassifyWaiver(c, fixedNow); got != tt.want {
				t.Errorf("ClassifyWaiver = %s, want %s", got, tt.want)
			}
			if got := c.WaiverStatus(fixedNow); got != tt.want {
				t.Errorf("WaiverStatus = %s, want %s", got, tt.want)
			}
		})
	}
}

// TestClassifyWaiverNil treats a missing customer as unsigned.
func TestClassifyWaiverNil(t *testing.T) {
	if got := customer.ClassifyWaiver(nil, fixedNow); got != customer.WaiverNone {
		t.Errorf("ClassifyWaiver(nil) = %s", got)
	}
}

// TestSignWaiver tests the one-year term.
func TestSignWaiver(t *testing.T) {
	c := customer.Customer{FirstName: "Ana", LastName: "Silva", Status: customer.StatusActive}
	c.SignWaiver(fixedNow)
	if !c.WaiverSigned || c.WaiverSignedAt == nil || !c.WaiverSignedAt.Equal(fixedNow) {
		t.Fatalf("waiver not recorded: %+v", c)
	}
	if want := time.Date(2027, 7, 10, 8, 0, 0, 0, time.UTC); !c.WaiverExpiryDate.Equal(want) {
		t.Errorf("expiry = %v, want %v", c.WaiverExpiryDate, want)
	}
	if got := c.WaiverStatus(fixedNow); got != customer.WaiverValid {
		t.Errorf("WaiverStatus = %s, want VALID", got)
	}
	if got := c.WaiverStatus(fixedNow.AddDate(1, 0, -5)); got != customer.WaiverExpiringSoon {
		t.Errorf("WaiverStatus near expiry = %s, want EXPIRING_SOON", got)
	}
}

// TestCampgroundDiscountEligible tests the stay window.
func TestCampgroundDiscountEligible(t *testing.T) {
	in := fixedNow.Add(-48 * time.Hour)
	out := fixedNow.Add(48 * time.Hour)
	tests := []struct {
		name string
		c    customer.Customer
		at   time.Time
		want bool
	}{
		{"not a guest", customer.Customer{}, fixedNow, false},
		{"guest without window", customer.Customer{IsCampgroundGuest: true}, fixedNow, true},
		{"during stay", customer.Customer{IsCampgroundGuest: true, CampgroundCheckIn: &in, CampgroundCheckOut: &out}, fixedNow, true},
		{"before check-in", customer.Customer{IsCampgroundGuest: true, CampgroundCheckIn: &in}, in.Add(-time.Hour), false},
		{"after check-out", customer.Customer{IsCampgroundGuest: true, CampgroundCheckOut: &out}, out.Add(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.CampgroundDiscountEligible(tt.at); got != tt.want {
				t.Errorf("CampgroundDiscountEligible = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestCustomerValidation tests validation of Customer.
func TestCustomerValidation(t *testing.T) {
	in := fixedNow
	before := fixedNow.Add(-time.Hour)
	tests := []struct {
		name    string
		mutate  func(c *customer.Customer)
		wantErr bool
	}{
		{"valid", func(c *customer.Customer) {}, false},
		{"no email", func(c *customer.Customer) { c.Email = "" }, false},
		{"bad email", func(c *customer.Customer) { c.Email = "ana-at-example" }, true},
		{"blank first name", func(c *customer.Customer) { c.FirstName = "  " }, true},
		{"missing last name", func(c *customer.Customer) { c.LastName = "" }, true},
		{"unknown status", func(c *customer.Customer) { c.Status = "vip" }, true},
		{"negative spend", func(c *customer.Customer) { c.TotalSpent = decimal.RequireFromString("-1") }, true},
		{"negative visits", func(c *customer.Customer) { c.TotalVisits = -1 }, true},
		{"check-out before check-in", func(c *customer.Customer) {
			c.CampgroundCheckIn = &in
			c.CampgroundCheckOut = &before
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := customer.Customer{
				ID:        "c1",
				FirstName: "Ana",
				LastName:  "Silva",
				Email:     "ana@example.com",
				Status:    customer.StatusActive,
			}
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Customer.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
