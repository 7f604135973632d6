// Package admin is the reviewer side of the portal: listing submitted
// applications, changing their status and the local filtering used by
// the dashboard.
package admin

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Status is the review state of an application.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

// Statuses lists the review states in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

// ParseStatus accepts any casing of a known status.
func ParseStatus(s string) (Status, bool) {
	up := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range Statuses {
		if st == up {
			return st, true
		}
	}
	return "", false
}

// Amount decodes funding amounts sent either as JSON numbers or strings.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*a = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*a = Amount(v)
	return nil
}

type PersonalInfo struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber,omitempty"`
}

type AddressInfo struct {
	StreetAddress string `json:"streetAddress,omitempty"`
	City          string `json:"city,omitempty"`
	State         string `json:"state,omitempty"`
	Zip           string `json:"zip,omitempty"`
}

type FundingInfo struct {
	FundingType    string `json:"fundingType"`
	FundingAmount  Amount `json:"fundingAmount"`
	FundingPurpose string `json:"fundingPurpose,omitempty"`
	Timeframe      string `json:"timeframe,omitempty"`
}

type StatusChange struct {
	Status    Status    `json:"status"`
	ChangedAt time.Time `json:"changedAt"`
	Notes     string    `json:"adminNotes,omitempty"`
}

// Application is a submitted grant application as the review API returns it.
type Application struct {
	ID            string         `json:"_id"`
	Status        Status         `json:"status"`
	PersonalInfo  PersonalInfo   `json:"personalInfo"`
	AddressInfo   AddressInfo    `json:"addressInfo"`
	FundingInfo   FundingInfo    `json:"fundingInfo"`
	AdminNotes    string         `json:"adminNotes,omitempty"`
	StatusHistory []StatusChange `json:"statusHistory,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func (a Application) Name() string {
	return strings.TrimSpace(a.PersonalInfo.FirstName + " " + a.PersonalInfo.LastName)
}

// Query selects a page of the server side listing. Zero values mean
// "first page, any status, no search".
type Query struct {
	Page   int
	Status Status
	Search string
}

// Page is one page of the server side listing.
type Page struct {
	Applications []Application `json:"applications"`
	CurrentPage  int           `json:"currentPage"`
	TotalPages   int           `json:"totalPages"`
}

// statusUpdate is the PATCH body for a status change.
type statusUpdate struct {
	Status     Status `json:"status"`
	AdminNotes string `json:"adminNotes,omitempty"`
}

// statusResponse accepts either the updated application itself or
// {"application": {...}}.
type statusResponse struct {
	Application
	Nested *Application `json:"application,omitempty"`
}

func (r *statusResponse) UnmarshalJSON(data []byte) error {
	var wrapper struct {
		Nested *Application `json:"application"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return err
	}
	if wrapper.Nested != nil {
		r.Nested = wrapper.Nested
		return nil
	}
	return json.Unmarshal(data, &r.Application)
}

func (r statusResponse) application() Application {
	if r.Nested != nil {
		return *r.Nested
	}
	return r.Application
}
