// Package form implements the multi-step grant application form: the
// draft being edited, per-step validation, step navigation and the single
// submission of the completed draft.
package form

import (
	"fmt"
	"sort"
	"time"
)

// Field names a draft field. The string value is the wire name used in the
// submission payload and in server-side field errors.
type Field string

const (
	FieldFirstName            Field = "firstName"
	FieldLastName             Field = "lastName"
	FieldSSN                  Field = "ssn"
	FieldDateOfBirth          Field = "dateOfBirth"
	FieldEmail                Field = "email"
	FieldPhoneNumber          Field = "phoneNumber"
	FieldGender               Field = "gender"
	FieldEthnicity            Field = "ethnicity"
	FieldEmploymentStatus     Field = "employmentStatus"
	FieldIncomeLevel          Field = "incomeLevel"
	FieldEducationLevel       Field = "educationLevel"
	FieldCitizenshipStatus    Field = "citizenshipStatus"
	FieldStreetAddress        Field = "streetAddress"
	FieldCity                 Field = "city"
	FieldState                Field = "state"
	FieldZip                  Field = "zip"
	FieldFundingType          Field = "fundingType"
	FieldFundingAmount        Field = "fundingAmount"
	FieldFundingPurpose       Field = "fundingPurpose"
	FieldTimeframe            Field = "timeframe"
	FieldAgreeToCommunication Field = "agreeToCommunication"
	FieldTermsAccepted        Field = "termsAccepted"
	FieldIDCardFront          Field = "idCardFront"
	FieldIDCardBack           Field = "idCardBack"

	// FieldSubmission carries a form-level message after a failed submission.
	// It is not an editable field.
	FieldSubmission Field = "submission"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindFlag
	kindFile
)

// Fields lists every editable field in payload order.
var Fields = []Field{
	FieldFirstName, FieldLastName, FieldSSN, FieldDateOfBirth, FieldEmail, FieldPhoneNumber,
	FieldGender, FieldEthnicity, FieldEmploymentStatus, FieldIncomeLevel, FieldEducationLevel, FieldCitizenshipStatus,
	FieldStreetAddress, FieldCity, FieldState, FieldZip,
	FieldFundingType, FieldFundingAmount, FieldFundingPurpose, FieldTimeframe,
	FieldAgreeToCommunication, FieldTermsAccepted,
	FieldIDCardFront, FieldIDCardBack,
}

var fieldKinds = map[Field]fieldKind{
	FieldAgreeToCommunication: kindFlag,
	FieldTermsAccepted:        kindFlag,
	FieldIDCardFront:          kindFile,
	FieldIDCardBack:           kindFile,
}

var fieldLabels = map[Field]string{
	FieldFirstName:            "First name",
	FieldLastName:             "Last name",
	FieldSSN:                  "SSN",
	FieldDateOfBirth:          "Date of birth",
	FieldEmail:                "Email",
	FieldPhoneNumber:          "Phone number",
	FieldGender:               "Gender",
	FieldEthnicity:            "Ethnicity",
	FieldEmploymentStatus:     "Employment status",
	FieldIncomeLevel:          "Income level",
	FieldEducationLevel:       "Education level",
	FieldCitizenshipStatus:    "Citizenship status",
	FieldStreetAddress:        "Street address",
	FieldCity:                 "City",
	FieldState:                "State",
	FieldZip:                  "ZIP code",
	FieldFundingType:          "Funding type",
	FieldFundingAmount:        "Funding amount",
	FieldFundingPurpose:       "Funding purpose",
	FieldTimeframe:            "Timeframe",
	FieldAgreeToCommunication: "Communication consent",
	FieldTermsAccepted:        "Terms and conditions",
	FieldIDCardFront:          "ID card front",
	FieldIDCardBack:           "ID card back",
}

// ParseField maps a wire name to a Field.
func ParseField(name string) (Field, bool) {
	f := Field(name)
	if _, ok := fieldLabels[f]; !ok {
		return "", false
	}
	return f, true
}

// Label is the human readable name of the field.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

func (f Field) IsFile() bool { return fieldKinds[f] == kindFile }
func (f Field) IsFlag() bool { return fieldKinds[f] == kindFlag }

// Attachment is a file bound to one of the ID card fields.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (a *Attachment) Size() int64 {
	if a == nil {
		return 0
	}
	return int64(len(a.Data))
}

func (a *Attachment) clone() *Attachment {
	if a == nil {
		return nil
	}
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

// Draft is the in-progress application. The zero value is the empty draft.
type Draft struct {
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	SSN               string `json:"ssn"`
	DateOfBirth       string `json:"dateOfBirth"`
	Email             string `json:"email"`
	PhoneNumber       string `json:"phoneNumber"`
	Gender            string `json:"gender"`
	Ethnicity         string `json:"ethnicity"`
	EmploymentStatus  string `json:"employmentStatus"`
	IncomeLevel       string `json:"incomeLevel"`
	EducationLevel    string `json:"educationLevel"`
	CitizenshipStatus string `json:"citizenshipStatus"`
	StreetAddress     string `json:"streetAddress"`
	City              string `json:"city"`
	State             string `json:"state"`
	Zip               string `json:"zip"`
	FundingType       string `json:"fundingType"`
	FundingAmount     string `json:"fundingAmount"`
	FundingPurpose    string `json:"fundingPurpose"`
	Timeframe         string `json:"timeframe"`

	AgreeToCommunication bool `json:"agreeToCommunication"`
	TermsAccepted        bool `json:"termsAccepted"`

	IDCardFront *Attachment `json:"-"`
	IDCardBack  *Attachment `json:"-"`
}

func (d *Draft) text(f Field) *string {
	switch f {
	case FieldFirstName:
		return &d.FirstName
	case FieldLastName:
		return &d.LastName
	case FieldSSN:
		return &d.SSN
	case FieldDateOfBirth:
		return &d.DateOfBirth
	case FieldEmail:
		return &d.Email
	case FieldPhoneNumber:
		return &d.PhoneNumber
	case FieldGender:
		return &d.Gender
	case FieldEthnicity:
		return &d.Ethnicity
	case FieldEmploymentStatus:
		return &d.EmploymentStatus
	case FieldIncomeLevel:
		return &d.IncomeLevel
	case FieldEducationLevel:
		return &d.EducationLevel
	case FieldCitizenshipStatus:
		return &d.CitizenshipStatus
	case FieldStreetAddress:
		return &d.StreetAddress
	case FieldCity:
		return &d.City
	case FieldState:
		return &d.State
	case FieldZip:
		return &d.Zip
	case FieldFundingType:
		return &d.FundingType
	case FieldFundingAmount:
		return &d.FundingAmount
	case FieldFundingPurpose:
		return &d.FundingPurpose
	case FieldTimeframe:
		return &d.Timeframe
	}
	return nil
}

func (d *Draft) flag(f Field) *bool {
	switch f {
	case FieldAgreeToCommunication:
		return &d.AgreeToCommunication
	case FieldTermsAccepted:
		return &d.TermsAccepted
	}
	return nil
}

func (d *Draft) file(f Field) **Attachment {
	switch f {
	case FieldIDCardFront:
		return &d.IDCardFront
	case FieldIDCardBack:
		return &d.IDCardBack
	}
	return nil
}

// Text returns the value of a text field, or "" for any other field.
func (d Draft) Text(f Field) string {
	if p := d.text(f); p != nil {
		return *p
	}
	return ""
}

// Flag returns the value of a boolean field.
func (d Draft) Flag(f Field) bool {
	if p := d.flag(f); p != nil {
		return *p
	}
	return false
}

// File returns the attachment bound to a file field, if any.
func (d Draft) File(f Field) *Attachment {
	if p := d.file(f); p != nil {
		return *p
	}
	return nil
}

// Clone returns a deep copy; attachments are copied too.
func (d Draft) Clone() Draft {
	c := d
	c.IDCardFront = d.IDCardFront.clone()
	c.IDCardBack = d.IDCardBack.clone()
	return c
}

// Errors maps a field to its single current message.
type Errors map[Field]string

func (e Errors) Clone() Errors {
	out := make(Errors, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}

// Fields returns the fields with an error, sorted by name.
func (e Errors) Fields() []Field {
	out := make([]Field, 0, len(e))
	for f := range e {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (e Errors) strings() map[string]string {
	out := make(map[string]string, len(e))
	for k, v := range e {
		out[string(k)] = v
	}
	return out
}

// State of the submission lifecycle.
type State int

const (
	StateIdle State = iota
	StateInFlight
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInFlight:
		return "in_flight"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome is the submission status visible to the caller. Response is
// set only when State is StateSucceeded; Message only when StateFailed.
type Outcome struct {
	State     State                  `json:"state"`
	Response  map[string]interface{} `json:"response,omitempty"`
	Message   string                 `json:"message,omitempty"`
	RequestID string                 `json:"requestId,omitempty"`
}

func (o Outcome) InFlight() bool  { return o.State == StateInFlight }
func (o Outcome) Succeeded() bool { return o.State == StateSucceeded }
func (o Outcome) Failed() bool    { return o.State == StateFailed }

// Rejection is returned by a SubmissionClient when the server answers
// with a non-success status.
type Rejection struct {
	Status      int
	Message     string
	FieldErrors map[string]string
}

func (r *Rejection) Error() string {
	if r.Message == "" {
		return fmt.Sprintf("submission rejected with status %d", r.Status)
	}
	return fmt.Sprintf("submission rejected with status %d: %s", r.Status, r.Message)
}

// Response is a successful server answer.
type Response struct {
	Status int
	Body   map[string]interface{}
}

// Record describes one finished submission attempt for observers.
type Record struct {
	RequestID  string
	State      State
	Message    string
	HTTPStatus int
	Duration   time.Duration
	Err        error
	// Discarded is set when the form was reset while the request was in
	// flight and the result was ignored.
	Discarded bool
}
