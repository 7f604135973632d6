package form

import (
	"fmt"
	"strings"

	"grant-portal/internal/common/validation"
)

const (
	FirstStep = 1
	FinalStep = 4
)

type step struct {
	title    string
	fields   []Field
	validate func(d *Draft, cfg *Config, errs Errors)
}

var steps = [FinalStep]step{
	{
		title: "Personal Info",
		fields: []Field{
			FieldFirstName, FieldLastName, FieldSSN, FieldDateOfBirth, FieldEmail, FieldPhoneNumber,
			FieldStreetAddress, FieldCity, FieldState, FieldZip,
			FieldFundingType, FieldFundingAmount, FieldFundingPurpose, FieldTimeframe,
		},
		validate: validatePersonalInfo,
	},
	{
		title:    "Verification",
		fields:   []Field{FieldIDCardFront, FieldIDCardBack},
		validate: validateVerification,
	},
	{
		title: "Details",
		fields: []Field{
			FieldGender, FieldEthnicity, FieldEmploymentStatus,
			FieldIncomeLevel, FieldEducationLevel, FieldCitizenshipStatus,
		},
		validate: validateDetails,
	},
	{
		title:    "Review",
		fields:   []Field{FieldAgreeToCommunication, FieldTermsAccepted},
		validate: validateReview,
	},
}

func clampStep(n int) int {
	if n < FirstStep {
		return FirstStep
	}
	if n > FinalStep {
		return FinalStep
	}
	return n
}

// StepTitle returns the title of step n, clamped to the valid range.
func StepTitle(n int) string {
	return steps[clampStep(n)-1].title
}

// StepFields returns the fields edited on step n, clamped to the valid range.
func StepFields(n int) []Field {
	return append([]Field(nil), steps[clampStep(n)-1].fields...)
}

// StepOf returns the step on which f is edited, or 0 for a non-editable field.
func StepOf(f Field) int {
	for i, s := range steps {
		for _, sf := range s.fields {
			if sf == f {
				return i + 1
			}
		}
	}
	return 0
}

func validateStep(n int, d *Draft, cfg *Config) Errors {
	errs := Errors{}
	steps[clampStep(n)-1].validate(d, cfg, errs)
	return errs
}

func requiredMessage(f Field) string {
	return f.Label() + " is required"
}

// requireText records a required error when f is blank and reports whether
// the value is present.
func requireText(d *Draft, f Field, errs Errors) bool {
	if validation.IsBlank(d.Text(f)) {
		errs[f] = requiredMessage(f)
		return false
	}
	return true
}

// check applies rule to a present value.
func check(d *Draft, f Field, rule func(string) (bool, string), errs Errors) {
	if !requireText(d, f, errs) {
		return
	}
	if ok, msg := rule(d.Text(f)); !ok {
		errs[f] = msg
	}
}

func checkOption(d *Draft, cfg *Config, f Field, errs Errors) {
	if !requireText(d, f, errs) {
		return
	}
	if ok, _ := validation.IsOneOf(d.Text(f), cfg.Options.Values(string(f))); !ok {
		errs[f] = fmt.Sprintf("Please select a valid %s", strings.ToLower(f.Label()))
	}
}

func validatePersonalInfo(d *Draft, cfg *Config, errs Errors) {
	for _, f := range []Field{FieldFirstName, FieldLastName, FieldStreetAddress, FieldCity, FieldFundingPurpose} {
		requireText(d, f, errs)
	}

	check(d, FieldSSN, validation.IsValidSSN, errs)
	check(d, FieldDateOfBirth, validation.IsValidDate, errs)
	check(d, FieldEmail, validation.IsValidEmail, errs)
	check(d, FieldPhoneNumber, validation.IsValidPhone, errs)
	check(d, FieldState, validation.IsValidState, errs)
	check(d, FieldZip, validation.IsValidZip, errs)
	check(d, FieldFundingAmount, cfg.FundingRange.Check, errs)

	checkOption(d, cfg, FieldFundingType, errs)
	checkOption(d, cfg, FieldTimeframe, errs)
}

func validateVerification(d *Draft, cfg *Config, errs Errors) {
	for _, f := range []Field{FieldIDCardFront, FieldIDCardBack} {
		a := d.File(f)
		switch {
		case a == nil:
			errs[f] = requiredMessage(f)
		case !cfg.acceptsType(a.ContentType):
			errs[f] = f.Label() + " must be a JPEG, PNG or PDF file"
		case cfg.MaxAttachmentBytes > 0 && a.Size() > cfg.MaxAttachmentBytes:
			errs[f] = fmt.Sprintf("%s must be smaller than %d MB", f.Label(), cfg.MaxAttachmentBytes>>20)
		case a.Size() == 0:
			errs[f] = f.Label() + " is empty"
		}
	}
}

func validateDetails(d *Draft, cfg *Config, errs Errors) {
	for _, f := range []Field{
		FieldGender, FieldEthnicity, FieldEmploymentStatus,
		FieldIncomeLevel, FieldEducationLevel, FieldCitizenshipStatus,
	} {
		checkOption(d, cfg, f, errs)
	}
}

func validateReview(d *Draft, _ *Config, errs Errors) {
	if !d.AgreeToCommunication {
		errs[FieldAgreeToCommunication] = "You must agree to receive communications"
	}
	if !d.TermsAccepted {
		errs[FieldTermsAccepted] = "You must accept the terms and conditions"
	}
}
