package loaditem

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/DFE-Digital/trs-workforce/modules/workforce/domain/employment"
	"github.com/go-playground/validator/v10"
)

// DateLayout is the extract's dd/MM/yyyy date format.
const DateLayout = "02/01/2006"

const WithdrawalCode = "W"

var (
	trnRe         = regexp.MustCompile(`^\d{7}$`)
	ninoRe        = regexp.MustCompile(`^[A-CEGHJ-PR-TW-Z][A-CEGHJ-NPR-TW-Z][0-9]{6}[A-D]$`)
	laCodeRe      = regexp.MustCompile(`^\d{3}$`)
	estabNumberRe = regexp.MustCompile(`^\d{4}$`)
	postcodeRe    = regexp.MustCompile(`^[A-Z]{1,2}[0-9][A-Z0-9]? ?[0-9][A-Z]{2}$`)
)

// fieldFlags maps LoadItem field names onto the rule each one reports.
var fieldFlags = map[string]LoadErrors{
	"Trn":                     TrnIncorrectFormat,
	"NationalInsuranceNumber": NationalInsuranceNumberIncorrectFormat,
	"DateOfBirth":             DateOfBirthIncorrectFormat,
	"DateOfDeath":             DateOfDeathIncorrectFormat,
	"MemberPostcode":          MemberPostcodeIncorrectFormat,
	"LocalAuthorityCode":      LocalAuthorityCodeIncorrectFormat,
	"EstablishmentNumber":     EstablishmentNumberIncorrectFormat,
	"EstablishmentPostcode":   EstablishmentPostcodeIncorrectFormat,
	"EmploymentStartDate":     EmploymentStartDateIncorrectFormat,
	"EmploymentEndDate":       EmploymentEndDateIncorrectFormat,
	"FullOrPartTimeIndicator": FullOrPartTimeIndicatorIncorrectFormat,
	"WithdrawalIndicator":     WithdrawalIndicatorIncorrectFormat,
	"ExtractDate":             ExtractDateIncorrectFormat,
	"Gender":                  GenderIncorrectFormat,
}

func stringRule(fn func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return fn(fl.Field().String())
	}
}

var rowValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New()
	rules := map[string]func(string) bool{
		"trn":         trnRe.MatchString,
		"nino":        func(s string) bool { return ninoRe.MatchString(strings.ToUpper(s)) },
		"tpsdate":     func(s string) bool { _, err := ParseDate(s); return err == nil },
		"lacode":      laCodeRe.MatchString,
		"estabnumber": estabNumberRe.MatchString,
		"ukpostcode":  func(s string) bool { return postcodeRe.MatchString(strings.ToUpper(s)) },
		"fptcode":     employment.IsTypeCode,
		"withdrawal":  func(s string) bool { return strings.EqualFold(s, WithdrawalCode) },
		"gender":      func(s string) bool { return strings.EqualFold(s, "Male") || strings.EqualFold(s, "Female") },
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, stringRule(fn)); err != nil {
			panic(err)
		}
	}
	return v
})

// ParseDate parses a dd/MM/yyyy extract date as a UTC calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Validate evaluates every rule against item and returns the violated set.
func Validate(item *LoadItem) LoadErrors {
	err := rowValidator().Struct(item)
	if err == nil {
		return None
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return allRequired()
	}
	var out LoadErrors
	for _, fe := range verrs {
		out |= fieldFlags[fe.StructField()]
	}
	return out
}

// allRequired is the mask an entirely empty row produces.
func allRequired() LoadErrors {
	return TrnIncorrectFormat |
		NationalInsuranceNumberIncorrectFormat |
		DateOfBirthIncorrectFormat |
		LocalAuthorityCodeIncorrectFormat |
		EmploymentStartDateIncorrectFormat |
		EmploymentEndDateIncorrectFormat |
		FullOrPartTimeIndicatorIncorrectFormat |
		ExtractDateIncorrectFormat |
		GenderIncorrectFormat
}

// Unparseable returns the LoadItem recorded for a CSV record that could not be read.
func Unparseable(item LoadItem) LoadItem {
	item.Errors = allRequired()
	return item
}
