package loaditem

import "strings"

// LoadErrors is the set of format rules a raw extract row violates. None means valid.
type LoadErrors uint32

const None LoadErrors = 0

const (
	TrnIncorrectFormat LoadErrors = 1 << iota
	NationalInsuranceNumberIncorrectFormat
	DateOfBirthIncorrectFormat
	DateOfDeathIncorrectFormat
	MemberPostcodeIncorrectFormat
	LocalAuthorityCodeIncorrectFormat
	EstablishmentNumberIncorrectFormat
	EstablishmentPostcodeIncorrectFormat
	EmploymentStartDateIncorrectFormat
	EmploymentEndDateIncorrectFormat
	FullOrPartTimeIndicatorIncorrectFormat
	WithdrawalIndicatorIncorrectFormat
	ExtractDateIncorrectFormat
	GenderIncorrectFormat
)

// All is every defined rule, in bit order.
var All = []LoadErrors{
	TrnIncorrectFormat,
	NationalInsuranceNumberIncorrectFormat,
	DateOfBirthIncorrectFormat,
	DateOfDeathIncorrectFormat,
	MemberPostcodeIncorrectFormat,
	LocalAuthorityCodeIncorrectFormat,
	EstablishmentNumberIncorrectFormat,
	EstablishmentPostcodeIncorrectFormat,
	EmploymentStartDateIncorrectFormat,
	EmploymentEndDateIncorrectFormat,
	FullOrPartTimeIndicatorIncorrectFormat,
	WithdrawalIndicatorIncorrectFormat,
	ExtractDateIncorrectFormat,
	GenderIncorrectFormat,
}

var names = map[LoadErrors]string{
	TrnIncorrectFormat:                     "trn_incorrect_format",
	NationalInsuranceNumberIncorrectFormat: "national_insurance_number_incorrect_format",
	DateOfBirthIncorrectFormat:             "date_of_birth_incorrect_format",
	DateOfDeathIncorrectFormat:             "date_of_death_incorrect_format",
	MemberPostcodeIncorrectFormat:          "member_postcode_incorrect_format",
	LocalAuthorityCodeIncorrectFormat:      "local_authority_code_incorrect_format",
	EstablishmentNumberIncorrectFormat:     "establishment_number_incorrect_format",
	EstablishmentPostcodeIncorrectFormat:   "establishment_postcode_incorrect_format",
	EmploymentStartDateIncorrectFormat:     "employment_start_date_incorrect_format",
	EmploymentEndDateIncorrectFormat:       "employment_end_date_incorrect_format",
	FullOrPartTimeIndicatorIncorrectFormat: "full_or_part_time_indicator_incorrect_format",
	WithdrawalIndicatorIncorrectFormat:     "withdrawal_indicator_incorrect_format",
	ExtractDateIncorrectFormat:             "extract_date_incorrect_format",
	GenderIncorrectFormat:                  "gender_incorrect_format",
}

func (e LoadErrors) Has(flag LoadErrors) bool {
	return e&flag == flag
}

// Names lists the violated rules in bit order.
func (e LoadErrors) Names() []string {
	var out []string
	for _, flag := range All {
		if e.Has(flag) {
			out = append(out, names[flag])
		}
	}
	return out
}

func (e LoadErrors) String() string {
	if e == None {
		return "none"
	}
	return strings.Join(e.Names(), "|")
}
