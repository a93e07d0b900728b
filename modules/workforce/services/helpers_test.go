package services

import (
	"strings"
	"time"
)

const extractHeader = "TRN,NINumber,DateOfBirth,DateOfDeath,MemberPostcode,MemberEmailAddress," +
	"LocalAuthorityCode,EstablishmentNumber,EstablishmentPostcode,EstablishmentEmailAddress," +
	"EmploymentStartDate,EmploymentEndDate,FullOrPartTimeIndicator,WithdrawalIndicator,ExtractDate,Gender"

type row struct {
	trn        string
	la         string
	number     string
	postcode   string
	start      string
	end        string
	fpt        string
	withdrawal string
	extract    string
}

func (r row) csv() string {
	fpt := r.fpt
	if fpt == "" {
		fpt = "FT"
	}
	return strings.Join([]string{
		r.trn, "AB123456C", "01/02/1980", "", "SW1A 1AA", "teacher@example.com",
		r.la, r.number, r.postcode, "",
		r.start, r.end, fpt, r.withdrawal, r.extract, "female",
	}, ",")
}

func extractCSV(rows ...row) string {
	lines := []string{extractHeader}
	for _, r := range rows {
		lines = append(lines, r.csv())
	}
	return strings.Join(lines, "\n") + "\n"
}

func date(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func strPtr(s string) *string { return &s }
