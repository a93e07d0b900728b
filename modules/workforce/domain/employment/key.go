package employment

import (
	"fmt"
	"strings"
	"time"
)

// BuildKey returns the natural key of an employment spell. The establishment part is the
// establishment number when reported, otherwise the normalized establishment postcode, so
// the key survives establishment version refreshes.
func BuildKey(trn, laCode, establishmentNumber, establishmentPostcode string, startDate time.Time) string {
	estab := strings.TrimSpace(establishmentNumber)
	if estab == "" {
		estab = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(establishmentPostcode), " ", ""))
	}
	return fmt.Sprintf("%s.%s.%s.%s", strings.TrimSpace(trn), strings.TrimSpace(laCode), estab, DateOnly(startDate).Format("20060102"))
}
