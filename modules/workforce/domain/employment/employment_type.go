package employment

import (
	"fmt"
	"strings"
)

// Type is the contractual basis of an employment as reported by the extract.
type Type int16

const (
	FullTime          Type = 0
	PartTimeRegular   Type = 1
	PartTimeIrregular Type = 2
	PartTime          Type = 3
)

var typeCodes = map[string]Type{
	"FT":  FullTime,
	"PTR": PartTimeRegular,
	"PTI": PartTimeIrregular,
	"PT":  PartTime,
}

// ParseTypeCode maps an extract full/part-time indicator onto a Type.
func ParseTypeCode(code string) (Type, error) {
	t, ok := typeCodes[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return 0, fmt.Errorf("unknown full/part-time indicator %q", code)
	}
	return t, nil
}

func IsTypeCode(code string) bool {
	_, err := ParseTypeCode(code)
	return err == nil
}

func (t Type) Code() string {
	switch t {
	case FullTime:
		return "FT"
	case PartTimeRegular:
		return "PTR"
	case PartTimeIrregular:
		return "PTI"
	case PartTime:
		return "PT"
	default:
		return ""
	}
}

func (t Type) String() string {
	switch t {
	case FullTime:
		return "full_time"
	case PartTimeRegular:
		return "part_time_regular"
	case PartTimeIrregular:
		return "part_time_irregular"
	case PartTime:
		return "part_time"
	default:
		return fmt.Sprintf("type(%d)", int16(t))
	}
}
