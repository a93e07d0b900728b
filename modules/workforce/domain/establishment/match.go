package establishment

// MatchPath records which key located an establishment.
type MatchPath int

const (
	MatchNone MatchPath = iota
	MatchByNumber
	MatchByHigherEducationPostcode
)

func (p MatchPath) String() string {
	switch p {
	case MatchByNumber:
		return "number"
	case MatchByHigherEducationPostcode:
		return "he_postcode"
	default:
		return "none"
	}
}

type numberKey struct{ laCode, number string }
type postcodeKey struct{ laCode, postcode string }

// Index answers matcher lookups over a loaded set of establishments.
type Index struct {
	byNumber   map[numberKey][]Establishment
	byPostcode map[postcodeKey][]Establishment
}

func NewIndex(all []Establishment) *Index {
	ix := &Index{
		byNumber:   make(map[numberKey][]Establishment),
		byPostcode: make(map[postcodeKey][]Establishment),
	}
	for _, e := range all {
		if e.EstablishmentNumber != nil && *e.EstablishmentNumber != "" {
			k := numberKey{e.LaCode, *e.EstablishmentNumber}
			ix.byNumber[k] = append(ix.byNumber[k], e)
		}
		if e.IsHigherEducation && e.Postcode != nil {
			if pc := NormalizePostcode(*e.Postcode); pc != "" {
				k := postcodeKey{e.LaCode, pc}
				ix.byPostcode[k] = append(ix.byPostcode[k], e)
			}
		}
	}
	return ix
}

// Match applies the lookup strategy: (LA code, establishment number) when a number is
// given, falling back to higher education establishments by (LA code, postcode).
func (ix *Index) Match(laCode, number, postcode string) (Establishment, MatchPath) {
	if number != "" {
		if best, ok := SelectBest(ix.byNumber[numberKey{laCode, number}]); ok {
			return best, MatchByNumber
		}
	}
	if pc := NormalizePostcode(postcode); pc != "" {
		if best, ok := SelectBest(ix.byPostcode[postcodeKey{laCode, pc}]); ok {
			return best, MatchByHigherEducationPostcode
		}
	}
	return Establishment{}, MatchNone
}

// VersionsOf returns every version sharing e's (LA code, establishment number).
func (ix *Index) VersionsOf(e Establishment) []Establishment {
	if e.EstablishmentNumber == nil || *e.EstablishmentNumber == "" {
		return nil
	}
	return ix.byNumber[numberKey{e.LaCode, *e.EstablishmentNumber}]
}
