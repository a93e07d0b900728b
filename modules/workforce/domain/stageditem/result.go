package stageditem

// Result is the processing state of a staged item. Pending is the only non-terminal value.
type Result string

const (
	Pending              Result = "pending"
	InvalidTrn           Result = "invalid_trn"
	InvalidEstablishment Result = "invalid_establishment"
	ValidDataAdded       Result = "valid_data_added"
	ValidDataUpdated     Result = "valid_data_updated"
	ValidNoChange        Result = "valid_no_change"
)

var Results = []Result{Pending, InvalidTrn, InvalidEstablishment, ValidDataAdded, ValidDataUpdated, ValidNoChange}

func (r Result) IsTerminal() bool {
	return r != Pending
}

func (r Result) IsValid() bool {
	for _, v := range Results {
		if v == r {
			return true
		}
	}
	return false
}
