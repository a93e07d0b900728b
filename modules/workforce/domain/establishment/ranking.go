package establishment

import "bytes"

func statusRank(s *Status) int {
	if s == nil {
		return 4
	}
	switch *s {
	case StatusOpen:
		return 0
	case StatusProposedToOpen:
		return 1
	case StatusOpenProposedToClose:
		return 2
	case StatusClosed:
		return 3
	default:
		return 4
	}
}

// less orders candidates: status precedence, then the head of a version chain before
// superseded versions, then newest first, then id.
func less(a, b Establishment) bool {
	if ra, rb := statusRank(a.Status), statusRank(b.Status); ra != rb {
		return ra < rb
	}
	if sa, sb := a.SupersededByID != nil, b.SupersededByID != nil; sa != sb {
		return !sa
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// SelectBest picks the preferred candidate.
func SelectBest(candidates []Establishment) (Establishment, bool) {
	if len(candidates) == 0 {
		return Establishment{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if less(c, best) {
			best = c
		}
	}
	return best, true
}

// SelectReplacement picks the open version that should replace a closed one. The
// closed version's own successor wins when it is among the open candidates.
func SelectReplacement(current Establishment, candidates []Establishment) (Establishment, bool) {
	if !current.IsClosed() {
		return Establishment{}, false
	}
	open := make([]Establishment, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == current.ID || !c.IsOpen() {
			continue
		}
		if current.SupersededByID != nil && c.ID == *current.SupersededByID {
			return c, true
		}
		open = append(open, c)
	}
	return SelectBest(open)
}
