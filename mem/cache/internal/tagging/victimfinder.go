package tagging

// A VictimFinder decides which way of a set should be evicted.
type VictimFinder interface {
	FindVictim(set *Set) (wayID int)
}

// AgeVictimFinder evicts the oldest line of a set, as measured by the age
// counters the tag array maintains.
type AgeVictimFinder struct {
}

// NewAgeVictimFinder returns a newly constructed age-based evictor.
func NewAgeVictimFinder() *AgeVictimFinder {
	e := new(AgeVictimFinder)
	return e
}

// FindVictim returns the way to fill next. An invalid way is always used
// first, lowest index winning. Otherwise it scans the ways in order and
// keeps the latest one whose age reaches the running maximum. The aging
// rule keeps ages of valid lines distinct, so the scan direction is not
// observable through eviction decisions.
func (e *AgeVictimFinder) FindVictim(set *Set) int {
	victim := 0
	maxAge := uint64(0)

	for i, line := range set.Lines {
		if !line.Valid {
			return i
		}

		if line.Age >= maxAge {
			maxAge = line.Age
			victim = i
		}
	}

	return victim
}
