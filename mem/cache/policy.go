package cache

import "fmt"

// Policy selects the replacement policy of a cache.
type Policy int

const (
	// PolicyFIFO evicts the line that was installed earliest. Hits do not
	// refresh insertion order.
	PolicyFIFO Policy = iota

	// PolicyLRU evicts the line that has gone longest without being
	// accessed.
	PolicyLRU
)

// ParsePolicy converts a policy token from the command line into a Policy.
func ParsePolicy(token string) (Policy, error) {
	switch token {
	case "fifo":
		return PolicyFIFO, nil
	case "lru":
		return PolicyLRU, nil
	default:
		return 0, fmt.Errorf("unknown replacement policy %q", token)
	}
}

func (p Policy) String() string {
	switch p {
	case PolicyFIFO:
		return "fifo"
	case PolicyLRU:
		return "lru"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}
