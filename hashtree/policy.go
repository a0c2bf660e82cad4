package hashtree

import (
	"fmt"
	"strings"
)

// Policy selects how the tree copes with other writers of the same metadata
// object. It is fixed when the tree is created.
type Policy int

const (
	// PolicyNone assumes there are no other writers. Nothing is reused
	// between operations.
	PolicyNone Policy = iota
	// PolicyClient assumes this process is the only writer. Nodes are cached
	// across operations and writes are only persisted by Flush.
	PolicyClient
	// PolicyLocks assumes writers are serialised by an external lock. The
	// root is reloaded and verified at the start of every operation.
	PolicyLocks
	// PolicyPartialCOW behaves as PolicyLocks and additionally re-checks the
	// root before committing, replanning if another writer got in first.
	PolicyPartialCOW
	// PolicyCOW is PolicyPartialCOW for files whose objects are versioned
	// per leaf.
	PolicyCOW
)

var policyNames = map[Policy]string{
	PolicyNone:       "none",
	PolicyClient:     "client",
	PolicyLocks:      "locks",
	PolicyPartialCOW: "partial-cow",
	PolicyCOW:        "cow",
}

func (p Policy) String() string {
	if name, ok := policyNames[p]; ok {
		return name
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts the policy names used by the file system mount options.
// "serialize" only adds a caller side lock, the tree treats it as "locks".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return PolicyNone, nil
	case "client":
		return PolicyClient, nil
	case "locks", "serialize":
		return PolicyLocks, nil
	case "partial-cow":
		return PolicyPartialCOW, nil
	case "cow":
		return PolicyCOW, nil
	}
	return PolicyNone, fmt.Errorf("%w: %q", ErrPolicyNotKnown, s)
}

func (p *Policy) UnmarshalText(text []byte) error {
	v, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}
