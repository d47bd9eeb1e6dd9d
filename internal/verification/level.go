package verification

import (
	"strings"

	dErrors "worktrust/pkg/domain-errors"
)

// Level is the discrete trust grade assigned to a record.
type Level string

const (
	LevelSelfReported            Level = "SELF_REPORTED"
	LevelPlatformConnected       Level = "PLATFORM_CONNECTED"
	LevelPlatformVerified        Level = "PLATFORM_VERIFIED"
	LevelCryptographicallySealed Level = "CRYPTOGRAPHICALLY_SEALED"
)

// levelOrder is the total order over levels. Comparisons go through this
// table, never through declaration order.
var levelOrder = map[Level]int{
	LevelSelfReported:            0,
	LevelPlatformConnected:       1,
	LevelPlatformVerified:        2,
	LevelCryptographicallySealed: 3,
}

// ParseLevel accepts the canonical upper-case names, case-insensitively.
func ParseLevel(s string) (Level, error) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	if !l.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid verification level: "+s)
	}
	return l, nil
}

func (l Level) IsValid() bool {
	_, ok := levelOrder[l]
	return ok
}

func (l Level) String() string { return string(l) }

// Rank returns the position of l in the total order; unknown levels rank -1.
func (l Level) Rank() int {
	r, ok := levelOrder[l]
	if !ok {
		return -1
	}
	return r
}

// AtLeast reports whether l is the same as or stronger than other.
func (l Level) AtLeast(other Level) bool {
	return l.Rank() >= other.Rank()
}
