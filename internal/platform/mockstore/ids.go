package mockstore

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDPrefix marks ids minted by the mock store.
const IDPrefix = "mock-"

// NewID returns "mock-<unix millis>-<9 random hex chars>". The random suffix
// keeps ids minted within the same millisecond apart.
func NewID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return IDPrefix + strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + suffix
}

// IsMockID reports whether id was minted by NewID.
func IsMockID(id string) bool {
	return strings.HasPrefix(id, IDPrefix)
}
