package checkout

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// NewOrderID returns ORD-<unix millis>-<9 upper-case base36 chars>.
func NewOrderID(now time.Time) string {
	id := uuid.New()
	n := binary.BigEndian.Uint64(id[:8])
	suffix := strings.ToUpper(strconv.FormatUint(n, 36))
	if len(suffix) < 9 {
		suffix = strings.Repeat("0", 9-len(suffix)) + suffix
	}
	return fmt.Sprintf("ORD-%d-%s", now.UnixMilli(), suffix[len(suffix)-9:])
}
