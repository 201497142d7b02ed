package lifecycle

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TrackingPrefix prefijo de los códigos de tracking.
const TrackingPrefix = "RMA"

// NewTrackingCode genera RMA-<ms base36>-<6 hex>. Es orientativo, no una clave
// única: la colisión es improbable pero posible.
func NewTrackingCode(now time.Time) string {
	ts := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return TrackingPrefix + "-" + ts + "-" + suffix
}
