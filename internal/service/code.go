package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CodeGenerator produces a candidate ticket code for an event.
type CodeGenerator func(eventID string, now time.Time) string

// NewTicketCode builds "<event id prefix>-<random>-<timestamp>", e.g.
// "3f2a9c1e-7b41d0aa-LZ3K8Q2M". Collisions are unlikely but possible; the
// unique constraint on ticket_code is the real guarantee.
func NewTicketCode(eventID string, now time.Time) string {
	prefix := eventID
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	stamp := strings.ToUpper(strconv.FormatInt(now.UnixMilli(), 36))
	return fmt.Sprintf("%s-%s-%s", prefix, random, stamp)
}
