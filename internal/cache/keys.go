package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func JobStatusKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s", jobID)
}

func JobSnapshotKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job:%s:snapshot", jobID)
}

// RateLimitKey buckets requests from one caller into a fixed window.
func RateLimitKey(caller string, window int64) string {
	return fmt.Sprintf("ratelimit:%s:%d", caller, window)
}
