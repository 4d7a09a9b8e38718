package ports

import (
	"context"
	"time"
)

// Metrics records scoring outcomes. Implementations must be safe for concurrent use.
type Metrics interface {
	RecordTrustScore(ctx context.Context, total int, incomplete bool, elapsed time.Duration)
	RecordFetchFailure(ctx context.Context, source string)
	RecordScorePersisted(ctx context.Context)
}
