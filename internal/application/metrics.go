package application

import (
	"context"
	"time"
)

type noopMetrics struct{}

func (noopMetrics) RecordTrustScore(context.Context, int, bool, time.Duration) {}

func (noopMetrics) RecordFetchFailure(context.Context, string) {}

func (noopMetrics) RecordScorePersisted(context.Context) {}
