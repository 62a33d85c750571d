package esodm

import (
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/esodm/internal/metrics"
)

// observer provides logging and metrics for engine calls.
type observer struct {
	logger  *zap.Logger
	metrics *metrics.Engine
}

func newObserver(logger *zap.Logger, m *metrics.Engine) *observer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &observer{logger: logger, metrics: m}
}

func (o *observer) observe(op string, start time.Time, err error) {
	dur := time.Since(start)
	o.metrics.ObserveRequest(op, dur, err)

	if err != nil {
		o.logger.Warn("engine call failed",
			zap.String("op", op),
			zap.Duration("duration", dur),
			zap.Error(err),
		)
		return
	}
	o.logger.Debug("engine call completed",
		zap.String("op", op),
		zap.Duration("duration", dur),
	)
}

func (o *observer) mappingBuilt(typeName string, err error) {
	o.metrics.ObserveMappingBuild(err)
	if err != nil {
		o.logger.Warn("mapping build failed", zap.String("type", typeName), zap.Error(err))
	}
}
