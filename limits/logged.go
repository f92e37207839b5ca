package limits

import (
	"context"

	"go.uber.org/zap"
)

type logged struct {
	next Limiter
	log  *zap.Logger
}

// Logged wraps l and logs every decision at debug level, denials at info.
// A nil logger uses the package logger.
func Logged(l Limiter, log *zap.Logger) Limiter {
	if log == nil {
		log = Logger()
	}
	return &logged{next: l, log: log}
}

func (l *logged) MemoryGrowing(ctx context.Context, current, desired uint64, maximum *uint64) (bool, error) {
	ok, err := l.next.MemoryGrowing(ctx, current, desired, maximum)
	l.report("memory", ok, err, current, desired, maximum)
	return ok, err
}

func (l *logged) TableGrowing(ctx context.Context, current, desired uint32, maximum *uint32) (bool, error) {
	ok, err := l.next.TableGrowing(ctx, current, desired, maximum)
	var maxp *uint64
	if maximum != nil {
		m := uint64(*maximum)
		maxp = &m
	}
	l.report("table", ok, err, uint64(current), uint64(desired), maxp)
	return ok, err
}

func (l *logged) report(what string, ok bool, err error, current, desired uint64, maximum *uint64) {
	fields := []zap.Field{
		zap.String("resource", what),
		zap.Uint64("current", current),
		zap.Uint64("desired", desired),
	}
	if maximum != nil {
		fields = append(fields, zap.Uint64("maximum", *maximum))
	}
	switch {
	case err != nil:
		l.log.Info("growth denied", append(fields, zap.Error(err))...)
	case !ok:
		l.log.Info("growth denied", fields...)
	default:
		l.log.Debug("growth allowed", fields...)
	}
}
