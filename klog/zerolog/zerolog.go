// Package zerolog adapts klog.Logger onto github.com/joeycumines/logiface,
// using the izerolog backend (github.com/rs/zerolog) as the concrete
// writer. Boards that want production-grade structured output install this
// instead of the in-kernel no-op default.
package zerolog

import (
	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
	zlog "github.com/rs/zerolog"

	"github.com/tock/tock-sub011/klog"
)

// Adapter satisfies klog.Logger by forwarding entries to a
// logiface.Logger[*izerolog.Event] backed by a zerolog.Logger.
type Adapter struct {
	logger *logiface.Logger[*izerolog.Event]
}

// New builds an Adapter writing through zl.
func New(zl zlog.Logger) *Adapter {
	l := izerolog.L.New(
		izerolog.L.WithZerolog(zl),
		izerolog.L.WithLevel(logiface.LevelTrace),
	)
	return &Adapter{logger: l}
}

// Log implements klog.Logger.
func (a *Adapter) Log(e klog.Entry) {
	b := a.logger.Build(toLogifaceLevel(e.Level))
	if b == nil {
		return
	}
	for _, f := range e.Fields {
		b = b.Any(f.Key, f.Value)
	}
	b.Log(e.Message)
}

func toLogifaceLevel(l klog.Level) logiface.Level {
	switch l {
	case klog.LevelDebug:
		return logiface.LevelDebug
	case klog.LevelInfo:
		return logiface.LevelInformational
	case klog.LevelWarn:
		return logiface.LevelWarning
	case klog.LevelError:
		return logiface.LevelError
	default:
		return logiface.LevelInformational
	}
}
