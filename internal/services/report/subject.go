package report

import (
	"go.uber.org/zap"

	"github.com/vshulcz/Viewpulse/internal/logging"
	"github.com/vshulcz/Viewpulse/pkg/observer"
)

// Observer receives cycle reports.
type Observer = observer.Observer[Event]

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc = observer.ObserverFunc[Event]

// Publisher broadcasts cycle reports.
type Publisher = observer.Publisher[Event]

// Subject fans reports out to named observers.
type Subject = observer.Subject[Event]

// NewSubject returns a subject that logs observer failures and carries on.
func NewSubject(log *zap.Logger) *Subject {
	log = logging.OrNop(log)
	s := observer.NewSubject[Event]()
	s.SetErrorHandler(func(name string, err error) {
		log.Warn("report observer failed", zap.String("observer", name), zap.Error(err))
	})
	return s
}
