// Package prometheus is a minimal stand-in for analyzer tests.
package prometheus

type Collector interface{}

type Registerer interface {
	MustRegister(...Collector)
}

type Gatherer interface{}

type Registry struct{}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) MustRegister(...Collector) {}

func (r *Registry) Register(Collector) error { return nil }

var (
	DefaultRegisterer Registerer = NewRegistry()
	DefaultGatherer   Gatherer   = NewRegistry()
)

func MustRegister(...Collector) {}

func Register(Collector) error { return nil }

func Unregister(Collector) bool { return true }

type Counter struct{}

func NewCounter() *Counter { return &Counter{} }
