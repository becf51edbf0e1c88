package a

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func scoped() {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter())
	_ = reg.Register(prometheus.NewCounter())
	_ = promauto.With(reg).NewCounter()
}

func global() {
	prometheus.MustRegister(prometheus.NewCounter()) // want "prometheus.MustRegister registers globally"
	_ = prometheus.Register(prometheus.NewCounter()) // want "prometheus.Register registers globally"
	_ = promauto.NewCounter()                        // want "promauto.NewCounter registers globally"
	_ = prometheus.DefaultGatherer                   // want "prometheus.DefaultGatherer is the global registry"
	promauto.With(prometheus.DefaultRegisterer)      // want "prometheus.DefaultRegisterer is the global registry"
}
