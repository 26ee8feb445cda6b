package metrics

import (
	"sync"
	"time"

	"github.com/EmilyMartinsDev/Coachpro-app-sub000/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sampler периодически переносит значения из функций чтения в gauge.
// Рантайм Go покрывают collectors.NewGoCollector и NewProcessCollector,
// здесь только состояние самого сервиса.
type Sampler struct {
	log    *logger.Logger
	mu     sync.Mutex
	sources []sampled

	stopCh   chan struct{}
	stopOnce sync.Once
}

type sampled struct {
	gauge prometheus.Gauge
	read  func() float64
}

// NewSampler создает пустой сэмплер
func NewSampler(log *logger.Logger) *Sampler {
	return &Sampler{log: log, stopCh: make(chan struct{})}
}

// Gauge регистрирует gauge name, который обновляется значением read
func (s *Sampler) Gauge(registry prometheus.Registerer, name, help string, read func() float64) {
	g := promauto.With(registry).NewGauge(prometheus.GaugeOpts{Name: name, Help: help})

	s.mu.Lock()
	s.sources = append(s.sources, sampled{gauge: g, read: read})
	s.mu.Unlock()
}

// Sample обновляет все gauge один раз
func (s *Sampler) Sample() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, src := range s.sources {
		src.gauge.Set(src.read())
	}
}

// Start запускает обновление с интервалом до вызова Stop
func (s *Sampler) Start(interval time.Duration) {
	s.Sample()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sample()
			case <-s.stopCh:
				return
			}
		}
	}()
	s.log.Infow("Metrics sampler started", "interval", interval)
}

// Stop останавливает обновление. Повторный вызов ничего не делает.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		s.log.Info("Metrics sampler stopped")
	})
}
