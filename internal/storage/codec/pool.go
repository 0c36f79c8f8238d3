// pool.go — ограниченный пул для CPU-ёмких операций кодека.
// Сжатие и распаковка выполняются вне блокировок хранилища;
// пул ограничивает их параллелизм числом слотов.
package codec

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/semaphore"
)

// codecDuration — длительность операций кодека.
var codecDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "da_codec_duration_seconds",
	Help:    "Длительность сжатия и распаковки в секундах",
	Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
}, []string{"op"})

// Pool — пул слотов для сжатия и распаковки.
type Pool struct {
	sem         *semaphore.Weighted
	workers     int
	waitTimeout time.Duration
}

// NewPool создаёт пул на workers слотов (<=0 — GOMAXPROCS).
// waitTimeout ограничивает ожидание свободного слота (0 — без ограничения).
func NewPool(workers int, waitTimeout time.Duration) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{
		sem:         semaphore.NewWeighted(int64(workers)),
		workers:     workers,
		waitTimeout: waitTimeout,
	}
}

// Workers возвращает число слотов пула.
func (p *Pool) Workers() int {
	return p.workers
}

// Compress выполняет Compress в слоте пула.
func (p *Pool) Compress(ctx context.Context, payload []byte, mediaType string, size int64) (*Result, error) {
	var res *Result
	err := p.do(ctx, "compress", func() error {
		var err error
		res, err = Compress(payload, mediaType, size)
		return err
	})
	return res, err
}

// Decompress выполняет Decompress в слоте пула.
func (p *Pool) Decompress(ctx context.Context, payload []byte) ([]byte, error) {
	var data []byte
	err := p.do(ctx, "decompress", func() error {
		var err error
		data, err = Decompress(payload)
		return err
	})
	return data, err
}

// do захватывает слот и выполняет fn до конца. Отмена ctx влияет
// только на ожидание слота, начатая операция не прерывается.
func (p *Pool) do(ctx context.Context, op string, fn func() error) error {
	if p.waitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.waitTimeout)
		defer cancel()
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("нет свободного слота кодека (%s): %w", op, err)
	}
	defer p.sem.Release(1)

	start := time.Now()
	err := fn()
	codecDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	return err
}
