// Пакет activity — журнал активности архива ограниченного размера.
//
// Журнал построен на hashicorp/golang-lru/v2: ключ — монотонный
// порядковый номер записи, чтение идёт через Peek, поэтому порядок
// вытеснения совпадает с порядком добавления (старые записи первыми).
package activity

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bigkaa/docarchive/internal/domain/model"
)

// DefaultCapacity — ёмкость журнала по умолчанию.
const DefaultCapacity = 1000

// Log — потокобезопасный журнал активности.
type Log struct {
	mu    sync.Mutex
	cache *lru.Cache[uint64, model.Activity]
	seq   uint64
	now   func() time.Time
}

// New создаёт журнал на capacity записей (<=0 — DefaultCapacity).
func New(capacity int) (*Log, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	cache, err := lru.New[uint64, model.Activity](capacity)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания журнала активности: %w", err)
	}
	return &Log{
		cache: cache,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetClock подменяет источник времени.
func (l *Log) SetClock(now func() time.Time) {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
}

// Append добавляет запись. Seq и Timestamp (если не задан) заполняются журналом.
func (l *Log) Append(a model.Activity) model.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	a.Seq = l.seq
	if a.Timestamp.IsZero() {
		a.Timestamp = l.now()
	}
	l.cache.Add(a.Seq, a)
	return a
}

// Recent возвращает до n последних записей, новые первыми.
// n <= 0 — все записи.
func (l *Log) Recent(n int) []model.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()

	keys := l.cache.Keys()
	if n <= 0 || n > len(keys) {
		n = len(keys)
	}
	out := make([]model.Activity, 0, n)
	for i := len(keys) - 1; i >= 0 && len(out) < n; i-- {
		if a, ok := l.cache.Peek(keys[i]); ok {
			out = append(out, a)
		}
	}
	return out
}

// Len возвращает текущее число записей.
func (l *Log) Len() int {
	return l.cache.Len()
}

// Total возвращает число записей, добавленных за всё время (включая вытесненные).
func (l *Log) Total() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.seq
}
