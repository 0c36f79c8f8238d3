// Пакет index — потокобезопасный инвертированный in-memory индекс архивов.
//
// Ключи индекса: "name:<token>", "category:<name>", "tag:<tag>", "id:<id>".
// Значение ключа — множество id архивов. Индекс хранит только id,
// сами записи принадлежат хранилищу архивов.
//
// Пустые множества удаляются сразу, поэтому память индекса ограничена
// числом живых записей.
package index

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
)

// Префиксы ключей.
const (
	PrefixName     = "name:"
	PrefixCategory = "category:"
	PrefixTag      = "tag:"
	PrefixID       = "id:"
)

// Entry — индексируемые поля архива.
type Entry struct {
	ID       string
	Name     string
	Category string
	Tags     []string
}

// Index — инвертированный индекс. Использует sync.RWMutex для
// конкурентного чтения и эксклюзивной записи.
type Index struct {
	mu      sync.RWMutex
	buckets map[string]map[string]struct{} // key → множество id
	keysOf  map[string][]string            // id → ключи, в которых он лежит
	seq     map[string]uint64              // id → порядковый номер добавления
	nextSeq uint64
	logger  *slog.Logger
}

// New создаёт пустой индекс.
func New(logger *slog.Logger) *Index {
	return &Index{
		buckets: make(map[string]map[string]struct{}),
		keysOf:  make(map[string][]string),
		seq:     make(map[string]uint64),
		logger:  logger.With(slog.String("component", "index")),
	}
}

// KeysForEntry возвращает ключи, под которыми будет проиндексирована запись.
// Имя разбивается по пробельным символам, все части приводятся к нижнему регистру.
func KeysForEntry(e Entry) []string {
	seen := make(map[string]struct{})
	var keys []string
	add := func(k string) {
		if _, ok := seen[k]; ok {
			return
		}
		seen[k] = struct{}{}
		keys = append(keys, k)
	}

	for _, token := range strings.Fields(strings.ToLower(e.Name)) {
		add(PrefixName + token)
	}
	if e.Category != "" {
		add(PrefixCategory + strings.ToLower(e.Category))
	}
	for _, tag := range e.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag != "" {
			add(PrefixTag + tag)
		}
	}
	add(PrefixID + e.ID)
	return keys
}

// Add индексирует запись. Повторное добавление того же id
// сначала удаляет его прежние ключи.
func (idx *Index) Add(e Entry) {
	keys := KeysForEntry(e)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.keysOf[e.ID]; ok {
		idx.removeLocked(e.ID)
	}
	for _, k := range keys {
		set, ok := idx.buckets[k]
		if !ok {
			set = make(map[string]struct{})
			idx.buckets[k] = set
		}
		set[e.ID] = struct{}{}
	}
	idx.keysOf[e.ID] = keys
	idx.nextSeq++
	idx.seq[e.ID] = idx.nextSeq
}

// Remove удаляет id из всех ключей и удаляет опустевшие ключи.
// Возвращает true, если id был в индексе.
func (idx *Index) Remove(id string) bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.keysOf[id]; !ok {
		return false
	}
	idx.removeLocked(id)
	return true
}

// removeLocked вызывается под idx.mu.Lock.
func (idx *Index) removeLocked(id string) {
	for _, k := range idx.keysOf[id] {
		set := idx.buckets[k]
		delete(set, id)
		if len(set) == 0 {
			delete(idx.buckets, k)
		}
	}
	delete(idx.keysOf, id)
	delete(idx.seq, id)
}

// Candidates возвращает объединение id всех ключей, содержащих
// query (в нижнем регистре) как подстроку. Результат упорядочен
// по порядку добавления записей в индекс.
func (idx *Index) Candidates(query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))

	idx.mu.RLock()
	found := make(map[string]uint64)
	for k, set := range idx.buckets {
		if !strings.Contains(k, q) {
			continue
		}
		for id := range set {
			found[id] = idx.seq[id]
		}
	}
	idx.mu.RUnlock()

	ids := make([]string, 0, len(found))
	for id := range found {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return found[ids[i]] < found[ids[j]]
	})
	return ids
}

// Bucket возвращает копию множества id ключа (отсортированную).
func (idx *Index) Bucket(key string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	set := idx.buckets[key]
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Keys возвращает отсортированный список всех ключей индекса.
func (idx *Index) Keys() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	keys := make([]string, 0, len(idx.buckets))
	for k := range idx.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Contains проверяет, проиндексирован ли id.
func (idx *Index) Contains(id string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.keysOf[id]
	return ok
}

// Count возвращает число проиндексированных записей.
func (idx *Index) Count() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.keysOf)
}

// KeyCount возвращает число ключей индекса.
func (idx *Index) KeyCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.buckets)
}

// Reset очищает индекс.
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	n := len(idx.keysOf)
	idx.buckets = make(map[string]map[string]struct{})
	idx.keysOf = make(map[string][]string)
	idx.seq = make(map[string]uint64)

	idx.logger.Debug("Индекс очищен", slog.Int("entries", n))
}
