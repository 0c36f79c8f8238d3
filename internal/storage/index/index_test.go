package index

import (
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
)

// testLogger возвращает логгер для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// TestNew проверяет создание пустого индекса.
func TestNew(t *testing.T) {
	idx := New(testLogger())

	if idx.Count() != 0 {
		t.Errorf("ожидалось 0 записей, получено %d", idx.Count())
	}
	if idx.KeyCount() != 0 {
		t.Errorf("ожидалось 0 ключей, получено %d", idx.KeyCount())
	}
}

// TestKeysForEntry проверяет формирование ключей.
func TestKeysForEntry(t *testing.T) {
	got := KeysForEntry(Entry{
		ID:       "a1",
		Name:     "Quarterly  Report report",
		Category: "PROJECT",
		Tags:     []string{"Q1", " q1 ", ""},
	})
	want := []string{
		"name:quarterly",
		"name:report",
		"category:project",
		"tag:q1",
		"id:a1",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ключи: ожидалось %v, получено %v", want, got)
	}
}

// TestAdd проверяет добавление записи во все ключи.
func TestAdd(t *testing.T) {
	idx := New(testLogger())
	idx.Add(Entry{ID: "a1", Name: "invoice_jan", Category: "FINANCIAL", Tags: []string{"2026"}})

	for _, key := range []string{"name:invoice_jan", "category:financial", "tag:2026", "id:a1"} {
		if got := idx.Bucket(key); !reflect.DeepEqual(got, []string{"a1"}) {
			t.Errorf("ключ %s: ожидалось [a1], получено %v", key, got)
		}
	}
	if !idx.Contains("a1") {
		t.Error("a1 должен быть в индексе")
	}
}

// TestAdd_Reindex проверяет, что повторное добавление заменяет старые ключи.
func TestAdd_Reindex(t *testing.T) {
	idx := New(testLogger())
	idx.Add(Entry{ID: "a1", Name: "old", Category: "HR"})
	idx.Add(Entry{ID: "a1", Name: "new", Category: "HR"})

	if len(idx.Bucket("name:old")) != 0 {
		t.Error("старый ключ name:old должен быть удалён")
	}
	if idx.Count() != 1 {
		t.Errorf("ожидалась 1 запись, получено %d", idx.Count())
	}
}

// TestRemove проверяет очистку всех ключей и удаление пустых.
func TestRemove(t *testing.T) {
	idx := New(testLogger())
	idx.Add(Entry{ID: "a1", Name: "invoice", Category: "FINANCIAL", Tags: []string{"x"}})
	idx.Add(Entry{ID: "a2", Name: "invoice", Category: "FINANCIAL"})

	if !idx.Remove("a1") {
		t.Fatal("Remove(a1) должен вернуть true")
	}

	for _, key := range idx.Keys() {
		for _, id := range idx.Bucket(key) {
			if id == "a1" {
				t.Errorf("a1 остался в ключе %s", key)
			}
		}
	}
	for _, key := range []string{"tag:x", "id:a1"} {
		for _, k := range idx.Keys() {
			if k == key {
				t.Errorf("пустой ключ %s должен быть удалён", key)
			}
		}
	}
	if got := idx.Bucket("name:invoice"); !reflect.DeepEqual(got, []string{"a2"}) {
		t.Errorf("name:invoice: ожидалось [a2], получено %v", got)
	}
}

// TestRemove_NotFound проверяет удаление отсутствующего id.
func TestRemove_NotFound(t *testing.T) {
	idx := New(testLogger())
	if idx.Remove("missing") {
		t.Error("Remove несуществующего id должен вернуть false")
	}
}

// TestRemove_All проверяет, что после удаления всех записей индекс пуст.
func TestRemove_All(t *testing.T) {
	idx := New(testLogger())
	for i := range 10 {
		idx.Add(Entry{ID: fmt.Sprintf("id-%d", i), Name: "doc shared", Category: "TECHNICAL", Tags: []string{"t"}})
	}
	for i := range 10 {
		idx.Remove(fmt.Sprintf("id-%d", i))
	}
	if idx.KeyCount() != 0 {
		t.Errorf("после удаления всех записей осталось %d ключей: %v", idx.KeyCount(), idx.Keys())
	}
}

// TestCandidates проверяет подстрочный поиск по ключам.
func TestCandidates(t *testing.T) {
	idx := New(testLogger())
	idx.Add(Entry{ID: "a1", Name: "invoice_jan", Category: "FINANCIAL"})
	idx.Add(Entry{ID: "a2", Name: "invoice_feb", Category: "FINANCIAL"})
	idx.Add(Entry{ID: "a3", Name: "report_q1", Category: "PROJECT"})

	tests := []struct {
		query string
		want  []string
	}{
		{"invoice", []string{"a1", "a2"}},
		{"INVOICE", []string{"a1", "a2"}},
		{"financial", []string{"a1", "a2"}},
		{"q1", []string{"a3"}},
		{"id:a3", []string{"a3"}},
		{"nothing", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := idx.Candidates(tt.query)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Candidates(%q): ожидалось %v, получено %v", tt.query, tt.want, got)
			}
		})
	}
}

// TestCandidates_InsertionOrder проверяет порядок обнаружения.
func TestCandidates_InsertionOrder(t *testing.T) {
	idx := New(testLogger())
	ids := []string{"z", "m", "a", "q"}
	for _, id := range ids {
		idx.Add(Entry{ID: id, Name: "common"})
	}
	got := idx.Candidates("common")
	if !reflect.DeepEqual(got, ids) {
		t.Errorf("ожидался порядок добавления %v, получено %v", ids, got)
	}
}

// TestReset проверяет очистку индекса.
func TestReset(t *testing.T) {
	idx := New(testLogger())
	idx.Add(Entry{ID: "a1", Name: "x"})
	idx.Reset()
	if idx.Count() != 0 || idx.KeyCount() != 0 {
		t.Error("индекс должен быть пуст после Reset")
	}
}

// TestConcurrentAccess проверяет потокобезопасность индекса.
// Запускать с go test -race для обнаружения data races.
func TestConcurrentAccess(t *testing.T) {
	idx := New(testLogger())

	for i := range 10 {
		idx.Add(Entry{ID: fmt.Sprintf("init-%d", i), Name: "init doc", Category: "HR"})
	}

	var wg sync.WaitGroup
	const goroutines = 50
	wg.Add(goroutines * 2)

	for range goroutines {
		go func() {
			defer wg.Done()
			for range 50 {
				idx.Candidates("doc")
				idx.Keys()
				idx.Count()
			}
		}()
	}

	for i := range goroutines {
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("concurrent-%d", n)
			idx.Add(Entry{ID: id, Name: "concurrent doc", Tags: []string{"t"}})
			idx.Candidates(id)
			idx.Remove(id)
		}(i)
	}

	wg.Wait()

	if idx.Count() != 10 {
		t.Errorf("ожидалось 10 записей, получено %d", idx.Count())
	}
	for _, k := range idx.Keys() {
		if strings.HasPrefix(k, "id:concurrent-") {
			t.Errorf("ключ %s должен быть удалён", k)
		}
	}
}
