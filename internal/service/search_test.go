package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/bigkaa/docarchive/internal/domain/model"
)

func TestSearch_InvoiceScenario(t *testing.T) {
	store, _ := setupStore(t)
	jan := ingest(t, store, model.Document{Name: "invoice_jan", Content: []byte("x")})
	feb := ingest(t, store, model.Document{Name: "invoice_feb", Content: []byte("x")})
	ingest(t, store, model.Document{Name: "report_q1", Content: []byte("x")})

	svc := NewSearchService(store, testLogger())
	hits := svc.Search("invoice", SearchFilters{})

	if len(hits) != 2 {
		t.Fatalf("ожидалось 2 результата, получено %d: %+v", len(hits), hits)
	}
	if hits[0].ArchiveID != jan.ID || hits[1].ArchiveID != feb.ID {
		t.Errorf("ожидался порядок invoice_jan, invoice_feb; получено %s, %s", hits[0].Name, hits[1].Name)
	}
	// 50 (подстрока) + 20 (FINANCIAL high) + 20 (свежая)
	if hits[0].Relevance != 90 {
		t.Errorf("Relevance: ожидалось 90, получено %d", hits[0].Relevance)
	}
	if hits[0].Category != "FINANCIAL" || hits[0].Icon == "" {
		t.Errorf("неверная категория результата: %+v", hits[0])
	}
}

func TestSearch_OrderedByRelevance(t *testing.T) {
	store, clock := setupStore(t)
	ingest(t, store, model.Document{Name: "old report", Content: []byte("x")})
	clock.Advance(100 * 24 * time.Hour)
	ingest(t, store, model.Document{Name: "report", Content: []byte("x")})
	ingest(t, store, model.Document{Name: "nda report", Content: []byte("contract")})

	hits := NewSearchService(store, testLogger()).Search("report", SearchFilters{})
	if len(hits) != 3 {
		t.Fatalf("ожидалось 3 результата, получено %d", len(hits))
	}
	if hits[0].Name != "report" {
		t.Errorf("точное совпадение должно быть первым, получено %q", hits[0].Name)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i-1].Relevance < hits[i].Relevance {
			t.Errorf("нарушен порядок: %d < %d", hits[i-1].Relevance, hits[i].Relevance)
		}
	}
}

func TestSearch_Cap(t *testing.T) {
	store, _ := setupStore(t)
	for i := range 120 {
		ingest(t, store, model.Document{Name: fmt.Sprintf("doc %d", i), Content: []byte("x")})
	}
	svc := NewSearchService(store, testLogger())

	if hits := svc.Search("doc", SearchFilters{}); len(hits) != MaxSearchResults {
		t.Errorf("ожидалось %d результатов, получено %d", MaxSearchResults, len(hits))
	}
	if hits := svc.Search("doc", SearchFilters{Limit: 1000}); len(hits) != MaxSearchResults {
		t.Errorf("Limit не может превышать %d, получено %d", MaxSearchResults, len(hits))
	}
	if hits := svc.Search("doc", SearchFilters{Limit: 5}); len(hits) != 5 {
		t.Errorf("Limit 5: получено %d", len(hits))
	}
}

func TestSearch_Filters(t *testing.T) {
	store, clock := setupStore(t)
	small := ingest(t, store, model.Document{Name: "invoice small", Content: []byte("abc")})
	clock.Advance(48 * time.Hour)
	big := ingest(t, store, model.Document{Name: "invoice big", Content: make([]byte, 5000)})
	ingest(t, store, model.Document{Name: "invoice nda", Content: []byte("contract nda clause")})

	svc := NewSearchService(store, testLogger())

	minSize := int64(1000)
	hits := svc.Search("invoice", SearchFilters{MinSize: &minSize})
	if len(hits) != 1 || hits[0].ArchiveID != big.ID {
		t.Errorf("MinSize: ожидался только big, получено %+v", hits)
	}

	maxSize := int64(3)
	hits = svc.Search("invoice", SearchFilters{MaxSize: &maxSize})
	if len(hits) != 1 || hits[0].ArchiveID != small.ID {
		t.Errorf("MaxSize: ожидался только small, получено %+v", hits)
	}

	end := small.Metadata.CreatedAt.Add(time.Hour)
	hits = svc.Search("invoice", SearchFilters{EndDate: &end})
	if len(hits) != 1 || hits[0].ArchiveID != small.ID {
		t.Errorf("EndDate: ожидался только small, получено %+v", hits)
	}

	startDate := big.Metadata.CreatedAt
	hits = svc.Search("invoice", SearchFilters{StartDate: &startDate})
	if len(hits) != 2 {
		t.Errorf("StartDate включительно: ожидалось 2, получено %d", len(hits))
	}

	hits = svc.Search("invoice", SearchFilters{Category: "legal"})
	if len(hits) != 1 || hits[0].Category != "LEGAL" {
		t.Errorf("Category: ожидался один LEGAL, получено %+v", hits)
	}
}

func TestSearch_MatchesTagsAndCategory(t *testing.T) {
	store, _ := setupStore(t)
	a := ingest(t, store, model.Document{Name: "scan-001", Content: []byte("x"), Tags: []string{"Quarterly"}})

	svc := NewSearchService(store, testLogger())
	if hits := svc.Search("quarter", SearchFilters{}); len(hits) != 1 || hits[0].ArchiveID != a.ID {
		t.Errorf("поиск по тегу: получено %+v", hits)
	}
	if hits := svc.Search("uncategorized", SearchFilters{}); len(hits) != 1 {
		t.Errorf("поиск по категории: получено %+v", hits)
	}
}

func TestSearch_NeverReturnsDeleted(t *testing.T) {
	store, _ := setupStore(t)
	a := ingest(t, store, model.Document{Name: "invoice one", Content: []byte("x")})
	b := ingest(t, store, model.Document{Name: "invoice two", Content: []byte("x")})

	if _, err := store.Delete(a.ID, ""); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	hits := NewSearchService(store, testLogger()).Search("invoice", SearchFilters{})
	if len(hits) != 1 || hits[0].ArchiveID != b.ID {
		t.Errorf("удалённый архив не должен находиться: %+v", hits)
	}
}
