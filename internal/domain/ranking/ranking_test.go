package ranking

import (
	"testing"
	"time"

	"github.com/bigkaa/docarchive/internal/domain/model"
)

func TestNameScore(t *testing.T) {
	tests := []struct {
		query, name string
		want        int
	}{
		{"invoice_jan", "Invoice_Jan", 100},
		{"invoice", "invoice_jan", 50},
		{"INVOICE", "invoice_feb", 50},
		{"annual report", "report 2025 annual", 20},
		{"report report", "report q1", 10},
		{"budget", "report_q1", 0},
		{"", "anything", 0},
	}
	for _, tt := range tests {
		if got := NameScore(tt.query, tt.name); got != tt.want {
			t.Errorf("NameScore(%q, %q): ожидалось %d, получено %d", tt.query, tt.name, tt.want, got)
		}
	}
}

func TestPriorityBonus(t *testing.T) {
	want := map[model.Priority]int{
		model.PriorityCritical: 30,
		model.PriorityHigh:     20,
		model.PriorityMedium:   10,
		model.PriorityLow:      0,
		"unknown":              0,
	}
	for p, w := range want {
		if got := PriorityBonus(p); got != w {
			t.Errorf("PriorityBonus(%s): ожидалось %d, получено %d", p, w, got)
		}
	}
}

func TestRecencyBonus(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	tests := []struct {
		age  time.Duration
		want int
	}{
		{0, 20},
		{29 * day, 20},
		{30 * day, 10},
		{89 * day, 10},
		{90 * day, 0},
		{400 * day, 0},
	}
	for _, tt := range tests {
		if got := RecencyBonus(now.Add(-tt.age), now); got != tt.want {
			t.Errorf("возраст %v: ожидалось %d, получено %d", tt.age, tt.want, got)
		}
	}
}

func TestRelevance(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	c := Candidate{Name: "invoice_jan", Priority: model.PriorityHigh, CreatedAt: now.Add(-time.Hour)}

	// 50 (подстрока) + 20 (high) + 20 (свежая)
	if got := Relevance("invoice", c, now); got != 90 {
		t.Errorf("ожидалось 90, получено %d", got)
	}
}
