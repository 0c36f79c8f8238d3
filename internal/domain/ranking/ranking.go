// Пакет ranking — функция релевантности результатов поиска.
//
// Relevance — чистая функция: результат зависит только от аргументов.
package ranking

import (
	"strings"
	"time"

	"github.com/bigkaa/docarchive/internal/domain/model"
)

// Веса совпадения имени.
const (
	exactNameScore     = 100
	substringNameScore = 50
	tokenOverlapScore  = 10
)

// Бонус за свежесть.
const (
	freshAge    = 30 * 24 * time.Hour
	freshBonus  = 20
	recentAge   = 90 * 24 * time.Hour
	recentBonus = 10
)

// priorityBonus — бонус за приоритет категории.
var priorityBonus = map[model.Priority]int{
	model.PriorityCritical: 30,
	model.PriorityHigh:     20,
	model.PriorityMedium:   10,
	model.PriorityLow:      0,
}

// Candidate — поля записи, участвующие в ранжировании.
type Candidate struct {
	Name      string
	Priority  model.Priority
	CreatedAt time.Time
}

// Relevance вычисляет релевантность кандидата запросу на момент now.
//
// Совпадение имени (без учёта регистра): +100 за точное, иначе +50
// за вхождение подстрокой, иначе +10 за каждое общее слово (по пробелам).
// Плюс бонус приоритета и бонус свежести (+20 моложе 30 дней,
// +10 моложе 90 дней).
func Relevance(query string, c Candidate, now time.Time) int {
	return NameScore(query, c.Name) + PriorityBonus(c.Priority) + RecencyBonus(c.CreatedAt, now)
}

// NameScore — составляющая релевантности за совпадение имени.
func NameScore(query, name string) int {
	q := strings.ToLower(strings.TrimSpace(query))
	n := strings.ToLower(name)
	if q == "" {
		return 0
	}

	switch {
	case n == q:
		return exactNameScore
	case strings.Contains(n, q):
		return substringNameScore
	}

	nameTokens := make(map[string]struct{})
	for _, t := range strings.Fields(n) {
		nameTokens[t] = struct{}{}
	}
	score := 0
	seen := make(map[string]struct{})
	for _, t := range strings.Fields(q) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if _, ok := nameTokens[t]; ok {
			score += tokenOverlapScore
		}
	}
	return score
}

// PriorityBonus — бонус за приоритет категории.
func PriorityBonus(p model.Priority) int {
	return priorityBonus[p]
}

// RecencyBonus — бонус за свежесть записи.
func RecencyBonus(createdAt, now time.Time) int {
	age := now.Sub(createdAt)
	switch {
	case age < freshAge:
		return freshBonus
	case age < recentAge:
		return recentBonus
	default:
		return 0
	}
}
