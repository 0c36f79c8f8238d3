// search.go — сервис ранжированного поиска по архивам.
// Кандидаты берутся из инвертированного индекса, разрешаются
// через хранилище, фильтруются и сортируются по релевантности.
package service

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/docarchive/internal/domain/model"
	"github.com/bigkaa/docarchive/internal/domain/ranking"
	"github.com/bigkaa/docarchive/internal/storage/archive"
)

// MaxSearchResults — жёсткий предел числа результатов поиска.
const MaxSearchResults = 50

// Prometheus-метрики поиска.
var (
	searchTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "da_search_total",
		Help: "Общее количество поисковых запросов.",
	})
	searchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "da_search_duration_seconds",
		Help:    "Длительность поисковых запросов.",
		Buckets: prometheus.DefBuckets,
	})
)

// SearchFilters — фильтры поиска. Nil/пустые значения не применяются.
type SearchFilters struct {
	// Category — категория (без учёта регистра)
	Category string
	// StartDate, EndDate — диапазон created_at, включительно
	StartDate *time.Time
	EndDate   *time.Time
	// MinSize, MaxSize — диапазон original_size, включительно
	MinSize *int64
	MaxSize *int64
	// Limit — желаемое число результатов (0 или больше MaxSearchResults означает MaxSearchResults)
	Limit int
}

// SearchHit — элемент результата поиска.
type SearchHit struct {
	ArchiveID string    `json:"archive_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Icon      string    `json:"icon"`
	Size      int64     `json:"size"`
	Relevance int       `json:"relevance"`
	CreatedAt time.Time `json:"created_at"`
	Tags      []string  `json:"tags"`
}

// SearchService — сервис поиска.
type SearchService struct {
	store  *archive.Store
	logger *slog.Logger
}

// NewSearchService создаёт сервис поиска.
func NewSearchService(store *archive.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		store:  store,
		logger: logger.With(slog.String("component", "search_service")),
	}
}

// Search выполняет поиск. Результаты отсортированы по убыванию
// релевантности (при равенстве — в порядке обнаружения) и ограничены
// MaxSearchResults. Удалённые записи пропускаются.
func (s *SearchService) Search(query string, filters SearchFilters) []SearchHit {
	start := time.Now()
	searchTotal.Inc()

	now := s.store.Now()
	candidates := s.store.Index().Candidates(query)

	hits := make([]SearchHit, 0, len(candidates))
	for _, id := range candidates {
		info := s.store.Info(id)
		if info == nil {
			continue
		}
		if !matchFilters(info, filters) {
			continue
		}
		hits = append(hits, SearchHit{
			ArchiveID: info.ID,
			Name:      info.Name,
			Category:  info.Classification.Category,
			Icon:      info.Classification.Icon,
			Size:      info.OriginalSize,
			Relevance: ranking.Relevance(query, ranking.Candidate{
				Name:      info.Name,
				Priority:  info.Classification.Priority,
				CreatedAt: info.CreatedAt,
			}, now),
			CreatedAt: info.CreatedAt,
			Tags:      info.Tags,
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Relevance > hits[j].Relevance
	})

	limit := filters.Limit
	if limit <= 0 || limit > MaxSearchResults {
		limit = MaxSearchResults
	}
	if len(hits) > limit {
		hits = hits[:limit]
	}

	duration := time.Since(start)
	searchDuration.Observe(duration.Seconds())

	s.logger.Debug("Поиск выполнен",
		slog.String("query", query),
		slog.Int("candidates", len(candidates)),
		slog.Int("returned", len(hits)),
		slog.Duration("duration", duration),
	)
	return hits
}

func matchFilters(info *model.ArchiveInfo, f SearchFilters) bool {
	if f.Category != "" && !strings.EqualFold(info.Classification.Category, f.Category) {
		return false
	}
	if f.StartDate != nil && info.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && info.CreatedAt.After(*f.EndDate) {
		return false
	}
	if f.MinSize != nil && info.OriginalSize < *f.MinSize {
		return false
	}
	if f.MaxSize != nil && info.OriginalSize > *f.MaxSize {
		return false
	}
	return true
}
