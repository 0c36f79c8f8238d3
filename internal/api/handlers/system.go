// system.go — справочные endpoints: категории таксономии, статистика
// хранилища и журнал активности.
package handlers

import (
	"net/http"

	apierrors "github.com/bigkaa/docarchive/internal/api/errors"
	"github.com/bigkaa/docarchive/internal/config"
	"github.com/bigkaa/docarchive/internal/domain/model"
	"github.com/bigkaa/docarchive/internal/domain/taxonomy"
	"github.com/bigkaa/docarchive/internal/storage/archive"
)

const (
	// defaultActivityLimit — число записей активности по умолчанию.
	defaultActivityLimit = 50
	// sampleKeywords — сколько ключевых слов категории показывать.
	sampleKeywords = 5
)

type categoryInfo struct {
	ID             string         `json:"id"`
	Icon           string         `json:"icon"`
	Priority       model.Priority `json:"priority"`
	RetentionDays  int            `json:"retention_days"`
	SampleKeywords []string       `json:"sample_keywords"`
	MediaTypes     []string       `json:"media_types,omitempty"`
}

type statsResponse struct {
	model.Stats
	Version string `json:"version"`
}

type activityResponse struct {
	Count int              `json:"count"`
	Total uint64           `json:"total"`
	Items []model.Activity `json:"items"`
}

// SystemHandler — обработчик справочных endpoints.
type SystemHandler struct {
	store *archive.Store
}

// NewSystemHandler создаёт обработчик справочных endpoints.
func NewSystemHandler(store *archive.Store) *SystemHandler {
	return &SystemHandler{store: store}
}

// Categories обрабатывает GET /api/v1/categories.
func (h *SystemHandler) Categories(w http.ResponseWriter, _ *http.Request) {
	cats := taxonomy.Categories()
	out := make([]categoryInfo, 0, len(cats))
	for _, c := range cats {
		keywords := c.Keywords
		if len(keywords) > sampleKeywords {
			keywords = keywords[:sampleKeywords]
		}
		out = append(out, categoryInfo{
			ID:             c.Name,
			Icon:           c.Icon,
			Priority:       c.Priority,
			RetentionDays:  c.DefaultRetentionDays,
			SampleKeywords: keywords,
			MediaTypes:     c.MediaTypes,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// Stats обрабатывает GET /api/v1/stats.
func (h *SystemHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statsResponse{Stats: h.store.Stats(), Version: config.Version})
}

// Activity обрабатывает GET /api/v1/activity?limit=N. Новые записи первыми.
func (h *SystemHandler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if !queryParam(w, r, "limit", &limit) {
		return
	}
	if limit < 0 {
		apierrors.ValidationError(w, "limit не может быть отрицательным")
		return
	}

	log := h.store.Activity()
	items := log.Recent(limit)
	writeJSON(w, http.StatusOK, activityResponse{Count: len(items), Total: log.Total(), Items: items})
}
