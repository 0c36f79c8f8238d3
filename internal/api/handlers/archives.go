// archives.go — endpoints архивов: ingest, классификация, поиск,
// информация, извлечение содержимого и удаление.
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	apierrors "github.com/bigkaa/docarchive/internal/api/errors"
	"github.com/bigkaa/docarchive/internal/domain/model"
	"github.com/bigkaa/docarchive/internal/domain/taxonomy"
	"github.com/bigkaa/docarchive/internal/service"
	"github.com/bigkaa/docarchive/internal/storage/archive"
)

// documentRequest — тело POST /archives и POST /classify.
// Содержимое передаётся либо текстом (content), либо base64 (payload).
type documentRequest struct {
	Name        string   `json:"name"`
	Content     *string  `json:"content,omitempty"`
	Payload     []byte   `json:"payload,omitempty"`
	MediaType   string   `json:"media_type,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Owner       string   `json:"owner,omitempty"`
	Description string   `json:"description,omitempty"`
}

func (d documentRequest) document() model.Document {
	doc := model.Document{
		Name:        d.Name,
		Content:     d.Payload,
		MediaType:   d.MediaType,
		Tags:        d.Tags,
		Owner:       d.Owner,
		Description: d.Description,
	}
	if d.Content != nil {
		doc.Content = []byte(*d.Content)
	}
	return doc
}

// ingestResponse — ответ POST /archives.
type ingestResponse struct {
	Archive          *model.ArchiveInfo    `json:"archive"`
	CompressionInfo  model.CompressionInfo `json:"compression_info"`
	ProcessingTimeMs float64               `json:"processing_time_ms"`
}

// searchResponse — ответ GET /archives/search.
type searchResponse struct {
	Query   string              `json:"query"`
	Count   int                 `json:"count"`
	Results []service.SearchHit `json:"results"`
}

// deleteResponse — ответ DELETE /archives/{id}.
type deleteResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Deleted bool   `json:"deleted"`
}

// ArchivesHandler — обработчик endpoints архивов.
type ArchivesHandler struct {
	store     *archive.Store
	search    *service.SearchService
	bodyLimit int64
	logger    *slog.Logger
}

// NewArchivesHandler создаёт обработчик. maxDocumentSize ограничивает
// тело запроса с учётом base64 и JSON-обрамления.
func NewArchivesHandler(store *archive.Store, search *service.SearchService, maxDocumentSize int64, logger *slog.Logger) *ArchivesHandler {
	limit := int64(defaultBodyLimit)
	if maxDocumentSize > 0 {
		limit += maxDocumentSize/3*4 + 4
	}
	return &ArchivesHandler{
		store:     store,
		search:    search,
		bodyLimit: limit,
		logger:    logger.With(slog.String("component", "archives_handler")),
	}
}

// Ingest обрабатывает POST /api/v1/archives.
func (h *ArchivesHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	if req.Content != nil && len(req.Payload) > 0 {
		apierrors.ValidationError(w, "укажите либо content, либо payload")
		return
	}

	res, err := h.store.Ingest(r.Context(), req.document())
	if err != nil {
		apierrors.FromDomain(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ingestResponse{
		Archive:          res.Archive.Info(h.store.Now()),
		CompressionInfo:  res.CompressionInfo,
		ProcessingTimeMs: float64(res.ProcessingTime.Microseconds()) / 1000,
	})
}

// Classify обрабатывает POST /api/v1/classify: классификация без сохранения.
func (h *ArchivesHandler) Classify(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if !decodeJSON(w, r, h.bodyLimit, &req) {
		return
	}
	writeJSON(w, http.StatusOK, taxonomy.Classify(req.document()))
}

// Search обрабатывает GET /api/v1/archives/search.
// startDate/endDate — даты (YYYY-MM-DD) в UTC, оба конца включительно.
func (h *ArchivesHandler) Search(w http.ResponseWriter, r *http.Request) {
	var (
		query     string
		category  *string
		startDate *openapi_types.Date
		endDate   *openapi_types.Date
		limit     *int
		filters   service.SearchFilters
	)
	if !queryParam(w, r, "q", &query) ||
		!queryParam(w, r, "category", &category) ||
		!queryParam(w, r, "startDate", &startDate) ||
		!queryParam(w, r, "endDate", &endDate) ||
		!queryParam(w, r, "minSize", &filters.MinSize) ||
		!queryParam(w, r, "maxSize", &filters.MaxSize) ||
		!queryParam(w, r, "limit", &limit) {
		return
	}

	if category != nil {
		filters.Category = *category
	}
	if startDate != nil {
		from := startDate.Time.UTC()
		filters.StartDate = &from
	}
	if endDate != nil {
		to := endDate.Time.UTC().AddDate(0, 0, 1).Add(-time.Nanosecond)
		filters.EndDate = &to
	}
	if limit != nil {
		if *limit < 0 {
			apierrors.ValidationError(w, "limit не может быть отрицательным")
			return
		}
		filters.Limit = *limit
	}

	hits := h.search.Search(query, filters)
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Count: len(hits), Results: hits})
}

// GetInfo обрабатывает GET /api/v1/archives/{id}. Обращение не считается доступом.
func (h *ArchivesHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	info := h.store.Info(id)
	if info == nil {
		apierrors.NotFound(w, "архив не найден: "+id)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// GetContent обрабатывает GET /api/v1/archives/{id}/content.
// Отдаёт распакованное содержимое; digest передаётся в заголовке ETag,
// факт проверки целостности — в X-Integrity-Verified.
func (h *ArchivesHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var skip *bool
	if !queryParam(w, r, "skipVerification", &skip) {
		return
	}

	opts := archive.RetrieveOptions{Actor: actorFrom(r)}
	if skip != nil {
		opts.SkipVerification = *skip
	}

	content, rec, err := h.store.Retrieve(r.Context(), id, opts)
	if err != nil {
		apierrors.FromDomain(w, err)
		return
	}

	mediaType := rec.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.Header().Set("ETag", `"`+rec.Digest+`"`)
	w.Header().Set("X-Archive-Category", rec.Classification.Category)
	w.Header().Set("X-Integrity-Verified", strconv.FormatBool(!opts.SkipVerification))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(content); err != nil {
		h.logger.Warn("Ошибка отправки содержимого",
			slog.String("archive_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// Delete обрабатывает DELETE /api/v1/archives/{id}.
func (h *ArchivesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := h.store.Delete(id, actorFrom(r))
	if err != nil {
		apierrors.FromDomain(w, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{ID: rec.ID, Name: rec.Name, Size: rec.OriginalSize, Deleted: true})
}
