// Пакет archive — in-memory хранилище архивов документов.
//
// Store владеет записями по id, индекс хранит только id.
// Блокировки:
//   - s.mu (RWMutex) защищает карту records и согласованное
//     обновление индекса при вставке и удалении;
//   - entry.mu защищает изменяемые поля конкретной записи
//     (accessLog, lastAccessedAt, integrityCheckCount) и флаг deleted.
//
// Блокировки никогда не вкладываются друг в друга, кроме порядка
// s.mu → index (индекс обновляется под s.mu.Lock). Сжатие и распаковка
// выполняются в пуле кодека, вставка в карту — одна короткая секция.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bigkaa/docarchive/internal/domain/model"
	"github.com/bigkaa/docarchive/internal/domain/retention"
	"github.com/bigkaa/docarchive/internal/domain/taxonomy"
	"github.com/bigkaa/docarchive/internal/storage/activity"
	"github.com/bigkaa/docarchive/internal/storage/codec"
	"github.com/bigkaa/docarchive/internal/storage/index"
	"github.com/bigkaa/docarchive/internal/storage/integrity"
)

// DefaultActor — актор по умолчанию, если вызывающий не указал свой.
const DefaultActor = "anonymous"

// SystemActor — актор фоновых операций.
const SystemActor = "system"

// recentActivityLimit — сколько последних событий возвращает Stats.
const recentActivityLimit = 10

// entry — запись хранилища со своей блокировкой.
type entry struct {
	mu      sync.Mutex
	rec     *model.Archive
	seq     uint64 // порядок вставки
	deleted bool
}

// Store — хранилище архивов.
type Store struct {
	mu      sync.RWMutex
	records map[string]*entry
	nextSeq uint64

	idx    *index.Index
	events *activity.Log
	pool   *codec.Pool

	now             func() time.Time
	maxArchives     int
	maxDocumentSize int64
	logger          *slog.Logger
}

// Option — опция конструктора Store.
type Option func(*Store)

// WithClock подменяет источник времени (тесты, сдвиг срока хранения).
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMaxArchives ограничивает количество записей (0 — без ограничения).
func WithMaxArchives(n int) Option {
	return func(s *Store) { s.maxArchives = n }
}

// WithMaxDocumentSize ограничивает размер документа в байтах (0 — без ограничения).
func WithMaxDocumentSize(n int64) Option {
	return func(s *Store) { s.maxDocumentSize = n }
}

// New создаёт пустое хранилище.
func New(idx *index.Index, events *activity.Log, pool *codec.Pool, logger *slog.Logger, opts ...Option) *Store {
	s := &Store{
		records: make(map[string]*entry),
		idx:     idx,
		events:  events,
		pool:    pool,
		now:     func() time.Time { return time.Now().UTC() },
		logger:  logger.With(slog.String("component", "archive_store")),
	}
	for _, opt := range opts {
		opt(s)
	}
	events.SetClock(func() time.Time { return s.now() })
	return s
}

// Index возвращает индекс хранилища.
func (s *Store) Index() *index.Index { return s.idx }

// Activity возвращает журнал активности хранилища.
func (s *Store) Activity() *activity.Log { return s.events }

// Now возвращает текущее время по часам хранилища.
func (s *Store) Now() time.Time { return s.now() }

// IngestResult — результат архивации документа.
type IngestResult struct {
	// Archive — копия созданной записи
	Archive         *model.Archive
	CompressionInfo model.CompressionInfo
	ProcessingTime  time.Duration
}

// Ingest архивирует документ.
//
// Поток:
//  1. Валидация (имя, непустое содержимое, размер)
//  2. Классификация
//  3. Сжатие в пуле кодека
//  4. Digest сжатого содержимого
//  5. Сборка записи (первая версия, срок хранения)
//  6. Атомарная вставка в карту и индекс
//
// Шаги 2–5 выполняются без блокировок хранилища.
func (s *Store) Ingest(ctx context.Context, doc model.Document) (*IngestResult, error) {
	start := time.Now()
	res, err := s.ingest(ctx, doc)
	observe("ingest", err)
	if err != nil {
		s.recordError("", actorOr(doc.Owner, SystemActor), fmt.Sprintf("Ошибка архивации %q: %s", doc.Name, err.Error()))
		return nil, err
	}
	res.ProcessingTime = time.Since(start)

	s.events.Append(model.Activity{
		Type:      model.ActivityArchiveCreated,
		ArchiveID: res.Archive.ID,
		Actor:     actorOr(doc.Owner, SystemActor),
		Message:   fmt.Sprintf("Документ %q заархивирован (%s)", res.Archive.Name, res.Archive.Classification.Category),
	})
	s.logger.Info("Документ заархивирован",
		slog.String("archive_id", res.Archive.ID),
		slog.String("name", res.Archive.Name),
		slog.String("category", res.Archive.Classification.Category),
		slog.Int64("original_size", res.CompressionInfo.OriginalSize),
		slog.Int64("compressed_size", res.CompressionInfo.CompressedSize),
		slog.String("method", res.CompressionInfo.Method),
		slog.Int("level", res.CompressionInfo.Level),
	)
	return res, nil
}

func (s *Store) ingest(ctx context.Context, doc model.Document) (*IngestResult, error) {
	// 1. Валидация
	name := strings.TrimSpace(doc.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: не указано имя документа", model.ErrInvalidDocument)
	}
	if len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: пустое содержимое документа %q", model.ErrInvalidDocument, name)
	}
	size := int64(len(doc.Content))
	if s.maxDocumentSize > 0 && size > s.maxDocumentSize {
		return nil, fmt.Errorf("%w: размер документа %d байт превышает максимум %d байт",
			model.ErrStorageExhausted, size, s.maxDocumentSize)
	}
	if s.maxArchives > 0 && s.Count() >= s.maxArchives {
		return nil, fmt.Errorf("%w: достигнут лимит в %d архивов", model.ErrStorageExhausted, s.maxArchives)
	}

	// 2. Классификация
	classification := taxonomy.Classify(doc)

	// 3. Сжатие
	compressed, err := s.pool.Compress(ctx, doc.Content, doc.MediaType, size)
	if err != nil {
		return nil, fmt.Errorf("ошибка сжатия документа %q: %w", name, err)
	}

	// 4. Digest
	digest := integrity.Digest(compressed.Payload)

	// 5. Сборка записи
	now := s.now()
	rec := &model.Archive{
		ID:                uuid.NewString(),
		Name:              name,
		MediaType:         doc.MediaType,
		OriginalSize:      size,
		CompressedSize:    compressed.Size,
		CompressionRatio:  model.CompressionRatio(size, compressed.Size),
		CompressionMethod: compressed.Method,
		CompressionLevel:  compressed.Level,
		Payload:           compressed.Payload,
		Digest:            digest,
		Classification:    classification,
		Metadata: model.Metadata{
			CreatedAt:   now,
			UpdatedAt:   now,
			Owner:       doc.Owner,
			Tags:        append([]string(nil), doc.Tags...),
			Description: doc.Description,
		},
		Versions: []model.Version{{
			VersionID: uuid.NewString(),
			Timestamp: now,
			Size:      compressed.Size,
			Digest:    digest,
		}},
		AccessLog:       []model.AccessEntry{},
		RetentionPolicy: retention.PolicyName(classification.Category, classification.RetentionDays),
		ExpirationDate:  retention.ComputeExpiration(now, classification.RetentionDays),
	}

	// 6. Фиксация: карта и индекс меняются в одной критической секции
	s.mu.Lock()
	if s.maxArchives > 0 && len(s.records) >= s.maxArchives {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: достигнут лимит в %d архивов", model.ErrStorageExhausted, s.maxArchives)
	}
	s.nextSeq++
	s.records[rec.ID] = &entry{rec: rec, seq: s.nextSeq}
	s.idx.Add(indexEntry(rec))
	s.mu.Unlock()

	trackSizes(1, rec.OriginalSize, rec.CompressedSize)

	return &IngestResult{
		Archive: rec.Clone(),
		CompressionInfo: model.CompressionInfo{
			OriginalSize:   rec.OriginalSize,
			CompressedSize: rec.CompressedSize,
			Ratio:          rec.CompressionRatio,
			Saved:          rec.OriginalSize - rec.CompressedSize,
			Level:          rec.CompressionLevel,
			Method:         rec.CompressionMethod,
		},
	}, nil
}

// RetrieveOptions — параметры извлечения.
type RetrieveOptions struct {
	SkipVerification bool
	Actor            string
}

// Retrieve возвращает распакованное содержимое и копию записи.
//
// Без SkipVerification сначала проверяется digest: при несовпадении
// возвращается ErrIntegrityViolation и содержимое не отдаётся.
// Успешное извлечение добавляет запись в access log, обновляет
// lastAccessedAt и (если проверка выполнялась) integrityCheckCount.
// Извлечение и удаление одного id взаимно исключены.
func (s *Store) Retrieve(ctx context.Context, id string, opts RetrieveOptions) ([]byte, *model.Archive, error) {
	actor := actorOr(opts.Actor, DefaultActor)

	data, rec, err := s.retrieve(ctx, id, opts.SkipVerification, actor)
	observe("retrieve", err)
	if err != nil {
		s.recordError(id, actor, fmt.Sprintf("Ошибка извлечения архива %s: %s", id, err.Error()))
		if !isCallerError(err) {
			s.logger.Error("Ошибка извлечения архива",
				slog.String("archive_id", id),
				slog.String("error", err.Error()),
			)
		}
		return nil, nil, err
	}

	s.events.Append(model.Activity{
		Type:      model.ActivityArchiveAccessed,
		ArchiveID: id,
		Actor:     actor,
		Message:   fmt.Sprintf("Архив %q извлечён", rec.Name),
	})
	return data, rec, nil
}

func (s *Store) retrieve(ctx context.Context, id string, skipVerification bool, actor string) ([]byte, *model.Archive, error) {
	e := s.lookup(id)
	if e == nil {
		return nil, nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.deleted {
		return nil, nil, fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}

	if !skipVerification && !integrity.Verify(e.rec.Payload, e.rec.Digest) {
		return nil, nil, fmt.Errorf("%w: digest архива %s не совпадает с содержимым", model.ErrIntegrityViolation, id)
	}

	data, err := s.pool.Decompress(ctx, e.rec.Payload)
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	e.rec.AccessLog = append(e.rec.AccessLog, model.AccessEntry{
		Timestamp: now,
		Actor:     actor,
		Action:    "retrieve",
	})
	e.rec.Metadata.LastAccessedAt = &now
	if !skipVerification {
		e.rec.IntegrityCheckCount++
	}
	return data, e.rec.Clone(), nil
}

// Delete удаляет запись и очищает индекс. Возвращает копию удалённой записи.
func (s *Store) Delete(id string, actor string) (*model.Archive, error) {
	actor = actorOr(actor, DefaultActor)

	rec := s.deleteIf(id, nil)
	if rec == nil {
		err := fmt.Errorf("%w: %s", model.ErrNotFound, id)
		observe("delete", err)
		s.recordError(id, actor, fmt.Sprintf("Ошибка удаления архива %s: %s", id, err.Error()))
		return nil, err
	}
	observe("delete", nil)

	s.events.Append(model.Activity{
		Type:      model.ActivityArchiveDeleted,
		ArchiveID: id,
		Actor:     actor,
		Message:   fmt.Sprintf("Архив %q удалён", rec.Name),
	})
	s.logger.Info("Архив удалён",
		slog.String("archive_id", id),
		slog.String("actor", actor),
	)
	return rec, nil
}

// DeleteWhere удаляет все записи, для которых pred вернул true.
// pred вызывается под блокировкой записи и не должен её изменять.
// Возвращает копии удалённых записей.
func (s *Store) DeleteWhere(actor string, pred func(rec *model.Archive) bool) []*model.Archive {
	actor = actorOr(actor, SystemActor)

	var deleted []*model.Archive
	for _, id := range s.IDs() {
		rec := s.deleteIf(id, pred)
		if rec == nil {
			continue
		}
		observe("delete", nil)
		deleted = append(deleted, rec)
		s.events.Append(model.Activity{
			Type:      model.ActivityArchiveDeleted,
			ArchiveID: id,
			Actor:     actor,
			Message:   fmt.Sprintf("Архив %q удалён", rec.Name),
		})
	}
	return deleted
}

// deleteIf помечает запись удалённой (если pred == nil или pred вернул true),
// затем убирает её из карты и индекса. Возвращает nil, если запись
// не найдена или не удовлетворяет pred.
func (s *Store) deleteIf(id string, pred func(rec *model.Archive) bool) *model.Archive {
	e := s.lookup(id)
	if e == nil {
		return nil
	}

	e.mu.Lock()
	if e.deleted || (pred != nil && !pred(e.rec)) {
		e.mu.Unlock()
		return nil
	}
	e.deleted = true
	rec := e.rec.Clone()
	e.mu.Unlock()

	s.mu.Lock()
	if cur, ok := s.records[id]; ok && cur == e {
		delete(s.records, id)
	}
	s.idx.Remove(id)
	s.mu.Unlock()

	trackSizes(-1, rec.OriginalSize, rec.CompressedSize)
	return rec
}

// VerifyIntegrity проверяет digest записи без распаковки.
// Каждая проверка увеличивает integrityCheckCount и попадает в журнал
// (ARCHIVE_VERIFIED или ARCHIVE_ERROR).
func (s *Store) VerifyIntegrity(id string, actor string) error {
	actor = actorOr(actor, SystemActor)

	e := s.lookup(id)
	if e == nil {
		return fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}

	e.mu.Lock()
	if e.deleted {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", model.ErrNotFound, id)
	}
	ok := integrity.Verify(e.rec.Payload, e.rec.Digest)
	e.rec.IntegrityCheckCount++
	name := e.rec.Name
	e.mu.Unlock()

	if !ok {
		err := fmt.Errorf("%w: digest архива %s не совпадает с содержимым", model.ErrIntegrityViolation, id)
		observe("verify", err)
		s.recordError(id, actor, fmt.Sprintf("Нарушение целостности архива %q", name))
		return err
	}
	observe("verify", nil)
	s.events.Append(model.Activity{
		Type:      model.ActivityArchiveVerified,
		ArchiveID: id,
		Actor:     actor,
		Message:   fmt.Sprintf("Целостность архива %q подтверждена", name),
	})
	return nil
}

// Get возвращает копию записи (включая payload).
func (s *Store) Get(id string) (*model.Archive, bool) {
	e := s.lookup(id)
	if e == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, false
	}
	return e.rec.Clone(), true
}

// Info возвращает проекцию записи или nil, если id неизвестен.
func (s *Store) Info(id string) *model.ArchiveInfo {
	e := s.lookup(id)
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil
	}
	return e.rec.Info(s.now())
}

// Snapshot возвращает глубокие копии всех живых записей
// в порядке создания.
func (s *Store) Snapshot() []*model.Archive {
	entries := s.entries()
	out := make([]*model.Archive, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted {
			out = append(out, e.rec.Clone())
		}
		e.mu.Unlock()
	}
	return out
}

// Stats агрегирует статистику по текущим записям.
func (s *Store) Stats() model.Stats {
	st := model.Stats{
		ByCategory: make(map[string]model.CategoryStats),
		ByPriority: make(map[model.Priority]int),
	}

	var ratioSum float64
	for _, e := range s.entries() {
		e.mu.Lock()
		if e.deleted {
			e.mu.Unlock()
			continue
		}
		rec := e.rec
		st.TotalArchives++
		st.TotalOriginalSize += rec.OriginalSize
		st.TotalCompressedSize += rec.CompressedSize
		st.TotalAccesses += len(rec.AccessLog)
		st.TotalIntegrityChecks += rec.IntegrityCheckCount
		ratioSum += rec.CompressionRatio

		cs := st.ByCategory[rec.Classification.Category]
		cs.Count++
		cs.OriginalSize += rec.OriginalSize
		cs.CompressedSize += rec.CompressedSize
		st.ByCategory[rec.Classification.Category] = cs
		st.ByPriority[rec.Classification.Priority]++
		e.mu.Unlock()
	}

	st.SpaceSaved = st.TotalOriginalSize - st.TotalCompressedSize
	if st.TotalArchives > 0 {
		st.AverageCompressionRatio = math.Round(ratioSum/float64(st.TotalArchives)*100) / 100
	}
	st.RecentActivity = s.events.Recent(recentActivityLimit)
	st.GeneratedAt = s.now()
	return st
}

// IDs возвращает id всех записей в порядке создания.
func (s *Store) IDs() []string {
	entries := s.entries()
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.rec.ID
	}
	return ids
}

// Count возвращает количество записей.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// RecordCleanup фиксирует завершение очистки в журнале активности.
func (s *Store) RecordCleanup(actor string, deleted int) {
	s.events.Append(model.Activity{
		Type:    model.ActivityCleanupCompleted,
		Actor:   actorOr(actor, SystemActor),
		Message: fmt.Sprintf("Очистка завершена, удалено архивов: %d", deleted),
	})
}

func (s *Store) lookup(id string) *entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id]
}

// entries возвращает записи карты в порядке вставки.
func (s *Store) entries() []*entry {
	s.mu.RLock()
	out := make([]*entry, 0, len(s.records))
	for _, e := range s.records {
		out = append(out, e)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

func (s *Store) recordError(id, actor, msg string) {
	s.events.Append(model.Activity{
		Type:      model.ActivityArchiveError,
		ArchiveID: id,
		Actor:     actor,
		Message:   msg,
	})
}

func indexEntry(rec *model.Archive) index.Entry {
	return index.Entry{
		ID:       rec.ID,
		Name:     rec.Name,
		Category: rec.Classification.Category,
		Tags:     rec.Metadata.Tags,
	}
}

func actorOr(actor, fallback string) string {
	if actor = strings.TrimSpace(actor); actor != "" {
		return actor
	}
	return fallback
}

// isCallerError — ошибки, вызванные запросом, а не состоянием хранилища.
func isCallerError(err error) bool {
	code := model.ErrorCode(err)
	return code == model.CodeNotFound || code == model.CodeInvalidDocument
}
