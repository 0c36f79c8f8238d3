// Пакет taxonomy — статическая таксономия категорий документов
// и классификатор по ключевым словам.
//
// Набор категорий фиксирован и загружается один раз при старте процесса.
// Classify — чистая функция: без побочных эффектов и без кэшей,
// результат детерминирован для одинакового входа.
package taxonomy

import (
	"strings"
	"unicode"

	"github.com/bigkaa/docarchive/internal/domain/model"
)

// Веса скоринга.
const (
	keywordWeight   = 10
	mediaTypeWeight = 20
)

// Uncategorized — категория-заглушка, если ни одна категория не набрала очков.
const Uncategorized = "UNCATEGORIZED"

// fallbackRetentionDays — срок хранения для UNCATEGORIZED.
const fallbackRetentionDays = 365

// fallbackIcon — иконка для UNCATEGORIZED.
const fallbackIcon = "📁"

// Category — определение категории таксономии.
type Category struct {
	Name                 string
	Keywords             []string
	MediaTypes           []string
	Priority             model.Priority
	DefaultRetentionDays int
	Icon                 string
}

// categories — порядок объявления определяет разрешение ничьих.
var categories = []Category{
	{
		Name: "FINANCIAL",
		Keywords: []string{
			"invoice", "receipt", "payment", "tax", "budget", "expense",
			"salary", "bank", "balance", "audit", "revenue", "total",
		},
		MediaTypes: []string{
			"application/pdf",
			"application/vnd.ms-excel",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"text/csv",
		},
		Priority:             model.PriorityHigh,
		DefaultRetentionDays: 2555,
		Icon:                 "💰",
	},
	{
		Name: "LEGAL",
		Keywords: []string{
			"contract", "agreement", "legal", "law", "court", "nda",
			"license", "compliance", "terms", "clause", "signature",
		},
		MediaTypes: []string{
			"application/pdf",
			"application/msword",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		},
		Priority:             model.PriorityCritical,
		DefaultRetentionDays: 3650,
		Icon:                 "⚖️",
	},
	{
		Name: "HR",
		Keywords: []string{
			"employee", "resume", "cv", "hiring", "payroll", "onboarding",
			"performance", "vacation", "benefits", "candidate",
		},
		MediaTypes: []string{
			"application/pdf",
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		},
		Priority:             model.PriorityHigh,
		DefaultRetentionDays: 1825,
		Icon:                 "👥",
	},
	{
		Name: "TECHNICAL",
		Keywords: []string{
			"specification", "api", "architecture", "design", "code", "manual",
			"documentation", "config", "deployment", "schema", "server",
		},
		MediaTypes: []string{
			"text/plain", "text/markdown", "application/json",
			"application/xml", "text/x-go", "application/yaml",
		},
		Priority:             model.PriorityMedium,
		DefaultRetentionDays: 1095,
		Icon:                 "🔧",
	},
	{
		Name: "PROJECT",
		Keywords: []string{
			"project", "roadmap", "milestone", "sprint", "plan", "report",
			"meeting", "minutes", "status", "deadline",
		},
		MediaTypes: []string{
			"application/vnd.ms-powerpoint",
			"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		},
		Priority:             model.PriorityMedium,
		DefaultRetentionDays: 1095,
		Icon:                 "📋",
	},
	{
		Name: "MARKETING",
		Keywords: []string{
			"campaign", "brand", "marketing", "advertisement", "social",
			"promotion", "newsletter", "press", "launch",
		},
		MediaTypes: []string{
			"text/html",
		},
		Priority:             model.PriorityLow,
		DefaultRetentionDays: 730,
		Icon:                 "📣",
	},
	{
		Name: "MEDIA",
		Keywords: []string{
			"photo", "image", "video", "audio", "recording", "picture",
			"podcast", "screenshot",
		},
		MediaTypes: []string{
			"image/jpeg", "image/png", "image/gif", "image/webp",
			"video/mp4", "video/webm", "audio/mpeg", "audio/ogg",
		},
		Priority:             model.PriorityLow,
		DefaultRetentionDays: 365,
		Icon:                 "🎬",
	},
}

// Categories возвращает копию набора категорий в порядке объявления.
func Categories() []Category {
	out := make([]Category, len(categories))
	for i, c := range categories {
		out[i] = c
		out[i].Keywords = append([]string(nil), c.Keywords...)
		out[i].MediaTypes = append([]string(nil), c.MediaTypes...)
	}
	return out
}

// Lookup возвращает категорию по имени (без учёта регистра).
func Lookup(name string) (Category, bool) {
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Category{}, false
}

// Classify вычисляет категорию документа.
//
// Скоринг категории: 10 × (число вхождений ключевых слов целыми словами
// без учёта регистра в name+content+tags) + 20, если mediaType category.
// Побеждает строго максимальный счёт; при равенстве остаётся категория,
// объявленная раньше. Confidence = min(100, score/10).
func Classify(doc model.Document) model.Classification {
	counts := wordCounts(doc)
	mediaType := normalizeMediaType(doc.MediaType)

	best := -1
	bestScore := 0
	for i, c := range categories {
		score := 0
		for _, kw := range c.Keywords {
			score += keywordWeight * counts[kw]
		}
		if mediaType != "" && containsString(c.MediaTypes, mediaType) {
			score += mediaTypeWeight
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}

	if best < 0 {
		return model.Classification{
			Category:      Uncategorized,
			Confidence:    0,
			Priority:      model.PriorityMedium,
			Icon:          fallbackIcon,
			RetentionDays: fallbackRetentionDays,
		}
	}

	c := categories[best]
	confidence := float64(bestScore) / 10
	if confidence > 100 {
		confidence = 100
	}
	return model.Classification{
		Category:      c.Name,
		Confidence:    confidence,
		Priority:      c.Priority,
		Icon:          c.Icon,
		RetentionDays: c.DefaultRetentionDays,
	}
}

// wordCounts разбивает name, content и tags на слова (максимальные
// последовательности букв и цифр) в нижнем регистре и считает вхождения.
func wordCounts(doc model.Document) map[string]int {
	counts := make(map[string]int)
	add := func(s string) {
		for _, w := range Words(s) {
			counts[w]++
		}
	}
	add(doc.Name)
	add(string(doc.Content))
	for _, tag := range doc.Tags {
		add(tag)
	}
	return counts
}

// Words возвращает слова строки в нижнем регистре.
// "invoice_jan.pdf" → ["invoice", "jan", "pdf"].
func Words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// normalizeMediaType убирает параметры (charset и т.д.) и приводит к нижнему регистру.
func normalizeMediaType(mediaType string) string {
	if i := strings.Index(mediaType, ";"); i != -1 {
		mediaType = mediaType[:i]
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
