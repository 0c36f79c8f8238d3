// Пакет codec — адаптивное сжатие содержимого архива.
//
// Политика выбирается по media type и размеру: уже сжатые форматы
// (растровые изображения, аудио/видео, архивы) идут методом store
// с минимальным усилием, остальное — gzip с уровнем 6/7/9 по размеру.
// Оба метода дают gzip-поток, поэтому Decompress не требует знать метод.
//
// Compress и Decompress не изменяют входной срез.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/bigkaa/docarchive/internal/domain/model"
)

// Уровни сжатия.
const (
	LevelStore    = 1
	LevelBaseline = 6
	LevelLarge    = 7
	LevelHuge     = 9
)

// Пороги размера для повышения уровня.
const (
	// largeThreshold — 1 MB (десятичный), включительно
	largeThreshold = 1_000_000
	// hugeThreshold — 10 MiB, строго больше
	hugeThreshold = 10 << 20
)

// alreadyCompressed — media types, повторное сжатие которых бессмысленно.
var alreadyCompressed = map[string]struct{}{
	"image/jpeg":                   {},
	"image/png":                    {},
	"image/gif":                    {},
	"image/webp":                   {},
	"image/heic":                   {},
	"audio/mpeg":                   {},
	"audio/aac":                    {},
	"audio/ogg":                    {},
	"audio/mp4":                    {},
	"video/mp4":                    {},
	"video/webm":                   {},
	"video/quicktime":              {},
	"video/x-msvideo":              {},
	"application/zip":              {},
	"application/gzip":             {},
	"application/x-gzip":           {},
	"application/x-7z-compressed":  {},
	"application/x-rar-compressed": {},
	"application/vnd.rar":          {},
	"application/x-bzip2":          {},
	"application/x-xz":             {},
	"application/zstd":             {},
}

// Policy — выбранные параметры сжатия.
type Policy struct {
	Method string
	Level  int
}

// Result — результат сжатия.
type Result struct {
	Payload []byte
	Size    int64
	Level   int
	Method  string
}

// ChoosePolicy выбирает метод и уровень сжатия.
func ChoosePolicy(mediaType string, size int64) Policy {
	if IsAlreadyCompressed(mediaType) {
		return Policy{Method: model.MethodStore, Level: LevelStore}
	}
	level := LevelBaseline
	switch {
	case size > hugeThreshold:
		level = LevelHuge
	case size >= largeThreshold:
		level = LevelLarge
	}
	return Policy{Method: model.MethodGzip, Level: level}
}

// IsAlreadyCompressed проверяет, входит ли media type в набор уже сжатых.
func IsAlreadyCompressed(mediaType string) bool {
	if i := strings.Index(mediaType, ";"); i != -1 {
		mediaType = mediaType[:i]
	}
	_, ok := alreadyCompressed[strings.ToLower(strings.TrimSpace(mediaType))]
	return ok
}

// Compress сжимает payload согласно политике для mediaType и size.
func Compress(payload []byte, mediaType string, size int64) (*Result, error) {
	policy := ChoosePolicy(mediaType, size)

	var buf bytes.Buffer
	buf.Grow(len(payload)/2 + 64)

	zw, err := gzip.NewWriterLevel(&buf, policy.Level)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания gzip writer (level %d): %w", policy.Level, err)
	}
	if _, err := zw.Write(payload); err != nil {
		zw.Close()
		return nil, fmt.Errorf("ошибка сжатия: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("ошибка завершения gzip-потока: %w", err)
	}

	out := buf.Bytes()
	return &Result{
		Payload: out,
		Size:    int64(len(out)),
		Level:   policy.Level,
		Method:  policy.Method,
	}, nil
}

// Decompress восстанавливает исходное содержимое.
// Повреждённый поток (неверный заголовок, обрыв, несовпадение CRC32)
// даёт ErrCorruptPayload, частичные данные не возвращаются.
func Decompress(payload []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrCorruptPayload, err.Error())
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", model.ErrCorruptPayload, err.Error())
	}
	return data, nil
}
