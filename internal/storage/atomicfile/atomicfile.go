// Пакет atomicfile — атомарная запись файлов: temp → fsync → rename.
// Читатель видит либо старое содержимое, либо новое целиком.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// TempSuffix — суффикс временного файла до переименования.
const TempSuffix = ".tmp"

// Write атомарно записывает data в path, создавая родительскую директорию.
func Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("не удалось создать директорию %s: %w", dir, err)
	}

	tmpPath := path + TempSuffix
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}
	return nil
}

// Remove удаляет path и его временный файл. Отсутствие файлов не ошибка.
func Remove(path string) error {
	for _, p := range []string{path, path + TempSuffix} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("ошибка удаления %s: %w", p, err)
		}
	}
	return nil
}
