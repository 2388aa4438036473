// Пакет filestore — операции с файлами загрузок на диске.
// Обеспечивает streaming-запись с ограничением размера и подсчётом
// SHA-256 на лету, атомарную запись производных файлов, удаление
// и очистку устаревших файлов.
package filestore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrTooLarge — поток превысил допустимый размер.
var ErrTooLarge = errors.New("превышен допустимый размер файла")

// tmpSuffix — суффикс временных файлов до атомарного переименования.
const tmpSuffix = ".tmp"

// FileStore — управление файлами загрузок на диске.
type FileStore struct {
	// baseDir — корневая директория загрузок текущего уровня
	baseDir string
}

// SaveResult — результат сохранения файла на диск.
type SaveResult struct {
	// FullPath — абсолютный путь файла на диске
	FullPath string
	// Size — размер записанных данных в байтах
	Size int64
	// Checksum — SHA-256 хэш содержимого файла
	Checksum string
}

// New создаёт FileStore. Создаёт директорию, если она не существует.
func New(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию загрузок %s: %w", baseDir, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// BaseDir возвращает корневую директорию загрузок.
func (s *FileStore) BaseDir() string {
	return s.baseDir
}

// EnsureDir создаёт директорию категории и возвращает её путь.
// Одновременное создание несколькими запросами не считается ошибкой.
func (s *FileStore) EnsureDir(category string) (string, error) {
	dir := filepath.Join(s.baseDir, category)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("ошибка создания директории %s: %w", dir, err)
	}
	return dir, nil
}

// SaveLimited записывает поток в dir/name, не более limit байт.
// Паттерн: temp файл → запись + SHA-256 → fsync → atomic rename.
// При превышении лимита возвращается ErrTooLarge, частичный файл удаляется.
func (s *FileStore) SaveLimited(dir, name string, r io.Reader, limit int64) (*SaveResult, error) {
	fullPath := filepath.Join(dir, name)
	tmpPath := fullPath + tmpSuffix

	f, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	hasher := sha256.New()
	// Читаем на байт больше лимита, чтобы отличить «ровно limit» от превышения.
	lr := io.LimitReader(r, limit+1)

	size, err := io.Copy(f, io.TeeReader(lr, hasher))
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}
	if size > limit {
		f.Close()
		os.Remove(tmpPath)
		return nil, ErrTooLarge
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{
		FullPath: fullPath,
		Size:     size,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

// WriteAtomic записывает файл path через функцию write.
// Данные пишутся во временный файл рядом и переименовываются после fsync,
// поэтому читатель никогда не видит частично записанный файл.
func (s *FileStore) WriteAtomic(path string, write func(w io.Writer) error) error {
	tmpPath := path + tmpSuffix

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if err := write(f); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return err
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

// Remove удаляет файлы. Отсутствующие файлы пропускаются.
// Возвращает объединение ошибок по всем путям.
func (s *FileStore) Remove(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("ошибка удаления файла %s: %w", p, err))
		}
	}
	return errors.Join(errs...)
}

// SweepOlderThan удаляет файлы загрузок с временем изменения раньше cutoff.
// Возвращает количество удалённых файлов.
func (s *FileStore) SweepOlderThan(cutoff time.Time) (int, error) {
	removed := 0
	err := filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("ошибка удаления файла %s: %w", path, err)
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, fmt.Errorf("ошибка обхода директории загрузок: %w", err)
	}
	return removed, nil
}

// GenerateName возвращает имя хранения: UUID на основе времени
// и исходное расширение в нижнем регистре.
func GenerateName(originalFilename string) (base, ext string, err error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", "", fmt.Errorf("ошибка генерации UUID: %w", err)
	}
	return id.String(), sanitizeExt(filepath.Ext(originalFilename)), nil
}

// sanitizeExt оставляет в расширении только латиницу и цифры.
func sanitizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	var b strings.Builder
	for _, r := range ext {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "." + b.String()
}
