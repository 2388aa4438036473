package accesslog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// requestDir — поддиректория журнала запросов внутри директории логов.
const requestDir = "request"

// FileWriter дописывает строки в файл <logs>/request/YYYY-MM-DD.log.
// Файл выбирается по дате записи (UTC) и открывается заново при смене даты.
// Директория создаётся при первой записи.
type FileWriter struct {
	dir string

	mu      sync.Mutex
	current string
	f       *os.File
}

// NewFileWriter создаёт writer поверх директории логов уровня.
func NewFileWriter(logsDir string) *FileWriter {
	return &FileWriter{dir: filepath.Join(logsDir, requestDir)}
}

// Dir возвращает директорию файлов журнала запросов.
func (w *FileWriter) Dir() string {
	return w.dir
}

// Write дописывает строку в файл её даты.
func (w *FileWriter) Write(l Line) error {
	name := l.Time.UTC().Format("2006-01-02") + ".log"

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil || w.current != name {
		if err := w.open(name); err != nil {
			return err
		}
	}

	if _, err := w.f.WriteString(l.Format() + "\n"); err != nil {
		return fmt.Errorf("ошибка записи журнала %s: %w", name, err)
	}
	return nil
}

func (w *FileWriter) open(name string) error {
	if w.f != nil {
		w.f.Close()
		w.f = nil
	}
	if err := os.MkdirAll(w.dir, 0o750); err != nil {
		return fmt.Errorf("ошибка создания директории журнала %s: %w", w.dir, err)
	}
	f, err := os.OpenFile(filepath.Join(w.dir, name), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("ошибка открытия журнала %s: %w", name, err)
	}
	w.f = f
	w.current = name
	return nil
}

// Close закрывает текущий файл.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	w.current = ""
	return err
}
