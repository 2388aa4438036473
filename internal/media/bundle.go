package media

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
)

// Check проверяет наличие всех файлов до начала записи архива.
// Отсутствующий файл — RESOURCE_NOT_FOUND.
func Check(results []model.DerivativeResult) error {
	for _, r := range results {
		info, err := os.Stat(r.OutputPath)
		if err != nil {
			if os.IsNotExist(err) {
				return apperror.ResourceNotFound.Wrap(err)
			}
			return apperror.InternalServerError.Wrap(err)
		}
		if !info.Mode().IsRegular() {
			return apperror.ResourceNotFound.Wrap(fmt.Errorf("%s не является файлом", r.OutputPath))
		}
	}
	return nil
}

// EntryName возвращает имя записи архива: логическое имя и расширение файла.
func EntryName(r model.DerivativeResult) string {
	return r.LogicalName + filepath.Ext(r.OutputPath)
}

// Bundle записывает zip-архив с производными файлами в w.
// Повторяющиеся записи пропускаются. Между записями проверяется отмена контекста.
func Bundle(ctx context.Context, w io.Writer, results []model.DerivativeResult) error {
	if err := Check(results); err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	seen := make(map[string]bool, len(results))

	for _, r := range results {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return apperror.ProcessingTimeout.Wrap(err)
		}

		name := EntryName(r)
		if seen[name] {
			continue
		}
		seen[name] = true

		if err := addEntry(zw, name, r.OutputPath); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return apperror.InternalServerError.Wrap(err)
	}
	return nil
}

func addEntry(zw *zip.Writer, name, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return apperror.ResourceNotFound.Wrap(err)
		}
		return apperror.InternalServerError.Wrap(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return apperror.InternalServerError.Wrap(err)
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return apperror.InternalServerError.Wrap(err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	ew, err := zw.CreateHeader(hdr)
	if err != nil {
		return apperror.InternalServerError.Wrap(err)
	}
	if _, err := io.Copy(ew, f); err != nil {
		return apperror.InternalServerError.Wrap(fmt.Errorf("запись %s в архив: %w", name, err))
	}
	return nil
}
