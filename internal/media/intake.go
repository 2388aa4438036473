// Пакет media — конвейер обработки загрузок: приём и проверка файла,
// построение производных размеров и упаковка результата в архив.
package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/storage/filestore"
)

const (
	// MaxUploadBytes — максимальный размер загружаемого файла (10 МиБ).
	MaxUploadBytes int64 = 10 << 20

	// maxSizesFieldBytes — максимальный размер поля sizes.
	maxSizesFieldBytes = 64 << 10

	fileField  = "file"
	sizesField = "sizes"
)

// allowedMIME — разрешённые типы содержимого (в нижнем регистре).
var allowedMIME = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
}

// FileHeader — заявленные клиентом атрибуты файла.
type FileHeader struct {
	Filename string
	MIME     string
	// Size — заявленный размер; 0, если неизвестен до чтения
	Size int64
}

// Intake принимает multipart-загрузку: проверяет тип до записи на диск,
// ограничивает размер при потоковой записи и разбирает запрошенные размеры.
type Intake struct {
	store    *filestore.FileStore
	maxBytes int64
	maxSizes int
	logger   *slog.Logger
}

// NewIntake создаёт Intake. maxSizes — лимит элементов поля sizes.
func NewIntake(store *filestore.FileStore, maxSizes int, logger *slog.Logger) *Intake {
	return &Intake{
		store:    store,
		maxBytes: MaxUploadBytes,
		maxSizes: maxSizes,
		logger:   logger.With(slog.String("component", "upload_intake")),
	}
}

// Validate проверяет заявленные атрибуты файла.
func (in *Intake) Validate(h FileHeader) error {
	if !allowedMIME[normalizeMIME(h.MIME)] {
		return apperror.MediaTypeNotSupported.New()
	}
	if h.Size > in.maxBytes {
		return apperror.MediaTooLarge.New()
	}
	return nil
}

// CategoryFor возвращает категорию хранения по типу содержимого.
func CategoryFor(mimeType string) string {
	if allowedMIME[normalizeMIME(mimeType)] {
		return model.CategoryImages
	}
	return model.CategoryDocuments
}

// Receive читает multipart-поток и сохраняет единственный файл на диск.
// При любой ошибке уже записанный файл удаляется.
func (in *Intake) Receive(ctx context.Context, mr *multipart.Reader) (req *model.UploadRequest, err error) {
	var (
		saved    *model.UploadRequest
		rawSizes string
		hasSizes bool
	)

	defer func() {
		if err != nil && saved != nil {
			if rmErr := in.store.Remove(saved.SourcePath); rmErr != nil {
				in.logger.Warn("Не удалось удалить отклонённую загрузку",
					slog.String("path", saved.SourcePath),
					slog.String("error", rmErr.Error()),
				)
			}
		}
	}()

	for {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, apperror.ProcessingTimeout.Wrap(ctxErr)
		}

		part, partErr := mr.NextPart()
		if errors.Is(partErr, io.EOF) {
			break
		}
		if partErr != nil {
			return nil, apperror.BadRequest.Wrap(partErr)
		}

		switch {
		case part.FileName() != "":
			// Файл только один и только в поле file.
			if saved != nil || part.FormName() != fileField {
				part.Close()
				return nil, apperror.SimultaneousUploadLimit.New()
			}
			saved, err = in.receiveFile(part)
			part.Close()
			if err != nil {
				return nil, err
			}

		case part.FormName() == sizesField:
			b, readErr := io.ReadAll(io.LimitReader(part, maxSizesFieldBytes+1))
			part.Close()
			if readErr != nil {
				return nil, apperror.BadRequest.Wrap(readErr)
			}
			if len(b) > maxSizesFieldBytes {
				return nil, apperror.BadRequest.New()
			}
			rawSizes, hasSizes = string(b), true

		default:
			// Прочие поля формы игнорируются.
			_, _ = io.Copy(io.Discard, io.LimitReader(part, maxSizesFieldBytes))
			part.Close()
		}
	}

	if saved == nil || !hasSizes {
		return nil, apperror.BadRequest.New()
	}

	saved.Sizes, err = ParseSizes(rawSizes, in.maxSizes)
	if err != nil {
		return nil, err
	}

	return saved, nil
}

// receiveFile проверяет тип части и записывает её на диск с ограничением размера.
func (in *Intake) receiveFile(part *multipart.Part) (*model.UploadRequest, error) {
	header := FileHeader{
		Filename: part.FileName(),
		MIME:     part.Header.Get("Content-Type"),
	}
	// Тип проверяется до записи первого байта.
	if err := in.Validate(header); err != nil {
		return nil, err
	}

	category := CategoryFor(header.MIME)
	dir, err := in.store.EnsureDir(category)
	if err != nil {
		return nil, apperror.InternalServerError.Wrap(err)
	}

	base, ext, err := filestore.GenerateName(header.Filename)
	if err != nil {
		return nil, apperror.InternalServerError.Wrap(err)
	}

	res, err := in.store.SaveLimited(dir, base+ext, part, in.maxBytes)
	if err != nil {
		if errors.Is(err, filestore.ErrTooLarge) {
			return nil, apperror.MediaTooLarge.New()
		}
		return nil, apperror.InternalServerError.Wrap(err)
	}

	in.logger.Debug("Файл принят",
		slog.String("path", res.FullPath),
		slog.Int64("size", res.Size),
		slog.String("sha256", res.Checksum),
	)

	return &model.UploadRequest{
		SourcePath:  res.FullPath,
		Dir:         dir,
		Base:        base,
		Ext:         ext,
		DisplayName: filepath.Base(header.Filename),
		MIME:        normalizeMIME(header.MIME),
		SizeBytes:   res.Size,
		Category:    category,
	}, nil
}

// normalizeMIME приводит тип к нижнему регистру и отбрасывает параметры.
func normalizeMIME(v string) string {
	mt, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(v))
	}
	return mt
}
