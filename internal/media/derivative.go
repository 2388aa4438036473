package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
	"github.com/bigkaa/sirfiles/internal/storage/filestore"
)

// derivativesTotal — счётчик построенных производных по результату.
var derivativesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sir_derivatives_total",
	Help: "Общее количество построенных производных изображений.",
}, []string{"result"})

const (
	// jpegQuality — качество JPEG производных изображений.
	jpegQuality = 90
	// maxSourcePixels — предел площади исходного изображения.
	maxSourcePixels = 100_000_000
	// bandPixels — площадь полосы, после которой проверяется контекст.
	bandPixels = 1 << 18
)

// Engine строит производные изображения заданных размеров.
// Пакет обрабатывается по принципу «всё или ничего»: при первой ошибке
// все уже записанные файлы пакета удаляются.
type Engine struct {
	store   *filestore.FileStore
	timeout time.Duration
	logger  *slog.Logger
}

// NewEngine создаёт Engine. timeout ограничивает построение одного размера.
func NewEngine(store *filestore.FileStore, timeout time.Duration, logger *slog.Logger) *Engine {
	return &Engine{
		store:   store,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "derivative_engine")),
	}
}

// Process строит по одному производному файлу на каждый элемент specs
// в порядке запроса. Пути: {dir}/{base}_{w}{ext} и {dir}/{base}_{w}_x_{h}{ext}.
func (e *Engine) Process(ctx context.Context, sourcePath string, specs []model.SizeSpec) ([]model.DerivativeResult, error) {
	src, format, err := decodeSource(sourcePath)
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(sourcePath)
	ext := filepath.Ext(sourcePath)
	base := strings.TrimSuffix(filepath.Base(sourcePath), ext)

	results := make([]model.DerivativeResult, 0, len(specs))
	done := make(map[model.SizeSpec]model.DerivativeResult, len(specs))
	var written []string

	for _, spec := range specs {
		if r, ok := done[spec]; ok {
			results = append(results, r)
			continue
		}

		r := model.DerivativeResult{
			OutputPath:  filepath.Join(dir, base+spec.Suffix()+ext),
			LogicalName: base + spec.Suffix(),
		}

		data, err := e.render(ctx, src, format, spec)
		if err == nil {
			err = e.store.WriteAtomic(r.OutputPath, func(w io.Writer) error {
				_, werr := w.Write(data)
				return werr
			})
			if err != nil {
				err = apperror.InternalServerError.Wrap(err)
			}
		}
		if err != nil {
			e.compensate(written)
			e.logger.Warn("Построение производных прервано",
				slog.String("source", sourcePath),
				slog.String("size", spec.Suffix()),
				slog.Int("rolled_back", len(written)),
				slog.String("error", err.Error()),
			)
			return nil, err
		}

		written = append(written, r.OutputPath)
		done[spec] = r
		results = append(results, r)
		derivativesTotal.WithLabelValues("ok").Inc()
	}

	return results, nil
}

// render масштабирует и кодирует одно изображение с ограничением по времени.
// Работа идёт в вызывающей горутине и прекращается при истечении контекста.
func (e *Engine) render(ctx context.Context, src image.Image, format string, spec model.SizeSpec) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	data, err := scaleAndEncode(ctx, src, format, spec)
	switch {
	case err == nil:
		return data, nil
	case ctx.Err() != nil:
		derivativesTotal.WithLabelValues("timeout").Inc()
		return nil, apperror.ProcessingTimeout.Wrap(ctx.Err())
	default:
		derivativesTotal.WithLabelValues("error").Inc()
		return nil, apperror.InternalServerError.Wrap(err)
	}
}

// compensate удаляет файлы, записанные в рамках прерванного пакета.
func (e *Engine) compensate(paths []string) {
	if len(paths) == 0 {
		return
	}
	if err := e.store.Remove(paths...); err != nil {
		e.logger.Error("Не удалось удалить частичные производные",
			slog.String("error", err.Error()),
		)
	}
}

// TargetSize вычисляет итоговые размеры. Для одной ширины высота
// считается по пропорциям исходника и не бывает меньше 1.
func TargetSize(spec model.SizeSpec, srcW, srcH int) (int, int) {
	if spec.Exact() {
		return spec.Width, spec.Height
	}
	h := int(math.Round(float64(spec.Width) * float64(srcH) / float64(srcW)))
	return spec.Width, max(1, h)
}

// scaleAndEncode строит изображение полосами по bandPixels точек,
// проверяя контекст перед каждой полосой и при записи результата.
func scaleAndEncode(ctx context.Context, src image.Image, format string, spec model.SizeSpec) ([]byte, error) {
	b := src.Bounds()
	w, h := TargetSize(spec, b.Dx(), b.Dy())

	sx := float64(w) / float64(b.Dx())
	sy := float64(h) / float64(b.Dy())
	s2d := f64.Aff3{
		sx, 0, -float64(b.Min.X) * sx,
		0, sy, -float64(b.Min.Y) * sy,
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	rows := max(1, bandPixels/w)
	for y := 0; y < h; y += rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		band := dst.SubImage(image.Rect(0, y, w, min(y+rows, h))).(*image.RGBA)
		draw.CatmullRom.Transform(band, s2d, src, b, draw.Src, nil)
	}

	var buf bytes.Buffer
	out := &ctxWriter{ctx: ctx, w: &buf}
	var err error
	switch format {
	case "png":
		err = png.Encode(out, dst)
	default:
		err = jpeg.Encode(out, dst, &jpeg.Options{Quality: jpegQuality})
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка кодирования %s: %w", format, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ctxWriter перестаёт принимать данные после отмены контекста.
type ctxWriter struct {
	ctx context.Context
	w   io.Writer
}

func (c *ctxWriter) Write(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.w.Write(p)
}

// decodeSource декодирует исходный файл один раз на пакет.
// Нераспознанное содержимое — MEDIA_TYPE_NOT_SUPPORTED.
func decodeSource(path string) (image.Image, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", apperror.InternalServerError.Wrap(err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return nil, "", apperror.MediaTypeNotSupported.Wrap(err)
	}
	if format != "jpeg" && format != "png" {
		return nil, "", apperror.MediaTypeNotSupported.Wrap(fmt.Errorf("формат %s", format))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, "", apperror.MediaTypeNotSupported.Wrap(errors.New("пустое изображение"))
	}
	if int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		return nil, "", apperror.MediaTooLarge.New()
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, "", apperror.InternalServerError.Wrap(err)
	}

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, "", apperror.MediaTypeNotSupported.Wrap(err)
	}
	return img, format, nil
}
