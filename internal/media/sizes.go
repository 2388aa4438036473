package media

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
)

// MaxDimension — верхняя граница ширины и высоты производного изображения.
const MaxDimension = 10000

// ParseSizes разбирает поле sizes: JSON-массив, каждый элемент которого —
// положительное целое (ширина) или пара [ширина, высота].
// Порядок элементов сохраняется. Любое нарушение — BAD_REQUEST.
func ParseSizes(raw string, maxCount int) ([]model.SizeSpec, error) {
	specs, err := parseSizes([]byte(raw), maxCount)
	if err != nil {
		return nil, apperror.BadRequest.Wrap(err)
	}
	return specs, nil
}

func parseSizes(raw []byte, maxCount int) ([]model.SizeSpec, error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("sizes: ожидается JSON-массив: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("sizes: пустой список")
	}
	if len(items) > maxCount {
		return nil, fmt.Errorf("sizes: %d элементов, допустимо не более %d", len(items), maxCount)
	}

	specs := make([]model.SizeSpec, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '[' {
			var pair []json.RawMessage
			if err := json.Unmarshal(item, &pair); err != nil {
				return nil, fmt.Errorf("sizes[%d]: %w", i, err)
			}
			if len(pair) != 2 {
				return nil, fmt.Errorf("sizes[%d]: пара должна содержать 2 элемента, получено %d", i, len(pair))
			}
			w, err := parseDimension(pair[0])
			if err != nil {
				return nil, fmt.Errorf("sizes[%d][0]: %w", i, err)
			}
			h, err := parseDimension(pair[1])
			if err != nil {
				return nil, fmt.Errorf("sizes[%d][1]: %w", i, err)
			}
			specs = append(specs, model.SizeSpec{Width: w, Height: h})
			continue
		}

		w, err := parseDimension(item)
		if err != nil {
			return nil, fmt.Errorf("sizes[%d]: %w", i, err)
		}
		specs = append(specs, model.SizeSpec{Width: w})
	}
	return specs, nil
}

// parseDimension разбирает положительное целое не больше MaxDimension.
func parseDimension(raw json.RawMessage) (int, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' {
		return 0, fmt.Errorf("ожидается число: %s", raw)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("ожидается число: %s", raw)
	}
	v, err := n.Int64()
	if err != nil {
		return 0, fmt.Errorf("ожидается целое число: %s", n)
	}
	if v <= 0 {
		return 0, fmt.Errorf("размер должен быть положительным: %d", v)
	}
	if v > MaxDimension {
		return 0, fmt.Errorf("размер %d превышает %d", v, MaxDimension)
	}
	return int(v), nil
}
