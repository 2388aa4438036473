package media

import (
	"reflect"
	"testing"

	"github.com/bigkaa/sirfiles/internal/domain/apperror"
	"github.com/bigkaa/sirfiles/internal/domain/model"
)

func TestParseSizes(t *testing.T) {
	got, err := ParseSizes(`[100, [300, 200], 50]`, 16)
	if err != nil {
		t.Fatalf("ParseSizes() ошибка: %v", err)
	}
	want := []model.SizeSpec{{Width: 100}, {Width: 300, Height: 200}, {Width: 50}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseSizes() = %v, ожидается %v", got, want)
	}
}

func TestParseSizes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"не JSON", `abc`},
		{"не массив", `100`},
		{"пустой массив", `[]`},
		{"ноль", `[0]`},
		{"отрицательное", `[-5]`},
		{"дробное", `[10.5]`},
		{"строка", `["100"]`},
		{"null", `[null]`},
		{"пара из одного", `[[100]]`},
		{"тройка", `[[1, 2, 3]]`},
		{"вложенная пара", `[[[1, 2], 3]]`},
		{"отрицательная высота", `[[100, -1]]`},
		{"слишком большой", `[10001]`},
		{"слишком много", `[1,2,3]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSizes(tt.raw, 2)
			if !apperror.BadRequest.Is(err) {
				t.Errorf("ParseSizes(%s) = %v, ожидалась BAD_REQUEST", tt.raw, err)
			}
		})
	}
}
