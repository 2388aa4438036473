package model

import "fmt"

// Категории загрузок.
const (
	CategoryImages    = "images"
	CategoryDocuments = "documents"
)

// SizeSpec — запрошенный размер производного изображения.
// Height == 0 означает сохранение пропорций по ширине.
type SizeSpec struct {
	Width  int
	Height int
}

// Exact сообщает, задана ли пара ширина×высота.
func (s SizeSpec) Exact() bool {
	return s.Height > 0
}

// Suffix возвращает суффикс имени файла: "_w" или "_w_x_h".
func (s SizeSpec) Suffix() string {
	if s.Exact() {
		return fmt.Sprintf("_%d_x_%d", s.Width, s.Height)
	}
	return fmt.Sprintf("_%d", s.Width)
}

// UploadRequest — принятый и сохранённый на диск исходный файл.
type UploadRequest struct {
	// SourcePath — абсолютный путь сохранённого файла
	SourcePath string
	// Dir — каталог файла
	Dir string
	// Base — имя файла без расширения (UUID)
	Base string
	// Ext — расширение с точкой, в нижнем регистре
	Ext string
	// DisplayName — имя файла клиента, только для отображения
	DisplayName string
	// MIME — заявленный тип содержимого
	MIME string
	// SizeBytes — размер сохранённого файла
	SizeBytes int64
	// Category — images или documents
	Category string
	// Sizes — запрошенные размеры в порядке запроса
	Sizes []SizeSpec
}

// DerivativeResult — одно построенное производное изображение. Не хранится.
type DerivativeResult struct {
	// OutputPath — путь файла на диске
	OutputPath string
	// LogicalName — имя без расширения, используется в архиве
	LogicalName string
}
