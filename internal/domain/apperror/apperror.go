// Пакет apperror — каталог типизированных ошибок SIR.
// Каждая запись каталога — неизменяемое определение (имя, машинный код,
// сообщение по умолчанию, HTTP-статус). Ошибка конкретного запроса —
// отдельное значение *Error, созданное из определения: общие экземпляры
// каталога никогда не изменяются.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code — стабильный машиночитаемый код ошибки (hex-строка).
// Клиенты ветвятся по коду, а не по тексту сообщения.
type Code string

// Оси таксономии.
const (
	CodeUnknown  Code = "0x00000000"
	CodeServer   Code = "0x00000001"
	CodeRequest  Code = "0x00000002"
	CodeAuth     Code = "0x00000003"
	CodeRoute    Code = "0x00000004"
	CodeDatabase Code = "0x00000005"
	CodeFile     Code = "0x00000006"
)

// Definition — запись каталога. Значение (не указатель), поэтому
// изменить общий экземпляр из обработчика запроса невозможно.
type Definition struct {
	// Name — имя записи каталога (UNAUTHORIZED, MEDIA_TOO_LARGE, ...)
	Name string
	// Code — машинный код
	Code Code
	// Message — сообщение по умолчанию
	Message string
	// Status — HTTP-статус; 0 означает 500
	Status int
}

// Error — ошибка одного конкретного вхождения.
type Error struct {
	Name    string
	Code    Code
	Message string
	Status  int
	// Origin — тег источника (последний сегмент пути запроса), заполняется sink'ом
	Origin string
	// cause — исходная ошибка (pgx, os, image), не попадает в ответ клиенту
	cause error
}

// New создаёт новое вхождение ошибки из определения.
func (d Definition) New() *Error {
	status := d.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return &Error{
		Name:    d.Name,
		Code:    d.Code,
		Message: d.Message,
		Status:  status,
	}
}

// Wrap создаёт вхождение ошибки с сохранением причины для логов и errors.Is.
func (d Definition) Wrap(cause error) *Error {
	e := d.New()
	e.cause = cause
	return e
}

// Is сообщает, является ли err вхождением данного определения.
func (d Definition) Is(err error) bool {
	var ae *Error
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Name == d.Name
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("(%s) %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("(%s) %s", e.Code, e.Message)
}

// Unwrap возвращает исходную причину.
func (e *Error) Unwrap() error {
	return e.cause
}

// WithOrigin возвращает копию ошибки с указанным тегом источника.
func (e *Error) WithOrigin(origin string) *Error {
	c := *e
	c.Origin = origin
	return &c
}

// Explainable — фабрика ad-hoc ошибок под кодом UNKNOWN для
// непредусмотренных сбоев, у которых есть только сообщение.
func Explainable(message string) *Error {
	return &Error{
		Name:    "UNKNOWN_EXPLAINABLE_ERROR",
		Code:    CodeUnknown,
		Message: message,
		Status:  http.StatusInternalServerError,
	}
}

// From извлекает *Error из цепочки err. Возвращает nil, если err
// не содержит ошибки каталога.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}
