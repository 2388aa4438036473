// Пакет accesslog — журнал доступа: текстовые строки в файлах по датам
// и асинхронное сохранение структурированных записей в БД.
package accesslog

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/bigkaa/sirfiles/internal/domain/model"
)

// timeLayout — формат времени в строке журнала (UTC, миллисекунды).
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// lineFields — число полей строки без завершающего "ms".
const lineFields = 8

// Line — одна строка текстового журнала:
//
//	ip user time method url status ua response_time ms
type Line struct {
	IP             string
	User           string
	Time           time.Time
	Method         string
	URL            string
	Status         int
	UserAgent      string
	ResponseTimeMs float64
}

// FromEntry строит строку журнала из записи. Пользователь без сессии — UNAUTHORIZED.
func FromEntry(e *model.AccessLogEntry) Line {
	user := model.AnonymousUser
	if e.UserID != nil && *e.UserID != "" {
		user = *e.UserID
	}
	return Line{
		IP:             e.IP,
		User:           user,
		Time:           e.Timestamp,
		Method:         e.Method,
		URL:            e.Route,
		Status:         e.StatusCode,
		UserAgent:      e.UserAgent,
		ResponseTimeMs: e.ResponseTimeMs,
	}
}

// Format возвращает строку без перевода строки.
// Поля с пробелами, кавычками или пустые записываются в кавычках Go.
func (l Line) Format() string {
	fields := []string{
		quoteField(l.IP),
		quoteField(l.User),
		l.Time.UTC().Format(timeLayout),
		quoteField(l.Method),
		quoteField(l.URL),
		strconv.Itoa(l.Status),
		quoteField(l.UserAgent),
		strconv.FormatFloat(l.ResponseTimeMs, 'f', 3, 64),
		"ms",
	}
	return strings.Join(fields, " ")
}

// ParseLine разбирает строку, записанную Format.
func ParseLine(s string) (Line, error) {
	tokens, err := splitFields(strings.TrimRight(s, "\r\n"))
	if err != nil {
		return Line{}, err
	}
	if len(tokens) != lineFields+1 || tokens[lineFields] != "ms" {
		return Line{}, fmt.Errorf("ожидается %d полей и суффикс ms, получено %d полей", lineFields, len(tokens))
	}

	ts, err := time.Parse(timeLayout, tokens[2])
	if err != nil {
		return Line{}, fmt.Errorf("поле времени: %w", err)
	}
	status, err := strconv.Atoi(tokens[5])
	if err != nil {
		return Line{}, fmt.Errorf("поле статуса: %w", err)
	}
	rt, err := strconv.ParseFloat(tokens[7], 64)
	if err != nil {
		return Line{}, fmt.Errorf("поле времени ответа: %w", err)
	}

	return Line{
		IP:             tokens[0],
		User:           tokens[1],
		Time:           ts,
		Method:         tokens[3],
		URL:            tokens[4],
		Status:         status,
		UserAgent:      tokens[6],
		ResponseTimeMs: rt,
	}, nil
}

func quoteField(v string) string {
	if v == "" || strings.ContainsFunc(v, func(r rune) bool {
		return unicode.IsSpace(r) || r == '"' || !unicode.IsPrint(r)
	}) {
		return strconv.Quote(v)
	}
	return v
}

// splitFields делит строку по пробелам, поля в кавычках раскавычиваются.
func splitFields(s string) ([]string, error) {
	var tokens []string
	for {
		s = strings.TrimLeft(s, " ")
		if s == "" {
			return tokens, nil
		}

		if s[0] == '"' {
			quoted, err := strconv.QuotedPrefix(s)
			if err != nil {
				return nil, errors.New("незакрытая кавычка в строке журнала")
			}
			v, err := strconv.Unquote(quoted)
			if err != nil {
				return nil, fmt.Errorf("некорректное поле %s: %w", quoted, err)
			}
			tokens = append(tokens, v)
			s = s[len(quoted):]
			if s != "" && s[0] != ' ' {
				return nil, errors.New("после закрывающей кавычки ожидается пробел")
			}
			continue
		}

		end := strings.IndexByte(s, ' ')
		if end < 0 {
			end = len(s)
		}
		tokens = append(tokens, s[:end])
		s = s[end:]
	}
}
