package model

import "time"

// Теги записей журнала доступа.
const (
	TagInfo  = "INFO"
	TagError = "ERROR"
)

// AnonymousUser — значение поля пользователя для неаутентифицированных запросов.
const AnonymousUser = "UNAUTHORIZED"

// AccessLogEntry — запись журнала доступа об одном завершённом запросе.
type AccessLogEntry struct {
	ID string `json:"id"`
	// IP — адрес клиента
	IP string `json:"ip"`
	// UserID — пользователь; nil для неаутентифицированных запросов
	UserID *string `json:"userId"`
	// Timestamp — время завершения запроса
	Timestamp time.Time `json:"createdAt"`
	Method    string    `json:"method"`
	// Route — исходный URL запроса
	Route      string `json:"route"`
	StatusCode int    `json:"statusCode"`
	UserAgent  string `json:"useragent"`
	// ResponseTimeMs — длительность обработки в миллисекундах
	ResponseTimeMs float64 `json:"responseTime"`
	// Tag — ERROR при статусе >= 400, иначе INFO
	Tag string `json:"tag"`
}

// TagForStatus возвращает тег записи по HTTP-статусу.
func TagForStatus(status int) string {
	if status >= 400 {
		return TagError
	}
	return TagInfo
}

// Blame — проекция пользователя, связанного с записью журнала.
type Blame struct {
	Username   string `json:"username"`
	Email      string `json:"email"`
	UsageCount int    `json:"usageCount"`
}

// AccessLogRecord — запись журнала с проекцией пользователя для аудита.
type AccessLogRecord struct {
	AccessLogEntry
	Blame *Blame `json:"blame"`
}

// AccessLogFilter — фильтры запроса журнала.
type AccessLogFilter struct {
	ID           string
	CreatedAfter *time.Time
	// SearchString — подстрока в tag, ip, method, route, статусе, user agent или времени ответа
	SearchString string
	Limit        int
}
