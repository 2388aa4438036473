package model

import "time"

// Session — сессия пользователя. Токен ссылается на неё по ID.
type Session struct {
	ID        string
	UserID    string
	Active    bool
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Valid сообщает, пригодна ли сессия для защищённого вызова в момент now.
func (s *Session) Valid(now time.Time) bool {
	return s.Active && now.Before(s.ExpiresAt)
}
