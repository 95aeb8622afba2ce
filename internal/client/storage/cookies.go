package storage

import (
	"context"
	"time"
)

// CookieStorage хранит cookies сессии между запусками клиента.
// Access token сюда не попадает: он живет только в памяти процесса.
type CookieStorage interface {
	// SaveCookies заменяет все cookies для host. Пустой список удаляет запись.
	SaveCookies(ctx context.Context, host string, cookies []StoredCookie) error

	// LoadCookies возвращает cookies для host (пустой список, если их нет)
	LoadCookies(ctx context.Context, host string) ([]StoredCookie, error)
}

// StoredCookie сериализуемая cookie с абсолютным временем истечения
type StoredCookie struct {
	Expires  time.Time `json:"expires,omitempty"` // zero = сессионная cookie
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path"`
	Secure   bool      `json:"secure"`
	HttpOnly bool      `json:"http_only"`
}

// Expired сообщает, истекла ли cookie к моменту now
func (c StoredCookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !now.Before(c.Expires)
}
