package handlers

import (
	"net/http"
	"time"
)

// DefaultRefreshCookieName имя cookie с refresh token
const DefaultRefreshCookieName = "refresh_token"

// CookieConfig параметры refresh cookie
type CookieConfig struct {
	Name   string
	Path   string
	MaxAge time.Duration // совпадает с TTL refresh token
	Secure bool
}

func (c CookieConfig) name() string {
	if c.Name == "" {
		return DefaultRefreshCookieName
	}
	return c.Name
}

func (c CookieConfig) path() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

// setRefreshCookie устанавливает HttpOnly cookie с refresh token
func (c CookieConfig) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    token,
		Path:     c.path(),
		MaxAge:   int(c.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearRefreshCookie просит клиента удалить cookie
func (c CookieConfig) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.name(),
		Value:    "",
		Path:     c.path(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RefreshTokenFromRequest читает refresh token из cookie запроса
func (c CookieConfig) RefreshTokenFromRequest(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(c.name())
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
