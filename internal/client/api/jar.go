package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/iudanet/pkceauth/internal/client/storage"
)

// PersistentJar http.CookieJar, который сохраняет cookies в CookieStorage.
// Cookies группируются по host (с портом): клиент работает с одним сервером,
// правила domain cookies здесь не нужны.
type PersistentJar struct {
	logger *slog.Logger
	store  storage.CookieStorage // nil = только память
	clock  clockwork.Clock
	hosts  map[string][]storage.StoredCookie
	mu     sync.Mutex
}

// NewPersistentJar создает jar поверх store. store может быть nil.
func NewPersistentJar(logger *slog.Logger, store storage.CookieStorage, clock clockwork.Clock) *PersistentJar {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &PersistentJar{
		logger: logger,
		store:  store,
		clock:  clock,
		hosts:  make(map[string][]storage.StoredCookie),
	}
}

// SetCookies implements http.CookieJar
func (j *PersistentJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.clock.Now()
	current := j.load(u.Host)

	for _, c := range cookies {
		path := c.Path
		if path == "" || !strings.HasPrefix(path, "/") {
			path = "/"
		}

		// удаляем прежнюю cookie с тем же именем и path
		kept := current[:0]
		for _, existing := range current {
			if existing.Name != c.Name || existing.Path != path {
				kept = append(kept, existing)
			}
		}
		current = kept

		stored := storage.StoredCookie{
			Name:     c.Name,
			Value:    c.Value,
			Path:     path,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		}
		switch {
		case c.MaxAge < 0:
			continue
		case c.MaxAge > 0:
			stored.Expires = now.Add(time.Duration(c.MaxAge) * time.Second)
		case !c.Expires.IsZero():
			stored.Expires = c.Expires
		}
		if stored.Expired(now) {
			continue
		}
		current = append(current, stored)
	}

	j.save(u.Host, current)
}

// Cookies implements http.CookieJar
func (j *PersistentJar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.clock.Now()
	path := u.Path
	if path == "" {
		path = "/"
	}

	var out []*http.Cookie
	for _, c := range j.load(u.Host) {
		if c.Expired(now) {
			continue
		}
		if c.Secure && u.Scheme != "https" {
			continue
		}
		if !pathMatch(c.Path, path) {
			continue
		}
		out = append(out, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return out
}

// Has сообщает, есть ли действующая cookie name для u
func (j *PersistentJar) Has(u *url.URL, name string) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.clock.Now()
	for _, c := range j.load(u.Host) {
		if c.Name == name && !c.Expired(now) {
			return true
		}
	}
	return false
}

// Clear удаляет все cookies для host из u
func (j *PersistentJar) Clear(u *url.URL) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.save(u.Host, nil)
}

// load возвращает cookies host, при первом обращении читает их из store
func (j *PersistentJar) load(host string) []storage.StoredCookie {
	if cookies, ok := j.hosts[host]; ok {
		return cookies
	}

	var cookies []storage.StoredCookie
	if j.store != nil {
		loaded, err := j.store.LoadCookies(context.Background(), host)
		if err != nil {
			j.logger.Warn("failed to load cookies", slog.String("host", host), slog.Any("error", err))
		}
		cookies = loaded
	}
	j.hosts[host] = cookies
	return cookies
}

func (j *PersistentJar) save(host string, cookies []storage.StoredCookie) {
	j.hosts[host] = cookies
	if j.store == nil {
		return
	}
	if err := j.store.SaveCookies(context.Background(), host, cookies); err != nil {
		j.logger.Warn("failed to persist cookies", slog.String("host", host), slog.Any("error", err))
	}
}

// pathMatch правило сопоставления path из RFC 6265 5.1.4
func pathMatch(cookiePath, requestPath string) bool {
	if cookiePath == requestPath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	return strings.HasSuffix(cookiePath, "/") || requestPath[len(cookiePath)] == '/'
}
