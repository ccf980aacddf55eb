package httpapi

import (
	"net/http"
	"time"

	loginGuard "github.com/MrEthical07/loginGuard"
)

type cookieJar struct {
	cfg        loginGuard.CookieConfig
	sessionTTL time.Duration
	verifyTTL  time.Duration
}

func newCookieJar(cfg loginGuard.Config) cookieJar {
	return cookieJar{
		cfg:        cfg.Cookie,
		sessionTTL: cfg.Session.TTL,
		verifyTTL:  cfg.Verification.TTL,
	}
}

func (j cookieJar) cookie(name, value string, maxAge time.Duration, httpOnly bool) *http.Cookie {
	c := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     j.cfg.Path,
		Domain:   j.cfg.Domain,
		Secure:   j.cfg.Secure,
		HttpOnly: httpOnly,
		SameSite: j.cfg.SameSite,
	}
	if maxAge > 0 {
		c.MaxAge = int(maxAge / time.Second)
		c.Expires = time.Now().Add(maxAge)
	} else {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	}
	return c
}

// setSession writes the httpOnly session cookie and the script-readable
// CSRF cookie the client echoes in the CSRF header.
func (j cookieJar) setSession(w http.ResponseWriter, info *loginGuard.SessionInfo) {
	ttl := info.TTL
	if ttl <= 0 {
		ttl = j.sessionTTL
	}
	http.SetCookie(w, j.cookie(j.cfg.SessionName, info.SessionID, ttl, true))
	http.SetCookie(w, j.cookie(j.cfg.CSRFName, info.CSRFToken, ttl, false))
}

func (j cookieJar) clearSession(w http.ResponseWriter) {
	http.SetCookie(w, j.cookie(j.cfg.SessionName, "", 0, true))
	http.SetCookie(w, j.cookie(j.cfg.CSRFName, "", 0, false))
}

func (j cookieJar) setVerify(w http.ResponseWriter, token string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = j.verifyTTL
	}
	http.SetCookie(w, j.cookie(j.cfg.VerifyName, token, ttl, true))
}

func (j cookieJar) clearVerify(w http.ResponseWriter) {
	http.SetCookie(w, j.cookie(j.cfg.VerifyName, "", 0, true))
}

func (j cookieJar) read(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
