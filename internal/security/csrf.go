package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/noah-isme/backend-inventory/internal/common"
)

// DefaultCSRFName is used for both the header and the cookie when unset.
const DefaultCSRFName = "X-CSRF-Token"

// CSRF protects cookie-authenticated writes using the double-submit technique.
// Requests carrying a bearer token or no session cookie are not checked.
type CSRF struct {
	Header        string
	Cookie        string
	SessionCookie string
}

func (c CSRF) names() (header, cookie string) {
	header, cookie = strings.TrimSpace(c.Header), strings.TrimSpace(c.Cookie)
	if header == "" {
		header = DefaultCSRFName
	}
	if cookie == "" {
		cookie = header
	}
	return header, cookie
}

// Middleware enforces that unsafe requests include a header matching the CSRF cookie.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	headerName, cookieName := c.names()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
			next.ServeHTTP(w, r)
			return
		}
		auth := strings.TrimSpace(r.Header.Get("Authorization"))
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			next.ServeHTTP(w, r)
			return
		}
		if c.SessionCookie != "" {
			if _, err := r.Cookie(c.SessionCookie); err != nil {
				next.ServeHTTP(w, r)
				return
			}
		}

		token := strings.TrimSpace(r.Header.Get(headerName))
		cookie, err := r.Cookie(cookieName)
		switch {
		case token == "":
			forbidden(w, "missing csrf token")
		case err != nil || strings.TrimSpace(cookie.Value) == "":
			forbidden(w, "missing csrf cookie")
		case subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1:
			forbidden(w, "invalid csrf token")
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// CookieFor builds the readable cookie carrying token for the browser to echo back.
func (c CSRF) CookieFor(token string, secure bool, domain string) *http.Cookie {
	_, cookieName := c.names()
	return &http.Cookie{
		Name:     cookieName,
		Value:    token,
		Path:     "/",
		Domain:   domain,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func forbidden(w http.ResponseWriter, msg string) {
	common.JSONError(w, http.StatusForbidden, common.CodeForbidden, msg, nil)
}
