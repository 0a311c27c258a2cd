package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-inventory/internal/common"
	"github.com/noah-isme/backend-inventory/internal/security"
)

// Handler exposes HTTP handlers for authentication endpoints.
type Handler struct {
	Service          *Service
	AccessCookieName string
	CookieDomain     string
	CookieSecure     bool
	CookieSameSite   http.SameSite
	// CSRF, when set, issues a double-submit token next to the session cookie.
	CSRF *security.CSRF
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "auth service not configured", nil)
		return
	}
	var req loginRequest
	if err := common.DecodeJSON(r, &req); err != nil {
		common.WriteError(w, err)
		return
	}
	result, err := h.Service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	if h.AccessCookieName != "" {
		http.SetCookie(w, h.cookie(result.AccessToken, result.AccessExpiry))
		if h.CSRF != nil {
			c := h.CSRF.CookieFor(uuid.NewString(), h.CookieSecure, h.CookieDomain)
			c.Expires = result.AccessExpiry
			http.SetCookie(w, c)
		}
	}
	common.Data(w, http.StatusOK, result)
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless so only the cookie is cleared.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	if h.AccessCookieName != "" {
		c := h.cookie("", time.Unix(0, 0))
		c.MaxAge = -1
		http.SetCookie(w, c)
		if h.CSRF != nil {
			cc := h.CSRF.CookieFor("", h.CookieSecure, h.CookieDomain)
			cc.MaxAge = -1
			http.SetCookie(w, cc)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/v1/auth/me.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "auth service not configured", nil)
		return
	}
	userID, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, common.CodeUnauthorized, "missing or invalid token", nil)
		return
	}
	emp, err := h.Service.Me(r.Context(), userID)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, emp)
}

func (h *Handler) cookie(value string, expires time.Time) *http.Cookie {
	sameSite := h.CookieSameSite
	if sameSite == http.SameSiteDefaultMode {
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     h.AccessCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.CookieDomain,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: sameSite,
	}
}
