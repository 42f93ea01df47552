package httpapi

import (
	"net/http"

	"github.com/sujinchoi3/my-todolist/internal/common"
)

func (s *HTTPServer) setRefreshCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.settings.RefreshCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   s.settings.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *HTTPServer) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     common.RefreshTokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.settings.SecureCookies,
		SameSite: http.SameSiteStrictMode,
	})
}

func refreshCookie(r *http.Request) string {
	c, err := r.Cookie(common.RefreshTokenCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
