package web

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const noticeCookie = "housezen_notice"

func setNotice(c *gin.Context, msg string, isError bool, secure bool) {
	kind := "i"
	if isError {
		kind = "e"
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(noticeCookie, kind+":"+msg, 60, "/", "", secure, true)
}

// takeNotice returns and clears the pending notice.
func takeNotice(c *gin.Context, secure bool) (string, bool, bool) {
	raw, err := c.Cookie(noticeCookie)
	if err != nil || raw == "" {
		return "", false, false
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(noticeCookie, "", -1, "/", "", secure, true)

	kind, msg, ok := strings.Cut(raw, ":")
	if !ok || msg == "" {
		return "", false, false
	}
	return msg, kind == "e", true
}
