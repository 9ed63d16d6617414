// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ludora/ludora-backend/internal/i18n"
)

// I18n resolves the response language from the query string or the
// Accept-Language header and stores it in context.
func I18n(defaultLocale string) gin.HandlerFunc {
	supported := map[string]bool{}
	for _, lang := range i18n.GetSupportedLanguages() {
		supported[lang] = true
	}

	return func(c *gin.Context) {
		lang := c.Query("lang")
		if lang == "" {
			lang = parseAcceptLanguage(c.GetHeader("Accept-Language"), supported)
		}
		if !supported[lang] {
			lang = defaultLocale
		}

		c.Set("lang", lang)
		c.Next()
	}
}

func parseAcceptLanguage(header string, supported map[string]bool) string {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if tag == "" {
			continue
		}
		// "he-IL" matches "he"
		base := strings.SplitN(tag, "-", 2)[0]
		if supported[base] {
			return base
		}
	}
	return ""
}
