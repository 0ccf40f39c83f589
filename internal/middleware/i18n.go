// internal/middleware/i18n.go
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/farmchain/farmchain-backend/internal/i18n"
)

func I18nMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("lang", preferredLanguage(c.GetHeader("Accept-Language")))
		c.Next()
	}
}

// preferredLanguage picks the first loaded locale from a header such as
// "ta-IN,ta;q=0.9,en;q=0.8". Quality values are not reordered.
func preferredLanguage(header string) string {
	for _, part := range strings.Split(header, ",") {
		subtags := strings.FieldsFunc(strings.Split(part, ";")[0], func(r rune) bool {
			return r == '-' || r == '_' || r == ' '
		})
		if len(subtags) == 0 {
			continue
		}
		base := strings.ToLower(subtags[0])
		if i18n.Supported(base) {
			return base
		}
	}
	return i18n.DefaultLanguage()
}
