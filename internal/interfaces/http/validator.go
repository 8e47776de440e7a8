package http

import (
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

const MaxIDLength = 64

var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidID checks if a path id is safe (alphanumeric + underscore + hyphen)
func ValidID(s string) bool {
	return s != "" && len(s) <= MaxIDLength && idPattern.MatchString(s)
}

// pathID reads a path parameter and answers 404 when it cannot be an id.
func pathID(c *gin.Context, name string) (string, bool) {
	id := c.Param(name)
	if !ValidID(id) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"detail": "Risorsa non trovata"})
		return "", false
	}
	return id, true
}

// SanitizeString removes null bytes, invalid UTF-8 and surrounding spaces
func SanitizeString(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	return strings.TrimSpace(s)
}
