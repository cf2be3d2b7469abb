package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// respondError writes a JSON error response
func respondError(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

// respondNotFound writes a JSON 404 for a missing resource
func respondNotFound(c *gin.Context, kind, id string) {
	c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("%s not found: %s", kind, id)})
}

func errUnknownMode(mode string) error {
	return fmt.Errorf("unknown mode %q (want sync, promise or ignored)", mode)
}
