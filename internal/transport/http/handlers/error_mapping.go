package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
)

// errorCase pairs a sentinel error with the status and message it maps to.
type errorCase struct {
	err     error
	status  int
	message string
}

// respondMapped writes the response for the first case matching err, falling
// back to the supplied status and message when no sentinel matches.
func respondMapped(c *gin.Context, err error, cases []errorCase, fallbackStatus int, fallbackMessage string) {
	for _, cs := range cases {
		if cs.err == nil {
			continue
		}
		if errors.Is(err, cs.err) {
			c.JSON(cs.status, NewErrorResponse(c, cs.message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
