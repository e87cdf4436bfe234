package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	headerRequestID    = "X-Request-ID"
	headerUserID       = "X-User-ID"
	contextRequestID   = "request_id"
	maxRequestIDLength = 64
)

// RequestID propagates the caller's request id or assigns a new one. Ids that
// are too long or carry anything but [A-Za-z0-9._-] are replaced so they can
// be logged verbatim.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(headerRequestID)
		if !validRequestID(requestID) {
			requestID = uuid.New().String()
		}

		c.Set(contextRequestID, requestID)
		c.Header(headerRequestID, requestID)

		c.Next()
	}
}

// RequestIDFrom returns the id assigned by RequestID, or "" outside of it.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(contextRequestID)
}

// LogEntry is a logrus entry carrying the request and user ids of c.
func LogEntry(c *gin.Context) *log.Entry {
	return log.WithFields(log.Fields{
		"request_id": RequestIDFrom(c),
		"user_id":    c.GetHeader(headerUserID),
	})
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}
