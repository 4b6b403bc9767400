package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-booking-api/pkg/errors"
)

// RequestIDKey is the gin context key holding the request id.
const RequestIDKey = "request_id"

// RespondWithSuccess sends {success:true, message?, ...payload}.
func RespondWithSuccess(c *gin.Context, message string, payload gin.H) {
	body := gin.H{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// RespondWithError converts err to the failure envelope. Domain failures keep
// HTTP 200 so existing clients can read the body; the code field names the kind.
func RespondWithError(c *gin.Context, err error) {
	code := errors.CodeOf(err)
	message := "internal server error"

	var appErr *errors.AppError
	if errors.As(err, &appErr) && code != errors.ErrInternal {
		message = appErr.Message
	}

	if code == errors.ErrInternal || code == errors.ErrExternalService {
		log.Error().
			Err(err).
			Str("request_id", c.GetString(RequestIDKey)).
			Str("path", c.Request.URL.Path).
			Str("code", code.String()).
			Msg("request failed")
	}

	c.JSON(http.StatusOK, gin.H{
		"success": false,
		"message": message,
		"code":    code.String(),
	})
}

// RespondUnauthorized aborts the chain with a 401 envelope.
func RespondUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"message": message,
		"code":    errors.ErrUnauthorized.String(),
	})
}
