// Package handler holds helpers shared by the role handlers.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/clinic-booking-api/pkg/errors"
	"github.com/jwalitptl/clinic-booking-api/pkg/httputil"
	"github.com/jwalitptl/clinic-booking-api/pkg/storage"
)

// ImageField is the multipart part carrying a profile picture.
const ImageField = "image"

// Bind decodes the request body into obj. On failure it writes the failure
// envelope with message and returns false.
func Bind(c *gin.Context, obj interface{}, message string) bool {
	if err := c.ShouldBind(obj); err != nil {
		httputil.RespondWithError(c, apperrors.Validation(message, err))
		return false
	}
	return true
}

// FormImage opens the uploaded image part. A request without one yields a nil
// file. The returned func closes the part and is always safe to call.
func FormImage(c *gin.Context) (*storage.File, func(), error) {
	header, err := c.FormFile(ImageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, func() {}, nil
		}
		return nil, func() {}, err
	}
	f, err := header.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &storage.File{Filename: header.Filename, Body: f}, func() { _ = f.Close() }, nil
}

// Root answers the bare index with a banner.
func Root(c *gin.Context) {
	c.String(http.StatusOK, "Clinic booking API running")
}
