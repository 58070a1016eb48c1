package handler

import (
	"errors"
	"log"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"assetdesk/internal/middleware"
	"assetdesk/internal/service"
	"assetdesk/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var fieldNamesOnce sync.Once

// useJSONFieldNames makes validation errors report the json name of a field,
// or its form name for query and multipart bindings.
func useJSONFieldNames() {
	fieldNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrUnresolvedRole):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrDuplicateIdentity):
		return http.StatusConflict
	case errors.Is(err, service.ErrMediaUpload):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the envelope for a service error. Internal failures are
// logged and hidden from the client.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(status, response.Error("Internal server error"))
		return
	}
	c.JSON(status, response.Error(err.Error()))
}

// respondBindError reports a payload that failed binding, listing the failed rule per field.
func respondBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			name := fe.Field()
			if name == "" {
				name = fe.StructField()
			}
			fields[name] = fe.Tag()
		}
		c.JSON(http.StatusBadRequest, response.Invalid("Invalid request payload", fields))
		return
	}
	c.JSON(http.StatusBadRequest, response.Error("Invalid request payload: "+err.Error()))
}

// callerID returns the authenticated user id; the gate guarantees it is set.
func callerID(c *gin.Context) uuid.UUID {
	identity, _ := middleware.CurrentIdentity(c)
	return identity.UserID
}
