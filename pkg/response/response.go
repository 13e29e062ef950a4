package response

import (
	"errors"
	"net/http"

	"anoa.com/attachments/pkg/apperror"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorObject is one entry of an error envelope.
type ErrorObject struct {
	Title        string `json:"title"`
	Detail       string `json:"detail"`
	PropertyName string `json:"propertyName,omitempty"`
	Status       int    `json:"status"`
}

// Envelope is the body of every response: data on success, errors otherwise.
type Envelope struct {
	Data   any           `json:"data"`
	Errors []ErrorObject `json:"errors,omitempty"`
}

type errorEnvelope struct {
	Errors []ErrorObject `json:"errors"`
}

// Data writes a success envelope. A nil payload is rendered as "data": null.
func Data(c *gin.Context, status int, payload any) {
	c.JSON(status, Envelope{Data: payload})
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, logger *zap.Logger, err error) {
	objects := ErrorObjects(err)
	status := objects[0].Status

	// Log internal errors
	if status == http.StatusInternalServerError && logger != nil {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}

	c.JSON(status, errorEnvelope{Errors: objects})
}

// ErrorObjects flattens err into envelope entries. errors.Join of several
// AppErrors yields one entry each; anything that is not an AppError becomes a
// generic 500 entry.
func ErrorObjects(err error) []ErrorObject {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var objects []ErrorObject
		for _, e := range joined.Unwrap() {
			var appErr *apperror.AppError
			if errors.As(e, &appErr) {
				objects = append(objects, toObject(appErr))
			}
		}
		if len(objects) > 0 {
			return objects
		}
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return []ErrorObject{toObject(appErr)}
	}

	return []ErrorObject{toObject(apperror.Internal(err))}
}

func toObject(e *apperror.AppError) ErrorObject {
	status := e.Status
	if status == 0 {
		status = apperror.MapErrorToStatus(e.Err)
	}
	return ErrorObject{
		Title:        e.Title,
		Detail:       e.Detail,
		PropertyName: e.PropertyName,
		Status:       status,
	}
}
