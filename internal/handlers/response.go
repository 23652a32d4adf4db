package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"chat-backend/internal/models"
	"chat-backend/internal/service"
)

func respond(c *gin.Context, status int, message string, result any) {
	c.JSON(status, models.Envelope{Success: true, Message: message, Result: result})
}

func fail(c *gin.Context, status int, message string) {
	c.JSON(status, models.Envelope{Success: false, Message: message})
}

// respondError maps service errors to status codes. Storage details are
// logged and never returned to the caller.
func respondError(c *gin.Context, log *logrus.Logger, err error) {
	var storage *service.StorageError
	switch {
	case errors.Is(err, service.ErrValidation):
		fail(c, http.StatusBadRequest, validationMessage(err))
	case errors.Is(err, service.ErrPermission):
		fail(c, http.StatusForbidden, "permission denied")
	case errors.Is(err, service.ErrSelfChat), errors.Is(err, service.ErrSelfFriend):
		fail(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		fail(c, http.StatusNotFound, "not found")
	case errors.As(err, &storage):
		log.WithError(storage.Err).WithFields(logrus.Fields{
			"op":         storage.Op,
			"request_id": requestID(c),
		}).Error("storage failure")
		fail(c, http.StatusInternalServerError, "internal error")
	default:
		log.WithError(err).WithField("request_id", requestID(c)).Error("unhandled error")
		fail(c, http.StatusInternalServerError, "internal error")
	}
}

func validationMessage(err error) string {
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, service.ErrValidation.Error()+": "); ok {
		return rest
	}
	return msg
}
