package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/lottery-service/internal/errs"
)

// statusOf maps an error kind to the HTTP status returned to clients.
func statusOf(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConflict:
		return http.StatusConflict
	case errs.KindUnauthenticated, errs.KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// fail writes {success:false, message}. Internal errors are logged and answered with
// fallback; their text never reaches the client.
func fail(c *gin.Context, err error, fallback string) {
	kind := errs.KindOf(err)
	if kind == errs.KindInternal {
		log.Printf("handler: %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	body := gin.H{"success": false, "message": errs.Message(err, fallback)}
	if kind == errs.KindUnauthenticated {
		body["code"] = "unauthenticated"
	}
	c.AbortWithStatusJSON(statusOf(kind), body)
}

func ok(c *gin.Context, body gin.H) {
	body["success"] = true
	c.JSON(http.StatusOK, body)
}
