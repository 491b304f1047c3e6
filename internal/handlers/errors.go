package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/emilythestrangee/commpolls/backend/internal/service"
)

func statusFor(kind service.Kind) int {
	switch kind {
	case service.KindValidation:
		return http.StatusBadRequest
	case service.KindPermission:
		return http.StatusForbidden
	case service.KindConflict:
		return http.StatusConflict
	case service.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// respondError translates a service error into a JSON error body. Anything that is not
// a domain error is logged and hidden behind a 500.
func respondError(c *gin.Context, err error) {
	var domainErr *service.Error
	if !errors.As(err, &domainErr) {
		log.WithError(err).WithField("path", c.Request.URL.Path).Error("❌ Unhandled error")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": domainErr.Message}
	if domainErr.Signal != "" {
		body["signal"] = domainErr.Signal
	}
	c.JSON(statusFor(domainErr.Kind), body)
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// pollID parses the :id path parameter, answering 404 when it is not a positive integer.
func pollID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Poll not found"})
		return 0, false
	}
	return id, true
}

func resultsPath(id int) string { return "/polls/" + strconv.Itoa(id) + "/results/" }
func votePath(id int) string { return "/polls/" + strconv.Itoa(id) + "/vote/" }
func countdownPath(id int) string { return "/polls/" + strconv.Itoa(id) + "/countdown/" }
