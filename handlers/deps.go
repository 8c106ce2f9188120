package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"tweetube/middleware"
	"tweetube/services"
	"tweetube/utils"

	"github.com/gin-gonic/gin"
)

var appServices *services.Container

func SetServices(container *services.Container) {
	appServices = container
}

func getServices() *services.Container {
	if appServices == nil {
		panic("services container is not initialized")
	}
	return appServices
}

func respondServiceError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	var appErr *services.AppError
	if errors.As(err, &appErr) {
		if appErr.Data != nil {
			utils.ErrorWithData(c, appErr.HTTPCode, appErr.Message, appErr.Data)
		} else {
			utils.Error(c, appErr.HTTPCode, appErr.Message)
		}
		_ = c.Error(err)
		return true
	}
	_ = c.Error(err)
	utils.Error(c, http.StatusInternalServerError, "internal error")
	return true
}

const conflictAttempts = 3

var conflictBackoff = 50 * time.Millisecond

// retryOnConflict reruns fn while it fails with a contention 409, up to three
// attempts in total. The last error is returned unchanged.
func retryOnConflict(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= conflictAttempts; attempt++ {
		err = fn()
		if err == nil || !services.IsRetryable(err) || attempt == conflictAttempts {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(attempt) * conflictBackoff):
		}
	}
	return err
}

// bindOptionalJSON accepts an empty body.
func bindOptionalJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		utils.Error(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.ContextUserID)
}

func queryInt(c *gin.Context, key string, fallback int) int {
	value, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return fallback
	}
	return value
}

func queryBool(c *gin.Context, key string) bool {
	value, _ := strconv.ParseBool(c.Query(key))
	return value
}
