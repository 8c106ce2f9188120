package handlers

import (
	"tweetube/utils"

	"github.com/gin-gonic/gin"
)

func GetProfile(c *gin.Context) {
	user, err := getServices().User.GetProfile(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, user)
}

// RecalculateUserCounters rebuilds the cached counters of :id from source rows.
func RecalculateUserCounters(c *gin.Context) {
	user, err := getServices().User.RecalculateCounters(c.Request.Context(), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "counters recalculated", user)
}
