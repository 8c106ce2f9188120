package handlers

import (
	"net/http"

	"tweetube/logger"
	"tweetube/services"
	"tweetube/utils"

	"github.com/gin-gonic/gin"
)

func ListDeletedChannels(c *gin.Context) {
	out, err := getServices().ChannelDeletion.ListDeletedChannels(
		c.Request.Context(),
		queryInt(c, "page", 1),
		queryInt(c, "page_size", 0),
		queryBool(c, "recoverable_only"),
	)
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}

func GetDeletedChannel(c *gin.Context) {
	tombstone, err := getServices().ChannelDeletion.GetDeletedChannel(c.Request.Context(), c.Param("id"))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, tombstone)
}

func GetDeletionStatistics(c *gin.Context) {
	stats, err := getServices().ChannelDeletion.DeletionStatistics(c.Request.Context())
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, stats)
}

type recoverChannelRequest struct {
	NewUserID           string `json:"new_user_id" binding:"required"`
	RestoreWatchHistory bool   `json:"restore_watch_history"`
}

type recoverChannelResponse struct {
	services.RecoverChannelOutput
	WatchHistoryRestored *int64 `json:"watch_history_restored,omitempty"`
}

// RecoverChannel consumes the tombstone :id. Watch history is re-linked
// afterwards in its own transaction when requested; a failure there does not
// undo the recovery.
func RecoverChannel(c *gin.Context) {
	var req recoverChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, "new_user_id is required")
		return
	}

	ctx := c.Request.Context()
	svc := getServices()
	tombstoneID := c.Param("id")

	var out services.RecoverChannelOutput
	err := retryOnConflict(ctx, func() error {
		var err error
		out, err = svc.ChannelRecovery.RecoverChannel(ctx, tombstoneID, req.NewUserID)
		return err
	})
	if respondServiceError(c, err) {
		return
	}

	resp := recoverChannelResponse{RecoverChannelOutput: out}
	if !req.RestoreWatchHistory {
		utils.SuccessWithMessage(c, "channel recovered", resp)
		return
	}

	tombstone, err := svc.ChannelDeletion.GetDeletedChannel(ctx, tombstoneID)
	if err == nil {
		var restored int64
		restored, err = svc.WatchHistory.RestoreWatchHistoryForChannel(ctx, tombstone.OriginalUserID, out.UserID)
		if err == nil {
			resp.WatchHistoryRestored = &restored
			utils.SuccessWithMessage(c, "channel recovered", resp)
			return
		}
	}

	logger.With("channel_recovery").Warn().Err(err).
		Str("deleted_channel_id", tombstoneID).
		Str("user_id", out.UserID).
		Msg("watch history restore failed after recovery")
	utils.SuccessWithMessage(c, "channel recovered; watch history restore failed", resp)
}
