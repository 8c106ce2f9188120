package handlers

import (
	"tweetube/models"
	"tweetube/services"
	"tweetube/utils"

	"github.com/gin-gonic/gin"
)

type deleteChannelRequest struct {
	Reason                string                    `json:"reason"`
	DataRetention         models.RetentionOverrides `json:"data_retention"`
	WatchHistoryRetention string                    `json:"watch_history_retention"`
}

func (r deleteChannelRequest) toInput(userID string, deletedBy *string) services.DeleteChannelInput {
	return services.DeleteChannelInput{
		UserID:                userID,
		Reason:                r.Reason,
		DeletedBy:             deletedBy,
		DataRetention:         r.DataRetention,
		WatchHistoryRetention: r.WatchHistoryRetention,
	}
}

func deleteChannel(c *gin.Context, in services.DeleteChannelInput) {
	ctx := c.Request.Context()
	var out services.DeleteChannelOutput
	err := retryOnConflict(ctx, func() error {
		var err error
		out, err = getServices().ChannelDeletion.DeleteChannel(ctx, in)
		return err
	})
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "channel deleted", out)
}

// DeleteOwnChannel deletes the authenticated user's channel.
func DeleteOwnChannel(c *gin.Context) {
	var req deleteChannelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	deleteChannel(c, req.toInput(currentUserID(c), nil))
}

// AdminDeleteChannel deletes :id on behalf of the calling admin.
func AdminDeleteChannel(c *gin.Context) {
	var req deleteChannelRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	adminID := currentUserID(c)
	deleteChannel(c, req.toInput(c.Param("id"), &adminID))
}
