package handlers

import (
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"tweetube/services"
	"tweetube/utils"

	"github.com/gin-gonic/gin"
)

func ListWatchHistory(c *gin.Context) {
	out, err := getServices().WatchHistory.GetHistory(c.Request.Context(), services.HistoryQuery{
		UserID:          currentUserID(c),
		Page:            queryInt(c, "page", 1),
		PageSize:        queryInt(c, "page_size", 0),
		IncludeArchived: queryBool(c, "include_archived"),
	})
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, out)
}

func GetWatchHistoryStats(c *gin.Context) {
	stats, err := getServices().WatchHistory.GetStats(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, stats)
}

var historyCSVHeader = []string{
	"id", "video_id", "progress", "duration", "progress_percent", "completed",
	"watch_count", "last_watched_at", "archived", "archived_reason",
}

// ExportWatchHistory streams the caller's history as JSON (default) or CSV.
func ExportWatchHistory(c *gin.Context) {
	format := c.DefaultQuery("format", "json")
	if format != "json" && format != "csv" {
		utils.ErrorWithData(c, http.StatusBadRequest, "unsupported export format", gin.H{"field": "format", "value": format})
		return
	}

	userID := currentUserID(c)
	items, err := getServices().WatchHistory.ExportHistory(c.Request.Context(), userID, queryBool(c, "include_archived"))
	if respondServiceError(c, err) {
		return
	}

	if format == "json" {
		c.Header("Content-Disposition", `attachment; filename="watch-history.json"`)
		utils.Success(c, items)
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="watch-history.csv"`)
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(historyCSVHeader)
	for _, item := range items {
		videoID := ""
		if item.VideoID != nil {
			videoID = *item.VideoID
		}
		_ = w.Write([]string{
			item.ID,
			videoID,
			strconv.FormatFloat(item.Progress, 'f', -1, 64),
			strconv.FormatFloat(item.Duration, 'f', -1, 64),
			strconv.FormatFloat(item.ProgressPercent, 'f', 2, 64),
			strconv.FormatBool(item.Completed),
			strconv.Itoa(item.WatchCount),
			item.LastWatchedAt.UTC().Format(time.RFC3339),
			strconv.FormatBool(item.Archived),
			item.ArchivedReason,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = c.Error(err)
	}
}

// ClearWatchHistory removes the caller's active records. Archived records stay.
func ClearWatchHistory(c *gin.Context) {
	removed, err := getServices().WatchHistory.ClearHistory(c.Request.Context(), currentUserID(c))
	if respondServiceError(c, err) {
		return
	}
	utils.SuccessWithMessage(c, "watch history cleared", gin.H{"removed": removed})
}

func CleanupOrphanedHistory(c *gin.Context) {
	archived, err := getServices().WatchHistory.CleanupOrphanedHistory(c.Request.Context(), queryInt(c, "limit", 0))
	if respondServiceError(c, err) {
		return
	}
	utils.Success(c, gin.H{"archived": archived})
}
