package api

import (
	"net/http"
	"sync"
	"time"

	"navigator-backend/internal/email/usecase"

	"github.com/gin-gonic/gin"
)

// Sync settings can be tuned at runtime; every sync run reads a snapshot.
var (
	runtimeSync     usecase.SyncSettings
	runtimeSyncLock sync.RWMutex
)

// InitRuntimeSyncSettings seeds the runtime settings from static config
func InitRuntimeSyncSettings(s usecase.SyncSettings) {
	runtimeSyncLock.Lock()
	defer runtimeSyncLock.Unlock()
	runtimeSync = s
}

// GetRuntimeSyncSettings returns the current sync settings
func GetRuntimeSyncSettings() usecase.SyncSettings {
	runtimeSyncLock.RLock()
	defer runtimeSyncLock.RUnlock()
	return runtimeSync
}

// UpdateSyncSettingsRequest fields are optional; omitted ones keep their value.
// Interval is a Go duration string such as "7s".
type UpdateSyncSettingsRequest struct {
	Interval     string `json:"interval"`
	MaxResults   *int   `json:"max_results"`
	LookbackDays *int   `json:"lookback_days"`
	MaxRetries   *int   `json:"max_retries"`
}

func syncSettingsJSON(s usecase.SyncSettings) gin.H {
	return gin.H{
		"interval":      s.Interval.String(),
		"max_results":   s.MaxResults,
		"lookback_days": s.LookbackDays,
		"max_retries":   s.MaxRetries,
	}
}

// GET /api/settings/sync
func GetSyncSettings(c *gin.Context) {
	c.JSON(http.StatusOK, syncSettingsJSON(GetRuntimeSyncSettings()))
}

// PUT /api/settings/sync
func UpdateSyncSettings(c *gin.Context) {
	var req UpdateSyncSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runtimeSyncLock.Lock()
	next := runtimeSync
	if req.Interval != "" {
		d, err := time.ParseDuration(req.Interval)
		if err != nil || d < 0 {
			runtimeSyncLock.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"error": "interval must be a non-negative duration like 7s"})
			return
		}
		next.Interval = d
	}
	if req.MaxResults != nil {
		if *req.MaxResults < 1 || *req.MaxResults > 100 {
			runtimeSyncLock.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_results must be between 1 and 100"})
			return
		}
		next.MaxResults = *req.MaxResults
	}
	if req.LookbackDays != nil {
		if *req.LookbackDays < 1 {
			runtimeSyncLock.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"error": "lookback_days must be positive"})
			return
		}
		next.LookbackDays = *req.LookbackDays
	}
	if req.MaxRetries != nil {
		if *req.MaxRetries < 0 {
			runtimeSyncLock.Unlock()
			c.JSON(http.StatusBadRequest, gin.H{"error": "max_retries must not be negative"})
			return
		}
		next.MaxRetries = *req.MaxRetries
	}
	runtimeSync = next
	runtimeSyncLock.Unlock()

	c.JSON(http.StatusOK, gin.H{
		"message":  "Sync settings updated successfully",
		"settings": syncSettingsJSON(next),
	})
}
