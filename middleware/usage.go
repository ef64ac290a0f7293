package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flowvahq/rewards/models"
)

// UsageRecorder aggregates successful API hits per day and route so the stats
// endpoint can report daily activity without scanning the ledger.
func UsageRecorder(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		if status < 200 || status >= 400 {
			return
		}

		// Use the route pattern, not the raw path, so /points/history?page=2
		// and parameterized routes aggregate into one row.
		path := c.FullPath()
		if path == "" || path == "/health" {
			return
		}

		now := time.Now().UTC()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

		// Atomic upsert to avoid duplicate key errors under concurrency
		_ = db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}, {Name: "path"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1"), "updated_at": time.Now()}),
		}).Create(&models.DailyUsage{Date: midnight, Path: path, Count: 1}).Error
	}
}
