package utils

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/flowvahq/rewards/models"
)

const (
	notifyListPrefix = "notify:user:"
	notifyListMax    = 50
	notifyListTTL    = 7 * 24 * time.Hour
)

// notifyEntry is the JSON shape pushed onto a user's notification list.
type notifyEntry struct {
	Source models.PointSource `json:"source"`
	Delta  int                `json:"delta"`
	At     time.Time          `json:"at"`
}

// RedisNotifier is the after-the-fact notification sink: recent point
// activity is kept in a capped Redis list per user for the UI to display.
// It satisfies services.Notifier; every operation is best-effort.
type RedisNotifier struct{}

// PointsEarned pushes one activity entry onto the user's list.
func (RedisNotifier) PointsEarned(userID uint, source models.PointSource, delta int) {
	rc := GetRedis()
	if rc == nil {
		return
	}
	b, err := json.Marshal(notifyEntry{Source: source, Delta: delta, At: time.Now().UTC()})
	if err != nil {
		return
	}
	key := notifyListPrefix + itoa(userID)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	pipe := rc.Pipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, notifyListMax-1)
	pipe.Expire(ctx, key, notifyListTTL)
	if _, err := pipe.Exec(ctx); err != nil && Sugar != nil {
		Sugar.Debugf("notify push failed user=%d err=%v", userID, err)
	}
}

// RecentActivity returns the user's latest notification entries as raw JSON.
func RecentActivity(userID uint) []string {
	rc := GetRedis()
	if rc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	items, err := rc.LRange(ctx, notifyListPrefix+itoa(userID), 0, notifyListMax-1).Result()
	if err != nil {
		return nil
	}
	return items
}

func itoa(n uint) string {
	return strconv.FormatUint(uint64(n), 10)
}
