package services

import "github.com/flowvahq/rewards/models"

// Notifier is the after-the-fact notification sink for point activity. It is
// informed, never consulted: failures must not affect ledger correctness, so
// implementations are expected to be best-effort and non-blocking.
type Notifier interface {
	PointsEarned(userID uint, source models.PointSource, delta int)
}

func notifyEarned(n Notifier, userID uint, source models.PointSource, delta int) {
	if n != nil {
		n.PointsEarned(userID, source, delta)
	}
}
