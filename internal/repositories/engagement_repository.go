package repositories

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

// LikeRepository toggles like edges. Toggle must be atomic: a composite
// uniqueness constraint plus upsert-and-flip guarantees at most one edge row
// per (user, target) pair even under concurrent toggles.
type LikeRepository interface {
	Toggle(ctx context.Context, target models.LikeTarget, targetID, userID string) (models.Like, error)
}

// SubscriptionRepository toggles subscription edges with the same atomic
// upsert-and-flip semantics as likes.
type SubscriptionRepository interface {
	Toggle(ctx context.Context, channelID, subscriberID string) (models.Subscription, error)
}
