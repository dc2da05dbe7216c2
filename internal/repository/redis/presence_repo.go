package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// presenceTTL bounds how stale a crashed instance's presence keys can get
const presenceTTL = 5 * time.Minute

// PresenceRepository mirrors user online/offline state in Redis. The
// in-process connection registry is authoritative at any instant; this
// mirror exists so operational tooling and future sibling services can read
// presence without a round-trip into the chat process.
type PresenceRepository struct {
	client *redis.Client
}

// NewPresenceRepository creates a new PresenceRepository
func NewPresenceRepository(client *redis.Client) *PresenceRepository {
	return &PresenceRepository{client: client}
}

func presenceKey(userID uuid.UUID) string {
	return fmt.Sprintf("presence:%s", userID)
}

// SetUserOnline marks user as online
func (r *PresenceRepository) SetUserOnline(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Set(ctx, presenceKey(userID), "online", presenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to set user online: %w", err)
	}
	if err := r.client.SAdd(ctx, "presence:online", userID.String()).Err(); err != nil {
		return fmt.Errorf("failed to add to online set: %w", err)
	}
	return nil
}

// SetUserOffline marks user as offline
func (r *PresenceRepository) SetUserOffline(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Del(ctx, presenceKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete presence: %w", err)
	}
	if err := r.client.SRem(ctx, "presence:online", userID.String()).Err(); err != nil {
		return fmt.Errorf("failed to remove from online set: %w", err)
	}
	return nil
}

// RefreshPresence extends the TTL, driven by client pings
func (r *PresenceRepository) RefreshPresence(ctx context.Context, userID uuid.UUID) error {
	if err := r.client.Expire(ctx, presenceKey(userID), presenceTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh presence: %w", err)
	}
	return nil
}

// IsUserOnline checks the mirror for a user's presence key
func (r *PresenceRepository) IsUserOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	exists, err := r.client.Exists(ctx, presenceKey(userID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check presence: %w", err)
	}
	return exists > 0, nil
}

// GetOnlineUsers retrieves the set of online user IDs
func (r *PresenceRepository) GetOnlineUsers(ctx context.Context) ([]uuid.UUID, error) {
	members, err := r.client.SMembers(ctx, "presence:online").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get online users: %w", err)
	}

	userIDs := make([]uuid.UUID, 0, len(members))
	for _, idStr := range members {
		userID, err := uuid.Parse(idStr)
		if err != nil {
			continue // Skip invalid entries
		}
		userIDs = append(userIDs, userID)
	}
	return userIDs, nil
}
