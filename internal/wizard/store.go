// Package wizard persists project-creation wizard progress per session
// so a half-filled form survives page reloads and device switches.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Progress is the saved wizard state: the step the user reached plus the
// raw field values entered so far. Fields stay opaque; the store never
// interprets them.
type Progress struct {
	Step      int                        `json:"step"`
	Fields    map[string]json.RawMessage `json:"fields,omitempty"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

type Store struct {
	client *redis.Client
	ttl    time.Duration
	log    zerolog.Logger
}

func NewStore(client *redis.Client, log zerolog.Logger) *Store {
	return &Store{
		client: client,
		ttl:    7 * 24 * time.Hour,
		log:    log,
	}
}

// Load returns the saved progress for the session. A missing or
// unparseable record yields fresh progress; stale drafts are never an
// error.
func (s *Store) Load(ctx context.Context, ownerID string) *Progress {
	data, err := s.client.Get(ctx, storeKey(ownerID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Progress{}
	}
	if err != nil {
		s.log.Warn().Err(err).Str("owner", ownerID).Msg("wizard progress load failed")
		return &Progress{}
	}

	var progress Progress
	if err := json.Unmarshal(data, &progress); err != nil {
		s.log.Warn().Err(err).Str("owner", ownerID).Msg("discarding unparseable wizard progress")
		return &Progress{}
	}
	return &progress
}

// Save overwrites the session's progress, last write wins.
func (s *Store) Save(ctx context.Context, ownerID string, progress *Progress) error {
	progress.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("marshal wizard progress: %w", err)
	}
	if err := s.client.Set(ctx, storeKey(ownerID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save wizard progress: %w", err)
	}
	return nil
}

// Reset drops the saved progress, typically after the project is
// submitted.
func (s *Store) Reset(ctx context.Context, ownerID string) error {
	if err := s.client.Del(ctx, storeKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("reset wizard progress: %w", err)
	}
	return nil
}

func storeKey(ownerID string) string {
	return fmt.Sprintf("wizard:%s", ownerID)
}
