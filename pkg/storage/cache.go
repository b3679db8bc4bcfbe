package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/earlycare-ai/gateway/pkg/common/logger"
	"github.com/earlycare-ai/gateway/pkg/common/models"
	"github.com/redis/go-redis/v9"
)

// DecisionCache keeps the latest decision per patient in Redis so the
// monitoring surface can answer without hitting Postgres.
type DecisionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDecisionCache(client *redis.Client, ttl time.Duration) *DecisionCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DecisionCache{client: client, ttl: ttl}
}

func decisionKey(patientID string) string {
	return fmt.Sprintf("decision:latest:%s", patientID)
}

// Put stores the decision best effort; cache failures are logged, never
// returned.
func (c *DecisionCache) Put(ctx context.Context, decision *models.DecisionSupport) {
	payload, err := json.Marshal(decision)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to marshal decision for cache")
		return
	}
	if err := c.client.Set(ctx, decisionKey(decision.PatientID), payload, c.ttl).Err(); err != nil {
		logger.Log.WithError(err).WithField("patient_id", decision.PatientID).
			Warn("Decision not cached")
	}
}

// GetLatest returns the cached latest decision for a patient, or nil on a
// miss.
func (c *DecisionCache) GetLatest(ctx context.Context, patientID string) (*models.DecisionSupport, error) {
	payload, err := c.client.Get(ctx, decisionKey(patientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var decision models.DecisionSupport
	if err := json.Unmarshal(payload, &decision); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached decision: %w", err)
	}
	return &decision, nil
}
