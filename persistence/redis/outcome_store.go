package redis

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tokenarena/arenakit"
)

// Key layout for outcome storage
const (
	outcomeKeyPrefix  = "arenakit:outcome:"       // outcome data by request id
	outcomePendingSet = "arenakit:outcome:pending" // set of request ids without a receipt
)

// OutcomeStore provides Redis-based persistence for transaction outcomes.
// It implements the arenakit.OutcomeStore interface.
type OutcomeStore struct {
	client    redis.UniversalClient
	keyPrefix string
	ttl       time.Duration
}

var _ arenakit.OutcomeStore = (*OutcomeStore)(nil)

// OutcomeStoreOption configures an OutcomeStore.
type OutcomeStoreOption func(*OutcomeStore)

// WithOutcomeKeyPrefix sets a custom prefix for all Redis keys.
func WithOutcomeKeyPrefix(prefix string) OutcomeStoreOption {
	return func(s *OutcomeStore) {
		s.keyPrefix = prefix
	}
}

// WithOutcomeTTL sets an expiry on settled outcome records. Pending outcomes
// never expire. Zero means no expiry.
func WithOutcomeTTL(ttl time.Duration) OutcomeStoreOption {
	return func(s *OutcomeStore) {
		s.ttl = ttl
	}
}

// NewOutcomeStore creates a new Redis-based outcome store.
func NewOutcomeStore(client redis.UniversalClient, opts ...OutcomeStoreOption) *OutcomeStore {
	s := &OutcomeStore{
		client: client,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// key returns the full Redis key with optional prefix.
func (s *OutcomeStore) key(parts ...string) string {
	key := ""
	for _, p := range parts {
		key += p
	}
	if s.keyPrefix != "" {
		return s.keyPrefix + ":" + key
	}
	return key
}

// outcomeData is the JSON-serializable form of TxOutcome
type outcomeData struct {
	RequestID   string `json:"request_id"`
	Hash        string `json:"hash,omitempty"`
	ReceiptJSON []byte `json:"receipt_json,omitempty"`
	Confirmed   bool   `json:"confirmed"`
	ErrMsg      string `json:"err_msg,omitempty"`
	UpdatedAt   int64  `json:"updated_at"` // Nanoseconds
}

func serializeOutcome(outcome *arenakit.TxOutcome) ([]byte, error) {
	data := outcomeData{
		RequestID: outcome.RequestID,
		Confirmed: outcome.Confirmed,
		UpdatedAt: outcome.UpdatedAt.UnixNano(),
	}
	if outcome.Hash != nil {
		data.Hash = outcome.Hash.Hex()
	}
	if outcome.Receipt != nil {
		receiptJSON, err := json.Marshal(outcome.Receipt)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize receipt: %w", err)
		}
		data.ReceiptJSON = receiptJSON
	}
	if outcome.Err != nil {
		data.ErrMsg = outcome.Err.Error()
	}
	return json.Marshal(data)
}

func deserializeOutcome(raw []byte) (*arenakit.TxOutcome, error) {
	var data outcomeData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to deserialize outcome: %w", err)
	}
	outcome := &arenakit.TxOutcome{
		RequestID: data.RequestID,
		Confirmed: data.Confirmed,
		UpdatedAt: time.Unix(0, data.UpdatedAt),
	}
	if data.Hash != "" {
		hash := common.HexToHash(data.Hash)
		outcome.Hash = &hash
	}
	if len(data.ReceiptJSON) > 0 {
		var receipt types.Receipt
		if err := json.Unmarshal(data.ReceiptJSON, &receipt); err != nil {
			return nil, fmt.Errorf("failed to deserialize receipt: %w", err)
		}
		outcome.Receipt = &receipt
	}
	if data.ErrMsg != "" {
		outcome.Err = fmt.Errorf("%s", data.ErrMsg)
	}
	return outcome, nil
}

// Save persists an outcome. Uses WATCH/MULTI/EXEC so a concurrent settle and
// re-save never leave the pending index inconsistent. A confirmed outcome is
// never overwritten by an unconfirmed one.
func (s *OutcomeStore) Save(ctx context.Context, outcome *arenakit.TxOutcome) error {
	if outcome == nil {
		return fmt.Errorf("outcome cannot be nil")
	}
	if outcome.RequestID == "" {
		return fmt.Errorf("outcome request id cannot be empty")
	}

	dataKey := s.key(outcomeKeyPrefix, outcome.RequestID)
	pendingKey := s.key(outcomePendingSet)

	const maxRetries = 10
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		if i > 0 {
			backoff := time.Duration(1<<uint(i-1)) * time.Millisecond
			jitter := time.Duration(rand.Int63n(int64(backoff/2 + 1)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff + jitter):
			}
		}

		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			existingRaw, err := rtx.Get(ctx, dataKey).Bytes()
			if err != nil && err != redis.Nil {
				return fmt.Errorf("failed to get existing outcome: %w", err)
			}
			if err != redis.Nil {
				if existing, parseErr := deserializeOutcome(existingRaw); parseErr == nil {
					if existing.Confirmed && !outcome.Confirmed {
						return nil
					}
				}
			}

			raw, err := serializeOutcome(outcome)
			if err != nil {
				return err
			}

			settled := outcome.Receipt != nil || outcome.Err != nil
			_, err = rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				ttl := time.Duration(0)
				if settled && s.ttl > 0 {
					ttl = s.ttl
				}
				pipe.Set(ctx, dataKey, raw, ttl)
				if settled {
					pipe.SRem(ctx, pendingKey, outcome.RequestID)
				} else {
					pipe.SAdd(ctx, pendingKey, outcome.RequestID)
				}
				return nil
			})
			return err
		}, dataKey)

		if err == nil {
			return nil
		}
		if err == redis.TxFailedErr {
			lastErr = err
			continue
		}
		return err
	}
	return fmt.Errorf("failed to save outcome after %d retries: %w", maxRetries, lastErr)
}

// Get returns the outcome for a request id, or redis.Nil wrapped when absent.
func (s *OutcomeStore) Get(ctx context.Context, requestID string) (*arenakit.TxOutcome, error) {
	raw, err := s.client.Get(ctx, s.key(outcomeKeyPrefix, requestID)).Bytes()
	if err == redis.Nil {
		return nil, fmt.Errorf("outcome %s not found: %w", requestID, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get outcome: %w", err)
	}
	return deserializeOutcome(raw)
}

// ListPending returns all outcomes that have a hash but no receipt yet.
// Index entries whose data key has vanished are cleaned up on the way.
func (s *OutcomeStore) ListPending(ctx context.Context) ([]*arenakit.TxOutcome, error) {
	pendingKey := s.key(outcomePendingSet)
	ids, err := s.client.SMembers(ctx, pendingKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list pending outcomes: %w", err)
	}

	outcomes := make([]*arenakit.TxOutcome, 0, len(ids))
	for _, id := range ids {
		raw, err := s.client.Get(ctx, s.key(outcomeKeyPrefix, id)).Bytes()
		if err == redis.Nil {
			s.client.SRem(ctx, pendingKey, id)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get pending outcome %s: %w", id, err)
		}
		outcome, err := deserializeOutcome(raw)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, nil
}

// Delete removes an outcome and its pending index entry.
func (s *OutcomeStore) Delete(ctx context.Context, requestID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(outcomeKeyPrefix, requestID))
		pipe.SRem(ctx, s.key(outcomePendingSet), requestID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete outcome %s: %w", requestID, err)
	}
	return nil
}
