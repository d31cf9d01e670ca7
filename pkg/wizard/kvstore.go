package wizard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// StateKey is the single key the wizard state document is stored under in
// the external key-value store.
const StateKey = "wizard:state"

// kvRequest is the body every call to the external store sends, per §6.3.
type kvRequest struct {
	StorageType string    `json:"storageType"`
	Operation   string    `json:"operation"`
	Payload     kvPayload `json:"payload"`
}

type kvPayload struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

type kvResponse struct {
	Data  *string `json:"data,omitempty"`
	Error string  `json:"error,omitempty"`
}

// KVStore is an HTTP handle to the external wizard-state key-value store.
type KVStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewKVStore creates a KVStore client. timeout defaults to 10s per §5's
// per-request timeout default.
func NewKVStore(baseURL, token string, timeout time.Duration) *KVStore {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KVStore{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// Get fetches the raw JSON value stored at StateKey. found is false when
// the store has no value for the key yet.
func (s *KVStore) Get(ctx context.Context) (value string, found bool, err error) {
	resp, err := s.do(ctx, kvRequest{
		StorageType: "redis",
		Operation:   "get",
		Payload:     kvPayload{Key: StateKey},
	})
	if err != nil {
		return "", false, err
	}
	if resp.Data == nil {
		return "", false, nil
	}
	return *resp.Data, true, nil
}

// Set writes the raw JSON value at StateKey.
func (s *KVStore) Set(ctx context.Context, value string) error {
	_, err := s.do(ctx, kvRequest{
		StorageType: "redis",
		Operation:   "set",
		Payload:     kvPayload{Key: StateKey, Value: value},
	})
	return err
}

func (s *KVStore) do(ctx context.Context, body kvRequest) (*kvResponse, error) {
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to encode kv request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to build kv request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kv store unreachable: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read kv response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("kv store returned %d: %s", resp.StatusCode, string(raw))
	}

	var parsed kvResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse kv response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("kv store error: %s", parsed.Error)
	}

	return &parsed, nil
}
