// Package results stores execution result payloads. Small results travel
// inline on the live action record; results above a size threshold are
// offloaded to object storage and replaced on the record with a reference
// envelope, so one oversized runner output cannot bloat the record store.
package results

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/runforge-labs/actiond/internal/domain"
	"github.com/runforge-labs/actiond/internal/storage/objectstore"
)

const (
	// DefaultInlineLimit mirrors the common document-store field budget.
	DefaultInlineLimit = 64 * 1024

	envelopeKeyOffloaded = "_offloaded"
	envelopeKeyBucket    = "bucket"
	envelopeKeyObjectKey = "key"
	envelopeKeySizeBytes = "size_bytes"
)

type Store struct {
	objects     objectstore.Store
	bucket      string
	inlineLimit int
}

// New returns a store writing oversized payloads to objects. A nil objects
// store disables offloading; every result then stays inline.
func New(objects objectstore.Store, bucket string, inlineLimit int) *Store {
	if inlineLimit <= 0 {
		inlineLimit = DefaultInlineLimit
	}
	return &Store{objects: objects, bucket: bucket, inlineLimit: inlineLimit}
}

// Save returns the payload to persist on the record: the result itself when
// it fits inline, otherwise an offload envelope pointing at the stored object.
func (s *Store) Save(ctx context.Context, liveActionID string, result domain.Metadata) (domain.Metadata, error) {
	if result == nil {
		return nil, fmt.Errorf("result is required")
	}
	if s == nil || s.objects == nil {
		return result, nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	if len(raw) <= s.inlineLimit {
		return result, nil
	}

	key := objectKey(liveActionID)
	if err := s.objects.Put(ctx, s.bucket, key, bytes.NewReader(raw), int64(len(raw)), "application/json"); err != nil {
		return nil, fmt.Errorf("offload result for %s: %w", liveActionID, err)
	}
	return domain.Metadata{
		envelopeKeyOffloaded: true,
		envelopeKeyBucket:    s.bucket,
		envelopeKeyObjectKey: key,
		envelopeKeySizeBytes: len(raw),
	}, nil
}

// Load resolves a persisted payload back to the full result, fetching the
// stored object when the payload is an offload envelope.
func (s *Store) Load(ctx context.Context, persisted domain.Metadata) (domain.Metadata, error) {
	if !IsOffloaded(persisted) {
		return persisted, nil
	}
	if s == nil || s.objects == nil {
		return nil, fmt.Errorf("result is offloaded but no object store is configured")
	}
	bucket, _ := persisted[envelopeKeyBucket].(string)
	key, _ := persisted[envelopeKeyObjectKey].(string)
	if strings.TrimSpace(bucket) == "" || strings.TrimSpace(key) == "" {
		return nil, fmt.Errorf("offload envelope missing bucket or key")
	}
	body, _, err := s.objects.Get(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("fetch offloaded result: %w", err)
	}
	defer func() { _ = body.Close() }()
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read offloaded result: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode offloaded result: %w", err)
	}
	return domain.Metadata(out), nil
}

// IsOffloaded reports whether a persisted payload is an offload envelope.
func IsOffloaded(persisted domain.Metadata) bool {
	if persisted == nil {
		return false
	}
	flag, ok := persisted[envelopeKeyOffloaded].(bool)
	return ok && flag
}

func objectKey(liveActionID string) string {
	return "results/" + liveActionID + ".json"
}
