package beacon

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/allegro/bigcache"
	"github.com/pborman/uuid"

	"github.com/meridianio/go-meridian/logger"
)

var log = logger.NewLogger("[beacon]")

// ErrUnknownPayload is returned when a payload id does not resolve to a
// build job, either because it never existed or because it expired.
var ErrUnknownPayload = errors.New("unknown payload")

// payloadTTL is how long a built payload stays retrievable. Consensus
// clients fetch payloads within seconds of requesting them.
const payloadTTL = 2 * time.Minute

// PayloadStore keeps recently built payload envelopes, keyed by their build
// job id, until the consensus client fetches them.
type PayloadStore struct {
	cache *bigcache.BigCache
}

// NewPayloadStore creates an empty store.
func NewPayloadStore() (*PayloadStore, error) {
	cache, err := bigcache.NewBigCache(bigcache.DefaultConfig(payloadTTL))
	if err != nil {
		return nil, err
	}
	return &PayloadStore{cache: cache}, nil
}

// Put stores the envelope and returns the id under which it is retrievable.
func (store *PayloadStore) Put(envelope *ExecutionPayloadEnvelope) (PayloadID, error) {
	var id PayloadID
	copy(id[:], uuid.NewRandom())
	blob, err := json.Marshal(envelope)
	if err != nil {
		return PayloadID{}, err
	}
	if err := store.cache.Set(id.String(), blob); err != nil {
		return PayloadID{}, err
	}
	log.Debugf("payload stored: id=%s block=%d", id, envelope.ExecutionPayload.BlockNumber)
	return id, nil
}

// Get resolves a payload id back to its envelope.
func (store *PayloadStore) Get(id PayloadID) (*ExecutionPayloadEnvelope, error) {
	blob, err := store.cache.Get(id.String())
	if err != nil {
		return nil, ErrUnknownPayload
	}
	envelope := new(ExecutionPayloadEnvelope)
	if err := json.Unmarshal(blob, envelope); err != nil {
		return nil, err
	}
	return envelope, nil
}
