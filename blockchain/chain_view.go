package blockchain

import (
	"encoding/json"

	lru "github.com/hashicorp/golang-lru"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/config"
	"github.com/meridianio/go-meridian/database"
)

const headerCacheLimit = 512

// maxBlockHashDepth is how far back BLOCKHASH may reach.
const maxBlockHashDepth = 256

// HeaderChain is a minimal canonical-chain view backed by a key-value store
// of headers, with an LRU cache in front. It implements ChainContext for the
// block processor.
type HeaderChain struct {
	chainConfig *config.ChainConfig
	diskdb      database.Database
	headerCache *lru.Cache // Cache for the most recent block headers
}

// NewHeaderChain creates a chain view over the given store.
func NewHeaderChain(chainConfig *config.ChainConfig, diskdb database.Database) *HeaderChain {
	headerCache, _ := lru.New(headerCacheLimit)
	return &HeaderChain{
		chainConfig: chainConfig,
		diskdb:      diskdb,
		headerCache: headerCache,
	}
}

// Config retrieves the header chain's chain configuration.
func (hc *HeaderChain) Config() *config.ChainConfig { return hc.chainConfig }

// WriteHeader stores a header so that descendants can resolve it. Intended
// for chain assembly and tests; consensus-critical storage lives elsewhere.
func (hc *HeaderChain) WriteHeader(header *model.Header) error {
	hash := header.Hash()
	hc.headerCache.Add(hash, model.CopyHeader(header))
	blob, err := encodeStoredHeader(header)
	if err != nil {
		return err
	}
	return hc.diskdb.Put(headerKey(hash), blob)
}

// GetHeader retrieves a block header from the cache or database by hash.
// The number argument is accepted for interface symmetry and ignored.
func (hc *HeaderChain) GetHeader(hash common.Hash, number uint64) *model.Header {
	if cached, ok := hc.headerCache.Get(hash); ok {
		return cached.(*model.Header)
	}
	has, err := hc.diskdb.Has(headerKey(hash))
	if err != nil || !has {
		return nil
	}
	blob, err := hc.diskdb.Get(headerKey(hash))
	if err != nil {
		return nil
	}
	header, err := decodeStoredHeader(blob)
	if err != nil {
		return nil
	}
	hc.headerCache.Add(hash, header)
	return header
}

func headerKey(hash common.Hash) []byte {
	return append([]byte("mh"), hash.Bytes()...)
}

func encodeStoredHeader(header *model.Header) ([]byte, error) {
	return json.Marshal(header)
}

func decodeStoredHeader(blob []byte) (*model.Header, error) {
	header := new(model.Header)
	if err := json.Unmarshal(blob, header); err != nil {
		return nil, err
	}
	return header, nil
}

// NewBlockHashFunc builds the BLOCKHASH resolver for a block under
// processing: it walks the parent chain through the chain view, at most 256
// generations deep.
func NewBlockHashFunc(header *model.Header, chain ChainContext) BlockHashFunc {
	if header.Number.Sign() == 0 {
		return func(uint64) common.Hash { return common.Hash{} }
	}
	// Cache of already resolved ancestors, shared by repeated lookups
	// within one transaction.
	ancestors := map[uint64]common.Hash{
		header.Number.Uint64() - 1: header.ParentHash,
	}
	lowest := header.Number.Uint64() - 1
	lowestHash := header.ParentHash
	return func(n uint64) common.Hash {
		current := header.Number.Uint64()
		if n >= current || current-n > maxBlockHashDepth {
			return common.Hash{}
		}
		if hash, ok := ancestors[n]; ok {
			return hash
		}
		for lowest > n {
			ancestor := chain.GetHeader(lowestHash, lowest)
			if ancestor == nil {
				return common.Hash{}
			}
			lowest--
			lowestHash = ancestor.ParentHash
			ancestors[lowest] = lowestHash
		}
		return ancestors[n]
	}
}
