// Package trie defines the storage-layer error contract shared by world
// state implementations. A missing trie node signals database corruption or
// an incomplete sync rather than an invalid block, and is therefore
// propagated to callers instead of being folded into a processing failure.
package trie

import (
	"fmt"

	"github.com/meridianio/go-meridian/common"
)

// MissingNodeError is returned by the state backend in the case where a trie
// node is not present in the local database. It contains information necessary
// for retrieving the missing node.
type MissingNodeError struct {
	Owner    common.Hash // owner of the trie if it's a storage trie
	NodeHash common.Hash // hash of the missing node
	Path     []byte      // hex-encoded path to the missing node
	Err      error       // concrete error for missing trie node
}

// Unwrap returns the concrete error for missing trie node which
// allows us for further analysis outside.
func (err *MissingNodeError) Unwrap() error {
	return err.Err
}

func (err *MissingNodeError) Error() string {
	if err.Owner == (common.Hash{}) {
		return fmt.Sprintf("missing trie node %x (path %x) %v", err.NodeHash, err.Path, err.Err)
	}
	return fmt.Sprintf("missing trie node %x (owner %x) (path %x) %v", err.NodeHash, err.Owner, err.Path, err.Err)
}
