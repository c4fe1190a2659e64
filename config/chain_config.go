package config

import (
	"fmt"
	"math/big"

	"github.com/meridianio/go-meridian/common"
	"github.com/mohae/deepcopy"
)

// Genesis hashes to enforce below configs on.
var (
	MainnetGenesisHash = common.HexToHash("0xd4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3")
	TestnetGenesisHash = common.HexToHash("0x41941023680923e0fe4d74a34bdac8141f2540e3ae90623718e47d66d1ca4a2d")
)

var (
	// MainnetChainConfig is the chain parameters to run a node on the main network.
	MainnetChainConfig = &ChainConfig{
		ChainID:                 big.NewInt(1),
		HomesteadBlock:          big.NewInt(1150000),
		ByzantiumBlock:          big.NewInt(4370000),
		ConstantinopleBlock:     big.NewInt(7280000),
		LondonBlock:             big.NewInt(12965000),
		TerminalTotalDifficulty: mustParseBig("58750000000000000000000"),
		ShanghaiTime:            newUint64(1681338455),
		PragueTime:              nil,
	}

	// TestChainConfig contains every protocol change enabled from genesis for
	// unit tests.
	TestChainConfig = &ChainConfig{
		ChainID:                 big.NewInt(1),
		HomesteadBlock:          big.NewInt(0),
		ByzantiumBlock:          big.NewInt(0),
		ConstantinopleBlock:     big.NewInt(0),
		LondonBlock:             big.NewInt(0),
		TerminalTotalDifficulty: big.NewInt(0),
		ShanghaiTime:            newUint64(0),
		PragueTime:              newUint64(0),
	}

	// FrontierChainConfig has no protocol changes enabled.
	FrontierChainConfig = &ChainConfig{
		ChainID: big.NewInt(1),
	}
)

// ChainConfig is the blockchain config which determines the blockchain settings.
//
// ChainConfig is stored in the database on a per block basis. This means
// that any network, identified by its genesis block, can have its own
// set of configuration options.
type ChainConfig struct {
	ChainID *big.Int `json:"chainId"` // chainId identifies the current chain and is used for replay protection

	HomesteadBlock      *big.Int `json:"homesteadBlock,omitempty"`
	ByzantiumBlock      *big.Int `json:"byzantiumBlock,omitempty"`
	ConstantinopleBlock *big.Int `json:"constantinopleBlock,omitempty"`
	LondonBlock         *big.Int `json:"londonBlock,omitempty"` // London switch block (nil = no fork, 0 = already on london)

	// TerminalTotalDifficulty is the amount of total difficulty reached by
	// the network that triggers the consensus upgrade.
	TerminalTotalDifficulty *big.Int `json:"terminalTotalDifficulty,omitempty"`
	MergeNetsplitBlock      *big.Int `json:"mergeNetsplitBlock,omitempty"`

	// Fork scheduling switched from blocks to timestamps after the merge.
	ShanghaiTime *uint64 `json:"shanghaiTime,omitempty"` // Shanghai switch time (nil = no fork, 0 = already on shanghai)
	PragueTime   *uint64 `json:"pragueTime,omitempty"`   // Prague switch time (nil = no fork, 0 = already on prague)
}

// IsHomestead returns whether num is either equal to the homestead block or greater.
func (c *ChainConfig) IsHomestead(num *big.Int) bool {
	return isBlockForked(c.HomesteadBlock, num)
}

// IsByzantium returns whether num is either equal to the Byzantium fork block or greater.
func (c *ChainConfig) IsByzantium(num *big.Int) bool {
	return isBlockForked(c.ByzantiumBlock, num)
}

// IsConstantinople returns whether num is either equal to the Constantinople fork block or greater.
func (c *ChainConfig) IsConstantinople(num *big.Int) bool {
	return isBlockForked(c.ConstantinopleBlock, num)
}

// IsLondon returns whether num is either equal to the London fork block or greater.
func (c *ChainConfig) IsLondon(num *big.Int) bool {
	return isBlockForked(c.LondonBlock, num)
}

// IsShanghai returns whether time is either equal to the Shanghai fork time or greater.
func (c *ChainConfig) IsShanghai(time uint64) bool {
	return isTimestampForked(c.ShanghaiTime, time)
}

// IsPrague returns whether time is either equal to the Prague fork time or greater.
func (c *ChainConfig) IsPrague(time uint64) bool {
	return isTimestampForked(c.PragueTime, time)
}

// IsPostMerge reports whether the chain has passed the terminal total
// difficulty and block production moved to the consensus layer. Headers
// produced after the transition carry a zero difficulty.
func (c *ChainConfig) IsPostMerge(difficulty *big.Int) bool {
	if c.TerminalTotalDifficulty == nil {
		return false
	}
	return difficulty == nil || difficulty.Sign() == 0
}

// Copy returns a deep copy of the config, safe for the caller to mutate.
func (c *ChainConfig) Copy() *ChainConfig {
	return deepcopy.Copy(c).(*ChainConfig)
}

// String implements the fmt.Stringer interface.
func (c *ChainConfig) String() string {
	return fmt.Sprintf("{ChainID: %v Homestead: %v Byzantium: %v Constantinople: %v London: %v TTD: %v Shanghai: %v Prague: %v}",
		c.ChainID,
		c.HomesteadBlock,
		c.ByzantiumBlock,
		c.ConstantinopleBlock,
		c.LondonBlock,
		c.TerminalTotalDifficulty,
		uint64PtrString(c.ShanghaiTime),
		uint64PtrString(c.PragueTime),
	)
}

func isBlockForked(s, head *big.Int) bool {
	if s == nil || head == nil {
		return false
	}
	return s.Cmp(head) <= 0
}

func isTimestampForked(s *uint64, head uint64) bool {
	if s == nil {
		return false
	}
	return *s <= head
}

func newUint64(val uint64) *uint64 { return &val }

func uint64PtrString(v *uint64) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%d", *v)
}

func mustParseBig(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("invalid big integer: " + s)
	}
	return v
}
