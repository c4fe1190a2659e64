package beacon

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/common/hexutil"
)

func samplePayload() *ExecutableData {
	randao := common.HexToHash("0x0202020202020202020202020202020202020202020202020202020202020202")
	return &ExecutableData{
		BlockHash:     common.HexToHash("0x01"),
		ParentHash:    common.HexToHash("0x02"),
		FeeRecipient:  common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"),
		StateRoot:     common.HexToHash("0x03"),
		ReceiptsRoot:  common.HexToHash("0x04"),
		LogsBloom:     make([]byte, model.BloomByteLength),
		PrevRandao:    &randao,
		BlockNumber:   16,
		GasLimit:      30000000,
		GasUsed:       21000,
		Timestamp:     1681338455,
		ExtraData:     []byte{},
		BaseFeePerGas: (*hexutil.Big)(big.NewInt(7)),
		Transactions:  []hexutil.Bytes{},
	}
}

// The engine API payload shape is a wire contract: field order is fixed and
// absent optional lists serialize as null, never as empty arrays.
func TestPayloadFieldOrder(t *testing.T) {
	blob, err := json.Marshal(samplePayload())
	require.NoError(t, err)

	fields := []string{
		`"blockHash"`, `"parentHash"`, `"feeRecipient"`, `"stateRoot"`,
		`"receiptsRoot"`, `"logsBloom"`, `"prevRandao"`, `"blockNumber"`,
		`"gasLimit"`, `"gasUsed"`, `"timestamp"`, `"extraData"`,
		`"baseFeePerGas"`, `"transactions"`, `"withdrawals"`, `"deposits"`,
	}
	prev := -1
	for _, field := range fields {
		idx := strings.Index(string(blob), field)
		require.Greaterf(t, idx, prev, "field %s out of order", field)
		prev = idx
	}
}

func TestPayloadNullPolicy(t *testing.T) {
	payload := samplePayload()
	payload.PrevRandao = nil
	payload.BaseFeePerGas = nil

	blob, err := json.Marshal(payload)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &decoded))
	assert.Equal(t, "null", string(decoded["prevRandao"]))
	assert.Equal(t, "null", string(decoded["baseFeePerGas"]))
	assert.Equal(t, "null", string(decoded["withdrawals"]))
	assert.Equal(t, "null", string(decoded["deposits"]))
	assert.Equal(t, "[]", string(decoded["transactions"]))
}

func TestPayloadQuantityEncoding(t *testing.T) {
	blob, err := json.Marshal(samplePayload())
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &decoded))
	// Quantities are minimal hex strings without leading zeros.
	assert.Equal(t, `"0x10"`, string(decoded["blockNumber"]))
	assert.Equal(t, `"0x5208"`, string(decoded["gasUsed"]))
	assert.Equal(t, `"0x7"`, string(decoded["baseFeePerGas"]))
	// Hashes are fixed-width hex.
	assert.Equal(t, `"0x`+strings.Repeat("0", 62)+`01"`, string(decoded["blockHash"]))
	// The empty extra data renders as "0x".
	assert.Equal(t, `"0x"`, string(decoded["extraData"]))
}

func TestEnvelopeShape(t *testing.T) {
	envelope := NewPayloadEnvelope(samplePayload(), big.NewInt(123456789))
	blob, err := json.Marshal(envelope)
	require.NoError(t, err)

	var decoded map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(blob, &decoded))
	require.Len(t, decoded, 2)
	assert.Contains(t, decoded, "executionPayload")
	assert.Equal(t, `"0x75bcd15"`, string(decoded["blockValue"]))

	payloadIdx := strings.Index(string(blob), `"executionPayload"`)
	valueIdx := strings.Index(string(blob), `"blockValue"`)
	assert.Less(t, payloadIdx, valueIdx)
}

func TestPayloadWithWithdrawalsAndDeposits(t *testing.T) {
	header := &model.Header{
		Number:     big.NewInt(20),
		GasLimit:   30000000,
		Difficulty: new(big.Int),
		Time:       99,
		BaseFee:    big.NewInt(7),
	}
	withdrawals := model.Withdrawals{{Index: 1, Validator: 2, Address: common.HexToAddress("0xaa"), Amount: 3}}
	block := model.NewBlockWithHeader(header).WithWithdrawals(withdrawals)
	deposits := model.Deposits{{Amount: 32e9, Index: 4}}

	data := BlockToExecutableData(block, deposits)
	require.Len(t, data.Withdrawals, 1)
	assert.Equal(t, hexutil.Uint64(1), data.Withdrawals[0].Index)
	assert.Equal(t, hexutil.Uint64(2), data.Withdrawals[0].ValidatorIndex)
	assert.Equal(t, hexutil.Uint64(3), data.Withdrawals[0].Amount)
	require.Len(t, data.Deposits, 1)
	assert.Equal(t, hexutil.Uint64(4), data.Deposits[0].Index)
	assert.NotNil(t, data.PrevRandao)
}

func TestPayloadStoreRoundTrip(t *testing.T) {
	store, err := NewPayloadStore()
	require.NoError(t, err)

	envelope := NewPayloadEnvelope(samplePayload(), big.NewInt(42))
	id, err := store.Put(envelope)
	require.NoError(t, err)

	got, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, envelope.ExecutionPayload.BlockHash, got.ExecutionPayload.BlockHash)
	assert.Equal(t, envelope.BlockValue.ToInt().String(), got.BlockValue.ToInt().String())

	_, err = store.Get(PayloadID{0xff})
	assert.Equal(t, ErrUnknownPayload, err)
}
