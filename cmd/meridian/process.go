package main

import (
	"fmt"
	"math/big"
	"os"

	"github.com/fatih/color"
	"github.com/naoina/toml"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/meridianio/go-meridian/blockchain"
	"github.com/meridianio/go-meridian/blockchain/genesis"
	"github.com/meridianio/go-meridian/blockchain/model"
	"github.com/meridianio/go-meridian/blockchain/state"
	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/config"
	"github.com/meridianio/go-meridian/consensus"
	"github.com/meridianio/go-meridian/consensus/beacon"
	"github.com/meridianio/go-meridian/consensus/ethash"
	"github.com/meridianio/go-meridian/database"
	"github.com/meridianio/go-meridian/database/leveldb"
	"github.com/meridianio/go-meridian/database/memorydb"
)

var processCommand = cli.Command{
	Action:    processFixture,
	Name:      "process",
	Usage:     "Replay a block fixture against a world state",
	ArgsUsage: "<fixture.toml>",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:  "datadir",
			Usage: "directory for the persistent state database (in-memory when empty)",
		},
	},
	Description: `
Loads a TOML fixture holding a genesis allocation and one block, commits the
genesis, processes the block and prints the resulting receipts.`,
}

var versionCommand = cli.Command{
	Action: func(ctx *cli.Context) error {
		fmt.Println("meridian block processor 1.0.0")
		return nil
	},
	Name:  "version",
	Usage: "Print version numbers",
}

// fixture is the TOML shape consumed by the process command. Amounts are
// decimal strings so fixtures stay readable for large wei values.
type fixture struct {
	Genesis struct {
		GasLimit  uint64
		Timestamp uint64
		Alloc     map[string]struct {
			Balance string
			Nonce   uint64
		}
	}
	Block struct {
		Header struct {
			Number     uint64
			GasLimit   uint64
			Timestamp  uint64
			Coinbase   string
			BaseFee    string
			Difficulty string
		}
		Transactions []struct {
			From     string
			To       string
			Value    string
			Gas      uint64
			GasPrice string
			Nonce    uint64
		}
		Withdrawals []struct {
			Index     uint64
			Validator uint64
			Address   string
			Amount    uint64
		}
	}
	BlockReward          string
	SkipZeroBlockRewards bool
}

func processFixture(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expecting one fixture file argument")
	}
	file, err := os.Open(ctx.Args().First())
	if err != nil {
		return err
	}
	defer file.Close()

	var fix fixture
	if err := toml.NewDecoder(file).Decode(&fix); err != nil {
		return fmt.Errorf("invalid fixture: %v", err)
	}
	chainConfig := config.TestChainConfig

	alloc := make(genesis.Alloc, len(fix.Genesis.Alloc))
	for addr, account := range fix.Genesis.Alloc {
		balance, ok := new(big.Int).SetString(defaultString(account.Balance, "0"), 10)
		if !ok {
			return fmt.Errorf("invalid balance for %s", addr)
		}
		alloc[common.HexToAddress(addr)] = genesis.Account{Balance: balance, Nonce: account.Nonce}
	}

	var diskdb database.Database
	if datadir := ctx.String("datadir"); datadir != "" {
		ldb, err := leveldb.New(datadir, 0, 0, false)
		if err != nil {
			return err
		}
		defer ldb.Close()
		diskdb = ldb
	} else {
		diskdb = memorydb.New()
	}

	gspec := &genesis.Genesis{
		Config:    chainConfig,
		GasLimit:  fix.Genesis.GasLimit,
		Timestamp: fix.Genesis.Timestamp,
		Alloc:     alloc,
	}
	genesisBlock, err := gspec.Commit(diskdb)
	if err != nil {
		return err
	}
	stateDB, err := state.New(state.NewDatabase(diskdb))
	if err != nil {
		return err
	}
	chain := blockchain.NewHeaderChain(chainConfig, diskdb)
	if err := chain.WriteHeader(genesisBlock.Header()); err != nil {
		return err
	}

	header, txs, withdrawals, err := assembleBlock(&fix, genesisBlock)
	if err != nil {
		return err
	}

	blockReward := new(big.Int)
	if fix.BlockReward != "" {
		if _, ok := blockReward.SetString(fix.BlockReward, 10); !ok {
			return fmt.Errorf("invalid block reward %q", fix.BlockReward)
		}
	}
	var rewards blockchain.RewardPolicy
	if blockReward.Sign() == 0 && fix.SkipZeroBlockRewards {
		rewards = beacon.NewRewardPolicy()
	} else {
		rewards = ethash.NewRewardPolicy(blockReward)
	}

	processor := blockchain.NewBlockProcessor(
		blockchain.NewStateTransitionProcessor(chainConfig),
		blockchain.StatusReceiptFactory(),
		rewards,
		consensus.CoinbaseBeneficiaryCalculator{},
		fix.SkipZeroBlockRewards,
		blockchain.NewProtocolSchedule(chainConfig),
	)

	result, err := processor.ProcessBlock(chain, stateDB, header, txs, nil, withdrawals, nil, nil)
	if err != nil {
		return fmt.Errorf("storage corruption: %v", err)
	}
	if result.IsFailed() {
		color.Red("block rejected: %s", result.FailureReason())
		return fmt.Errorf("block rejected")
	}
	printReceipts(result.Outputs.Receipts)
	color.Green("block %d processed: gasUsed=%d stateRoot=%x",
		header.Number, result.Outputs.Receipts.GasUsed(), stateDB.Root())
	return nil
}

func assembleBlock(fix *fixture, parent *model.Block) (*model.Header, []*model.Transaction, model.Withdrawals, error) {
	head := fix.Block.Header
	header := &model.Header{
		ParentHash: parent.Hash(),
		Number:     new(big.Int).SetUint64(head.Number),
		GasLimit:   head.GasLimit,
		Time:       head.Timestamp,
		Coinbase:   common.HexToAddress(head.Coinbase),
		Difficulty: new(big.Int),
	}
	if head.BaseFee != "" {
		baseFee, ok := new(big.Int).SetString(head.BaseFee, 10)
		if !ok {
			return nil, nil, nil, fmt.Errorf("invalid base fee %q", head.BaseFee)
		}
		header.BaseFee = baseFee
	}
	if head.Difficulty != "" {
		difficulty, ok := new(big.Int).SetString(head.Difficulty, 10)
		if !ok {
			return nil, nil, nil, fmt.Errorf("invalid difficulty %q", head.Difficulty)
		}
		header.Difficulty = difficulty
	}

	var txs []*model.Transaction
	for i, tx := range fix.Block.Transactions {
		value, ok := new(big.Int).SetString(defaultString(tx.Value, "0"), 10)
		if !ok {
			return nil, nil, nil, fmt.Errorf("invalid value in transaction %d", i)
		}
		gasPrice, ok := new(big.Int).SetString(defaultString(tx.GasPrice, "0"), 10)
		if !ok {
			return nil, nil, nil, fmt.Errorf("invalid gas price in transaction %d", i)
		}
		opts := model.TxOpts{
			Nonce:    tx.Nonce,
			From:     common.HexToAddress(tx.From),
			Value:    value,
			Gas:      tx.Gas,
			GasPrice: gasPrice,
		}
		if tx.To != "" {
			to := common.HexToAddress(tx.To)
			opts.To = &to
		}
		txs = append(txs, model.NewTransaction(opts))
	}

	var withdrawals model.Withdrawals
	for _, w := range fix.Block.Withdrawals {
		withdrawals = append(withdrawals, &model.Withdrawal{
			Index:     w.Index,
			Validator: w.Validator,
			Address:   common.HexToAddress(w.Address),
			Amount:    w.Amount,
		})
	}
	return header, txs, withdrawals, nil
}

func printReceipts(receipts model.Receipts) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"#", "Tx Hash", "Status", "Gas Used", "Cumulative Gas"})
	for i, receipt := range receipts {
		table.Append([]string{
			fmt.Sprintf("%d", i),
			receipt.TxHash.Hex(),
			fmt.Sprintf("%d", receipt.Status),
			fmt.Sprintf("%d", receipt.GasUsed),
			fmt.Sprintf("%d", receipt.CumulativeGasUsed),
		})
	}
	table.Render()
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
