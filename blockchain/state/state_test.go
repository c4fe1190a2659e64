package state

import (
	"math/big"
	"testing"

	checker "gopkg.in/check.v1"

	"github.com/meridianio/go-meridian/common"
	"github.com/meridianio/go-meridian/database/memorydb"
)

func TestCheckSuite(t *testing.T) { checker.TestingT(t) }

type StateSuite struct {
	state *StateDB
}

var _ = checker.Suite(&StateSuite{})

func (s *StateSuite) SetUpTest(c *checker.C) {
	stateDB, err := New(NewDatabase(memorydb.New()))
	c.Assert(err, checker.IsNil)
	s.state = stateDB
}

func (s *StateSuite) TestNull(c *checker.C) {
	address := common.HexToAddress("0x823140710bf13990e4500136726d8b55")
	s.state.CreateAccount(address)

	value := common.Hash{}
	s.state.SetState(address, common.Hash{}, value)
	c.Check(s.state.GetState(address, common.Hash{}), checker.Equals, value)
}

func (s *StateSuite) TestDirtyTracking(c *checker.C) {
	snapshot := s.state.Snapshot()
	s.state.AddBalance(common.Address{}, big.NewInt(1))

	if len(s.state.journal.dirties) != 1 {
		c.Fatal("expected one dirty state object")
	}
	s.state.RevertToSnapshot(snapshot)
	if len(s.state.journal.dirties) != 0 {
		c.Fatal("expected no dirty state object")
	}
}

func (s *StateSuite) TestSnapshotEmpty(c *checker.C) {
	s.state.RevertToSnapshot(s.state.Snapshot())
}
