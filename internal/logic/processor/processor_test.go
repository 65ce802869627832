package processor

import (
	"sync"
	"testing"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jupiter-dex-sol/internal/consts"
	"jupiter-dex-sol/internal/logic/core"
	"jupiter-dex-sol/internal/logic/entity"
	"jupiter-dex-sol/internal/logic/fixture"
)

type recorder struct {
	core.NopObserver
	mu        sync.Mutex
	skipped   map[core.SkipReason]int
	malformed int
	rows      []string
}

func newRecorder() *recorder {
	return &recorder{skipped: map[core.SkipReason]int{}}
}

func (r *recorder) TxSkipped(_ string, reason core.SkipReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped[reason]++
}

func (r *recorder) MalformedInstruction(string, uint16, uint16, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.malformed++
}

func (r *recorder) RowEmitted(kind, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, kind+"/"+id)
}

var jup6 = fixture.PubkeyBytes(consts.JupiterV6Program)

// swapTx 对应 pre=[(mintA, ownerX, 100)] post=[(mintA, ownerX, 40), (mintB, ownerX, 25)] 的 JUP6 交易
func swapTx(seed byte) *fixture.TxBuilder {
	return fixture.NewTx(seed).
		Keys(fixture.Key(seed), jup6).
		Ix(1, 0).
		Pre("mintA", "ownerX", "100.0").
		Post("mintA", "ownerX", "40.0").
		Post("mintB", "ownerX", "25.0")
}

func assertProtocolRows(t *testing.T, cs *entity.ChangeSet) {
	t.Helper()
	for _, p := range consts.DexPrograms() {
		row, ok := cs.Find(entity.KindProtocol, p.ProgramIDStr)
		require.True(t, ok, p.Label)
		v, _ := row.Field("version")
		assert.Equal(t, p.Version, v.AsString())
	}
}

func TestProcess_Scenario1_SingleSwap(t *testing.T) {
	block := fixture.Block(100, 1700000000, swapTx(1).Build())
	cs, err := NewProcessor().Process(block)
	require.NoError(t, err)

	assertProtocolRows(t, cs)
	require.Equal(t, 1, cs.Count(entity.KindSwap))
	require.Equal(t, 1, cs.Count(entity.KindLiquidityPool))

	swap, ok := cs.Find(entity.KindSwap, "swap-"+fixture.SigString(1))
	require.True(t, ok)
	want := map[string]entity.Value{
		"tokenIn":   entity.String("mintA"),
		"amountIn":  entity.Float64(60),
		"tokenOut":  entity.String("mintB"),
		"amountOut": entity.Float64(25),
		"slot":      entity.Int64(100),
		"blockHash": entity.Bytes(fixture.Key(100)),
		"pool":      entity.String(consts.JupiterV6ProgramStr + "-mintA-mintB"),
	}
	for name, v := range want {
		got, ok := swap.Field(name)
		require.True(t, ok, name)
		assert.True(t, v.Equal(got), "%s: want %s got %s", name, v, got)
	}
	_, ok = cs.Find(entity.KindLiquidityPool, consts.JupiterV6ProgramStr+"-mintA-mintB")
	assert.True(t, ok)
}

func TestProcess_Scenario2_FailedTxExcluded(t *testing.T) {
	rec := newRecorder()
	block := fixture.Block(101, 1700000000, swapTx(2).Failed().Build())
	cs, err := NewProcessor(WithObserver(rec)).Process(block)
	require.NoError(t, err)

	assert.Equal(t, 0, cs.Count(entity.KindSwap))
	assert.Equal(t, 0, cs.Count(entity.KindLiquidityPool))
	assertProtocolRows(t, cs)
	assert.Equal(t, 1, rec.skipped[core.SkipFailed])
}

func TestProcess_Scenario3_OutOfRangeProgramIndex(t *testing.T) {
	rec := newRecorder()
	tx := fixture.NewTx(3).
		Keys(fixture.Key(1), fixture.Key(2), fixture.Key(3)).
		Ix(99).
		Pre("mintA", "ownerX", "1").
		Post("mintB", "ownerX", "1")
	cs, err := NewProcessor(WithObserver(rec)).Process(fixture.Block(102, 0, tx.Build()))
	require.NoError(t, err)

	assertProtocolRows(t, cs)
	assert.Equal(t, 0, cs.Count(entity.KindSwap))
	assert.Equal(t, 1, rec.malformed)
	assert.Equal(t, 1, rec.skipped[core.SkipNoMatch])
}

func TestProcess_Scenario4_UnchangedBalances(t *testing.T) {
	tx := fixture.NewTx(4).
		Keys(fixture.Key(4), jup6).
		Ix(1, 0).
		Pre("mintA", "ownerX", "7").
		Post("mintA", "ownerX", "7")
	cs, err := NewProcessor().Process(fixture.Block(103, 0, tx.Build()))
	require.NoError(t, err)
	assert.Equal(t, 0, cs.Count(entity.KindSwap))
}

func TestProcess_FirstReceivedLegInListOrder(t *testing.T) {
	tx := fixture.NewTx(13).
		Keys(fixture.Key(13), jup6).
		Ix(1, 0).
		Pre("mintA", "user", "10").
		Pre("mintA", "pool", "100").
		Pre("mintB", "pool", "50").
		Post("mintA", "user", "0").
		Post("mintA", "pool", "110").
		Post("mintB", "pool", "40").
		Post("mintB", "user", "10")
	cs, err := NewProcessor().Process(fixture.Block(108, 1700000008, tx.Build()))
	require.NoError(t, err)

	poolID := consts.JupiterV6ProgramStr + "-mintA-mintA"
	_, ok := cs.Find(entity.KindLiquidityPool, poolID)
	assert.True(t, ok)

	swap, ok := cs.Find(entity.KindSwap, "swap-"+fixture.SigString(13))
	require.True(t, ok)
	pool, _ := swap.Field("pool")
	assert.Equal(t, poolID, pool.AsString())
	out, _ := swap.Field("tokenOut")
	assert.Equal(t, "mintA", out.AsString())
	amountOut, _ := swap.Field("amountOut")
	assert.Equal(t, 10.0, amountOut.AsFloat64())
}

func TestProcess_NilBlock(t *testing.T) {
	cs, err := NewProcessor().Process(nil)
	assert.Nil(t, cs)
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestProcess_EmptyBlockStillHasProtocols(t *testing.T) {
	cs, err := NewProcessor().Process(&pb.SubscribeUpdateBlock{Slot: 1})
	require.NoError(t, err)
	assert.Len(t, cs.Changes, len(consts.DexPrograms()))
	assertProtocolRows(t, cs)
}

func TestProcess_MissingFieldsSkipped(t *testing.T) {
	rec := newRecorder()
	noMeta := swapTx(5).Build()
	noMeta.Meta = nil
	noMsg := swapTx(6).Build()
	noMsg.Transaction.Message = nil

	cs, err := NewProcessor(WithObserver(rec)).Process(fixture.Block(104, 0, noMeta, nil, noMsg, swapTx(7).Build()))
	require.NoError(t, err)
	assert.Equal(t, 3, rec.skipped[core.SkipMissingField])
	assert.Equal(t, 1, cs.Count(entity.KindSwap))
}

func TestProcess_Deterministic(t *testing.T) {
	block := fixture.Block(105, 1700000005,
		swapTx(8).Build(),
		swapTx(9).Failed().Build(),
		fixture.NewTx(10).Keys(fixture.Key(10), fixture.Key(11), jup6).
			Ix(1, 0).Inner(0, []byte{2, 0}).
			Pre("mintC", "o", "10").Post("mintC", "o", "4").Post("mintD", "o", "2").Build(),
	)

	p := NewProcessor()
	first, err := p.Process(block)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := p.Process(block)
		require.NoError(t, err)
		assert.True(t, first.Equal(again))
	}
	assert.Equal(t, 2, first.Count(entity.KindSwap))
}

func TestProcess_AmountsNonNegative(t *testing.T) {
	cs, err := NewProcessor().Process(fixture.Block(106, 0, swapTx(11).Build()))
	require.NoError(t, err)
	for _, c := range cs.OfKind(entity.KindSwap) {
		for _, name := range []string{"amountIn", "amountOut"} {
			v, ok := c.Field(name)
			require.True(t, ok)
			assert.GreaterOrEqual(t, v.AsFloat64(), 0.0)
		}
	}
}

func TestProcess_RowEmittedInOrder(t *testing.T) {
	rec := newRecorder()
	cs, err := NewProcessor(WithObserver(rec)).Process(fixture.Block(107, 0, swapTx(12).Build()))
	require.NoError(t, err)

	require.Len(t, rec.rows, len(cs.Changes))
	for i, c := range cs.Changes {
		assert.Equal(t, c.Entity+"/"+c.ID, rec.rows[i])
	}
}

func TestProcessBlocks_PreservesOrder(t *testing.T) {
	blocks := []*pb.SubscribeUpdateBlock{
		fixture.Block(200, 0, swapTx(20).Build()),
		nil,
		fixture.Block(202, 0),
		fixture.Block(203, 0, swapTx(23).Build()),
	}
	results := NewProcessor(WithObserver(LogObserver{})).ProcessBlocks(blocks, 3)
	require.Len(t, results, 4)

	assert.Equal(t, uint64(200), results[0].Slot)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].ChangeSet.Count(entity.KindSwap))

	assert.ErrorIs(t, results[1].Err, ErrUpstream)

	assert.Equal(t, uint64(202), results[2].Slot)
	assert.Equal(t, 0, results[2].ChangeSet.Count(entity.KindSwap))

	assert.Equal(t, uint64(203), results[3].Slot)
	_, ok := results[3].ChangeSet.Find(entity.KindSwap, "swap-"+fixture.SigString(23))
	assert.True(t, ok)
}
