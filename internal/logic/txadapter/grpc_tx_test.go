package txadapter

import (
	"errors"
	"testing"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jupiter-dex-sol/internal/logic/fixture"
	"jupiter-dex-sol/internal/pkg/types"
)

func TestAdaptGrpcTx_Basic(t *testing.T) {
	raw := fixture.NewTx(7).
		Keys(fixture.Key(1), fixture.Key(2)).
		LoadedWritable(fixture.Key(3)).
		LoadedReadonly([]byte{1, 2, 3}).
		Ix(1, 0, 2).
		Inner(0, []byte{2, 0}).
		Pre("mintA", "ownerX", "100").
		Post("mintA", "ownerX", "40.5").
		Build()

	block := fixture.Block(10, 1700000000, raw)
	txCtx := BuildTxContext(block)

	tx, err := AdaptGrpcTx(txCtx, raw)
	require.NoError(t, err)

	assert.Equal(t, fixture.SigString(7), tx.SignatureStr)
	assert.Equal(t, types.EncodeBytes(fixture.Key(1)), tx.Signer)
	assert.Equal(t, uint64(5000), tx.Fee)
	require.Len(t, tx.AccountKeys, 4)
	assert.Equal(t, types.InvalidPubkey, tx.AccountKeys[3])
	assert.Equal(t, types.UnknownAddress, tx.AccountKeys[3].String())

	require.Len(t, tx.Instructions, 1)
	require.Len(t, tx.InnerGroups, 1)
	require.Len(t, tx.PreBalances, 1)
	assert.Equal(t, "100", tx.PreBalances[0].Amount.String())
	assert.Equal(t, "40.5", tx.PostBalances[0].Amount.String())
	assert.Equal(t, uint8(6), tx.PostBalances[0].Decimals)
}

func TestAdaptGrpcTx_MissingAndFailed(t *testing.T) {
	ctx := BuildTxContext(fixture.Block(1, 0))

	_, err := AdaptGrpcTx(ctx, nil)
	assert.True(t, errors.Is(err, ErrMissingField))

	noMeta := fixture.NewTx(1).Keys(fixture.Key(1)).Build()
	noMeta.Meta = nil
	_, err = AdaptGrpcTx(ctx, noMeta)
	assert.ErrorIs(t, err, ErrMissingField)

	noMsg := fixture.NewTx(1).Build()
	noMsg.Transaction.Message = nil
	_, err = AdaptGrpcTx(ctx, noMsg)
	assert.ErrorIs(t, err, ErrMissingField)

	noSig := fixture.NewTx(1).Build()
	noSig.Transaction.Signatures = nil
	_, err = AdaptGrpcTx(ctx, noSig)
	assert.ErrorIs(t, err, ErrMissingField)

	failed := fixture.NewTx(1).Keys(fixture.Key(1)).Failed().Build()
	_, err = AdaptGrpcTx(ctx, failed)
	assert.ErrorIs(t, err, ErrTxFailed)
}

func TestAdaptGrpcTx_SignerUnknownWithoutKeys(t *testing.T) {
	tx, err := AdaptGrpcTx(BuildTxContext(fixture.Block(1, 0)), fixture.NewTx(2).Build())
	require.NoError(t, err)
	assert.Equal(t, types.UnknownAddress, tx.Signer)
}

func TestBuildAdaptedBalances_DropsMissingAmount(t *testing.T) {
	balances := buildAdaptedBalances([]*pb.TokenBalance{
		nil,
		{Mint: "m", Owner: "o"},
		{Mint: "m", Owner: "o", UiTokenAmount: &pb.UiTokenAmount{UiAmountString: "1.25", Decimals: 2}},
	})
	require.Len(t, balances, 1)
	assert.Equal(t, "1.25", balances[0].Amount.String())
}

func TestParseUiAmount_Fallbacks(t *testing.T) {
	assert.Equal(t, "12.5", parseUiAmount(&pb.UiTokenAmount{UiAmountString: "12.5", UiAmount: 1}).String())
	assert.Equal(t, "1.5", parseUiAmount(&pb.UiTokenAmount{Amount: "1500000", Decimals: 6}).String())
	assert.Equal(t, "0.25", parseUiAmount(&pb.UiTokenAmount{UiAmountString: "bad", UiAmount: 0.25}).String())
	assert.True(t, parseUiAmount(&pb.UiTokenAmount{}).IsZero())
}

func TestBuildTxContext(t *testing.T) {
	block := fixture.Block(42, 1700000001)
	ctx := BuildTxContext(block)
	assert.Equal(t, uint64(42), ctx.Slot)
	assert.Equal(t, uint64(41), ctx.ParentSlot)
	assert.Equal(t, int64(1700000001), ctx.BlockTime)
	assert.Equal(t, fixture.Key(42), ctx.BlockHash)

	block.Blockhash = "0OIl"
	block.BlockTime = nil
	ctx = BuildTxContext(block)
	assert.Empty(t, ctx.BlockHash)
	assert.Equal(t, int64(0), ctx.BlockTime)

	assert.ErrorIs(t, ValidateBlock(nil), ErrNilBlock)
	assert.NoError(t, ValidateBlock(block))
}

func TestSignatureOf(t *testing.T) {
	assert.Equal(t, types.UnknownAddress, SignatureOf(nil))
	assert.Equal(t, fixture.SigString(3), SignatureOf(fixture.NewTx(3).Build()))

	tx := fixture.NewTx(4).Build()
	tx.Transaction = nil
	assert.Equal(t, fixture.SigString(4), SignatureOf(tx))
}
