package accounts

import (
	"testing"

	"jupiter-dex-sol/internal/consts"
	"jupiter-dex-sol/internal/logic/entity"
	"jupiter-dex-sol/internal/logic/fixture"
	"jupiter-dex-sol/internal/pkg/types"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func accountUpdate(seed byte, owner []byte, lamports uint64) *pb.SubscribeUpdateAccount {
	return &pb.SubscribeUpdateAccount{
		Slot: 300,
		Account: &pb.SubscribeUpdateAccountInfo{
			Pubkey:     fixture.Key(seed),
			Owner:      owner,
			Lamports:   lamports,
			Executable: false,
			RentEpoch:  18446744073709551615,
			Data:       []byte{1, 2, 3},
		},
	}
}

func TestBuild_CreatesAccount(t *testing.T) {
	upd := accountUpdate(7, fixture.PubkeyBytes(consts.JupiterV6Program), 2_039_280)
	cs, err := Build(upd)
	require.NoError(t, err)
	require.Len(t, cs.Changes, 1)

	id := types.EncodeBytes(fixture.Key(7))
	c, ok := cs.Find(entity.KindAccount, id)
	require.True(t, ok)
	assert.Equal(t, entity.OpCreate, c.Operation)

	names := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"pubkey", "owner", "lamports", "slot", "executable", "rentEpoch", "data"}, names)

	v, _ := c.Field("owner")
	assert.Equal(t, consts.JupiterV6ProgramStr, v.AsString())
	v, _ = c.Field("lamports")
	assert.Equal(t, int64(2_039_280), v.AsInt64())
	v, _ = c.Field("slot")
	assert.Equal(t, int64(300), v.AsInt64())
	v, _ = c.Field("executable")
	assert.Equal(t, entity.KindBool, v.Kind())
	assert.False(t, v.AsBool())
	v, _ = c.Field("data")
	assert.Equal(t, []byte{1, 2, 3}, v.AsBytes())
}

func TestBuild_ClosedAccountIsDelete(t *testing.T) {
	upd := accountUpdate(8, fixture.PubkeyBytes(consts.JupiterV6Program), 0)
	cs, err := Build(upd)
	require.NoError(t, err)
	require.Len(t, cs.Changes, 1)

	c := cs.Changes[0]
	assert.Equal(t, entity.KindAccount, c.Entity)
	assert.Equal(t, types.EncodeBytes(fixture.Key(8)), c.ID)
	assert.Equal(t, entity.OpDelete, c.Operation)
	v, ok := c.Field("lamports")
	require.True(t, ok)
	assert.Equal(t, int64(0), v.AsInt64())
}

func TestApply_ReopenedAccountInSameTables(t *testing.T) {
	tables := entity.NewTables()
	owner := fixture.PubkeyBytes(consts.JupiterV6Program)
	require.NoError(t, Apply(tables, accountUpdate(9, owner, 0)))
	require.NoError(t, Apply(tables, accountUpdate(9, owner, 10)))

	cs := tables.ToChangeSet()
	require.Len(t, cs.Changes, 1)
	assert.Equal(t, entity.OpCreate, cs.Changes[0].Operation)
}

func TestApply_Rejects(t *testing.T) {
	tables := entity.NewTables()

	err := Apply(tables, &pb.SubscribeUpdateAccount{Slot: 1})
	assert.ErrorIs(t, err, ErrInvalidAccount)

	err = Apply(tables, accountUpdate(1, []byte{1, 2}, 5))
	assert.ErrorIs(t, err, ErrInvalidAccount)

	err = Apply(tables, accountUpdate(1, fixture.Key(99), 5))
	assert.ErrorIs(t, err, ErrUnregisteredOwner)

	assert.Equal(t, 0, tables.Len())
}
