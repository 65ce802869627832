package utils

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"jupiter-dex-sol/internal/logic/entity"
)

func sampleChangeSet() *entity.ChangeSet {
	tables := entity.NewTables()
	tables.Upsert(entity.KindProtocol, "JUP6").
		Set("name", entity.String("Jupiter")).
		Set("lastUpdateSlot", entity.Int64(-1))
	tables.Upsert(entity.KindSwap, "swap-x").
		Set("amountIn", entity.Float64(60.5)).
		Set("blockHash", entity.Bytes([]byte{0xde, 0xad})).
		Set("ok", entity.Bool(true)).
		Set("legs", entity.Array(entity.String("a"), entity.Array(entity.Int64(2))))
	tables.Update(entity.KindToken, "mint")
	tables.Delete(entity.KindLiquidityPool, "gone")
	return tables.ToChangeSet()
}

func TestEncodeDecodeChangeSet(t *testing.T) {
	cs := sampleChangeSet()
	data, err := EncodeChangeSet(cs)
	require.NoError(t, err)
	assert.Equal(t, EventTypeEntityChanges, binary.LittleEndian.Uint32(data[:4]))

	got, err := DecodeChangeSet(data)
	require.NoError(t, err)
	assert.True(t, cs.Equal(got))
	assert.Equal(t, entity.OpDelete, got.Changes[3].Operation)
}

func TestEncodeChangeSet_WireLayout(t *testing.T) {
	tables := entity.NewTables()
	tables.Upsert("T", "i").Set("f", entity.Float64(1))
	data, err := EncodeChangeSet(tables.ToChangeSet())
	require.NoError(t, err)

	// EntityChanges{changes: [EntityChange{entity_type:"T", id:"i", fields:[{name:"f", value:{double:1}}], operation:CREATE}]}
	var value []byte
	value = protowire.AppendTag(value, 3, protowire.Fixed64Type)
	value = protowire.AppendFixed64(value, math.Float64bits(1))
	var field []byte
	field = protowire.AppendTag(field, 1, protowire.BytesType)
	field = protowire.AppendString(field, "f")
	field = protowire.AppendTag(field, 2, protowire.BytesType)
	field = protowire.AppendBytes(field, value)
	var change []byte
	change = protowire.AppendTag(change, 1, protowire.BytesType)
	change = protowire.AppendString(change, "T")
	change = protowire.AppendTag(change, 2, protowire.BytesType)
	change = protowire.AppendString(change, "i")
	change = protowire.AppendTag(change, 4, protowire.VarintType)
	change = protowire.AppendVarint(change, 1)
	change = protowire.AppendTag(change, 3, protowire.BytesType)
	change = protowire.AppendBytes(change, field)
	var want []byte
	want = protowire.AppendTag(want, 1, protowire.BytesType)
	want = protowire.AppendBytes(want, change)

	assert.Equal(t, want, data[4:])
}

func TestDecodeChangeSet_Errors(t *testing.T) {
	_, err := DecodeChangeSet([]byte{1, 2})
	assert.ErrorIs(t, err, ErrBadPrefix)

	_, err = DecodeChangeSet([]byte{2, 0, 0, 0})
	assert.ErrorIs(t, err, ErrBadPrefix)

	_, err = DecodeChangeSet([]byte{1, 0, 0, 0, 0x0a, 0x05, 0x01})
	assert.Error(t, err)

	cs, err := DecodeChangeSet([]byte{1, 0, 0, 0})
	require.NoError(t, err)
	assert.Empty(t, cs.Changes)
}

func TestEncodeChangeSet_UnsetValueOmitted(t *testing.T) {
	tables := entity.NewTables()
	tables.Upsert("T", "i").Set("empty", entity.Value{})
	data, err := EncodeChangeSet(tables.ToChangeSet())
	require.NoError(t, err)

	got, err := DecodeChangeSet(data)
	require.NoError(t, err)
	v, ok := got.Changes[0].Field("empty")
	require.True(t, ok)
	assert.False(t, v.IsSet())
}
