package replay

import (
	"bytes"
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	"jupiter-dex-sol/internal/consts"
	"jupiter-dex-sol/internal/logic/entity"
	"jupiter-dex-sol/internal/logic/fixture"
	"jupiter-dex-sol/internal/logic/processor"
	"jupiter-dex-sol/internal/utils"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBlocks() []*pb.SubscribeUpdateBlock {
	jup6 := fixture.PubkeyBytes(consts.JupiterV6Program)
	swap := fixture.NewTx(1).
		Keys(fixture.Key(1), jup6).
		Ix(1, 0).
		Pre("mintA", "ownerX", "100").
		Post("mintA", "ownerX", "40").
		Post("mintB", "ownerX", "25").
		Build()
	return []*pb.SubscribeUpdateBlock{
		fixture.Block(10, 1700000000, swap),
		fixture.Block(11, 1700000001),
	}
}

func TestReadWriteBlocks(t *testing.T) {
	var buf bytes.Buffer
	blocks := testBlocks()
	require.NoError(t, WriteBlocks(&buf, blocks))

	got, err := ReadBlocks(&buf)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint64(10), got[0].Slot)
	assert.Equal(t, uint64(11), got[1].Slot)
	assert.Len(t, got[0].Transactions, 1)
}

func TestReadBlocks_Truncated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBlocks(&buf, testBlocks()))
	data := buf.Bytes()[:buf.Len()-3]

	got, err := ReadBlocks(bytes.NewReader(data))
	require.Error(t, err)
	assert.Len(t, got, 1)
}

func TestReadBlocks_Empty(t *testing.T) {
	got, err := ReadBlocks(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestWriteResults_JSON(t *testing.T) {
	results := processor.NewProcessor().ProcessBlocks(testBlocks(), 2)
	results = append(results, processor.BlockResult{Slot: 12, Err: errors.New("boom")})

	var buf bytes.Buffer
	failed, err := WriteResults(&buf, results, FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"slot":10`)
	assert.Contains(t, lines[0], `"swap-`+fixture.SigString(1)+`"`)
	assert.Contains(t, lines[2], `"error":"boom"`)
}

func TestWriteResults_Binary(t *testing.T) {
	results := processor.NewProcessor().ProcessBlocks(testBlocks(), 1)

	var buf bytes.Buffer
	_, err := WriteResults(&buf, results, FormatBinary)
	require.NoError(t, err)

	data := buf.Bytes()
	size := binary.LittleEndian.Uint32(data[:4])
	cs, err := utils.DecodeChangeSet(data[4 : 4+size])
	require.NoError(t, err)
	assert.Equal(t, 1, cs.Count(entity.KindSwap))
	assert.True(t, cs.Equal(results[0].ChangeSet))
}

func TestWriteResults_UnknownFormat(t *testing.T) {
	results := []processor.BlockResult{{Slot: 1, ChangeSet: &entity.ChangeSet{}}}
	_, err := WriteResults(&bytes.Buffer{}, results, "xml")
	assert.Error(t, err)
}
