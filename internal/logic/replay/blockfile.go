package replay

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
	"google.golang.org/protobuf/encoding/protodelim"
)

// maxBlockSize 单个区块消息上限，与 gRPC 接收上限一致
const maxBlockSize = 256 * 1024 * 1024

// ReadBlocks 读取长度前缀（varint）分隔的 SubscribeUpdateBlock 序列，直到 EOF
func ReadBlocks(r io.Reader) ([]*pb.SubscribeUpdateBlock, error) {
	br := bufio.NewReader(r)
	opts := protodelim.UnmarshalOptions{MaxSize: maxBlockSize}

	var blocks []*pb.SubscribeUpdateBlock
	for {
		block := &pb.SubscribeUpdateBlock{}
		err := opts.UnmarshalFrom(br, block)
		if errors.Is(err, io.EOF) {
			return blocks, nil
		}
		if err != nil {
			return blocks, fmt.Errorf("read block #%d: %w", len(blocks), err)
		}
		blocks = append(blocks, block)
	}
}

// WriteBlocks 以 ReadBlocks 可读取的格式写出区块
func WriteBlocks(w io.Writer, blocks []*pb.SubscribeUpdateBlock) error {
	for i, block := range blocks {
		if _, err := protodelim.MarshalTo(w, block); err != nil {
			return fmt.Errorf("write block #%d: %w", i, err)
		}
	}
	return nil
}
