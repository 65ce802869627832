package accounts

import (
	"errors"
	"fmt"

	"jupiter-dex-sol/internal/consts"
	"jupiter-dex-sol/internal/logic/entity"
	"jupiter-dex-sol/internal/pkg/types"

	pb "github.com/rpcpool/yellowstone-grpc/examples/golang/proto"
)

var (
	// ErrInvalidAccount 表示更新缺少账户信息或地址长度不对
	ErrInvalidAccount = errors.New("invalid account update")
	// ErrUnregisteredOwner 表示账户不属于任何已注册的 DEX 程序
	ErrUnregisteredOwner = errors.New("account owner not registered")
)

// IsClosed lamports 归零即账户已被关闭
func IsClosed(info *pb.SubscribeUpdateAccountInfo) bool {
	return info.GetLamports() == 0
}

// Apply 把一条账户更新写成 Account 实体行，id 为账户地址。
// 已关闭的账户输出 Delete，其余输出 Create；两种情况都带完整字段。
func Apply(tables *entity.Tables, upd *pb.SubscribeUpdateAccount) error {
	info := upd.GetAccount()
	if info == nil {
		return fmt.Errorf("%w: missing account info", ErrInvalidAccount)
	}
	pubkey, err := types.PubkeyFromBytes(info.Pubkey)
	if err != nil {
		return fmt.Errorf("%w: pubkey: %v", ErrInvalidAccount, err)
	}
	owner, err := types.PubkeyFromBytes(info.Owner)
	if err != nil {
		return fmt.Errorf("%w: owner: %v", ErrInvalidAccount, err)
	}
	if !consts.IsDexProgram(owner) {
		return fmt.Errorf("%w: %s", ErrUnregisteredOwner, owner)
	}

	id := pubkey.String()
	var row *entity.Row
	if IsClosed(info) {
		tables.Delete(entity.KindAccount, id)
		row, _ = tables.Row(entity.KindAccount, id)
	} else {
		row = tables.Upsert(entity.KindAccount, id)
	}
	row.Set("pubkey", entity.String(id)).
		Set("owner", entity.String(owner.String())).
		Set("lamports", entity.Uint64(info.Lamports)).
		Set("slot", entity.Uint64(upd.GetSlot())).
		Set("executable", entity.Bool(info.Executable)).
		Set("rentEpoch", entity.Uint64(info.RentEpoch)).
		Set("data", entity.Bytes(info.Data))
	return nil
}

// Build 把单条账户更新转换为只含一行的变更集
func Build(upd *pb.SubscribeUpdateAccount) (*entity.ChangeSet, error) {
	tables := entity.NewTables()
	if err := Apply(tables, upd); err != nil {
		return nil, err
	}
	return tables.ToChangeSet(), nil
}
