package entity

// 实体类型
const (
	KindProtocol      = "Protocol"
	KindLiquidityPool = "LiquidityPool"
	KindSwap          = "Swap"
	KindToken         = "Token"
	KindAccount       = "Account"
)

type EntityChange struct {
	Entity    string    `json:"entity"`
	ID        string    `json:"id"`
	Operation Operation `json:"operation"`
	Fields    []Field   `json:"fields"`
}

// Field 按名称查找字段
func (c *EntityChange) Field(name string) (Value, bool) {
	for _, f := range c.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return Value{}, false
}

// ChangeSet 是单个区块产出的有序实体变更列表
type ChangeSet struct {
	Changes []EntityChange `json:"entity_changes"`
}

func (cs *ChangeSet) Find(kind, id string) (*EntityChange, bool) {
	for i := range cs.Changes {
		if cs.Changes[i].Entity == kind && cs.Changes[i].ID == id {
			return &cs.Changes[i], true
		}
	}
	return nil, false
}

func (cs *ChangeSet) OfKind(kind string) []EntityChange {
	var out []EntityChange
	for _, c := range cs.Changes {
		if c.Entity == kind {
			out = append(out, c)
		}
	}
	return out
}

func (cs *ChangeSet) Count(kind string) int {
	n := 0
	for _, c := range cs.Changes {
		if c.Entity == kind {
			n++
		}
	}
	return n
}

// Equal 逐行逐字段比较，用于确定性校验
func (cs *ChangeSet) Equal(o *ChangeSet) bool {
	if cs == nil || o == nil {
		return cs == o
	}
	if len(cs.Changes) != len(o.Changes) {
		return false
	}
	for i := range cs.Changes {
		a, b := cs.Changes[i], o.Changes[i]
		if a.Entity != b.Entity || a.ID != b.ID || a.Operation != b.Operation || len(a.Fields) != len(b.Fields) {
			return false
		}
		for j := range a.Fields {
			if a.Fields[j].Name != b.Fields[j].Name || !a.Fields[j].Value.Equal(b.Fields[j].Value) {
				return false
			}
		}
	}
	return true
}
