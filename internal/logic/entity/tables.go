package entity

// Operation 与 EntityChange.Operation 枚举值一致
type Operation int32

const (
	OpUnset  Operation = 0
	OpCreate Operation = 1
	OpUpdate Operation = 2
	OpDelete Operation = 3
)

func (op Operation) String() string {
	switch op {
	case OpCreate:
		return "CREATE"
	case OpUpdate:
		return "UPDATE"
	case OpDelete:
		return "DELETE"
	default:
		return "UNSET"
	}
}

func (op Operation) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

type Field struct {
	Name  string `json:"name"`
	Value Value  `json:"value"`
}

// Row 是 (kind, id) 对应的一行，字段按首次写入顺序保存，重复写入覆盖旧值。
type Row struct {
	kind   string
	id     string
	op     Operation
	fields []Field
	index  map[string]int
}

func newRow(kind, id string, op Operation) *Row {
	return &Row{kind: kind, id: id, op: op, index: make(map[string]int, 8)}
}

func (r *Row) Kind() string         { return r.kind }
func (r *Row) ID() string           { return r.id }
func (r *Row) Operation() Operation { return r.op }

// Set 写入字段并返回自身，便于链式调用
func (r *Row) Set(name string, v Value) *Row {
	if i, ok := r.index[name]; ok {
		r.fields[i].Value = v
		return r
	}
	r.index[name] = len(r.fields)
	r.fields = append(r.fields, Field{Name: name, Value: v})
	return r
}

func (r *Row) Get(name string) (Value, bool) {
	i, ok := r.index[name]
	if !ok {
		return Value{}, false
	}
	return r.fields[i].Value, true
}

// Fields 返回字段拷贝
func (r *Row) Fields() []Field {
	return append([]Field(nil), r.fields...)
}

type rowKey struct {
	kind string
	id   string
}

// Tables 按 (kind, id) 累积实体行，输出时保持首次触达顺序。
// 非并发安全，每个区块使用独立实例。
type Tables struct {
	rows  []*Row
	index map[rowKey]*Row
	// onTouch 在某行第一次被创建时回调
	onTouch func(kind, id string)
}

func NewTables() *Tables {
	return &Tables{index: make(map[rowKey]*Row, 64)}
}

// OnRowCreated 注册新行回调，用于 observer 通知
func (t *Tables) OnRowCreated(fn func(kind, id string)) {
	t.onTouch = fn
}

func (t *Tables) touch(kind, id string, op Operation) *Row {
	key := rowKey{kind: kind, id: id}
	if row, ok := t.index[key]; ok {
		return row
	}
	row := newRow(kind, id, op)
	t.index[key] = row
	t.rows = append(t.rows, row)
	if t.onTouch != nil {
		t.onTouch(kind, id)
	}
	return row
}

// Upsert 返回 (kind, id) 对应的行，不存在时以 Create 新建；已删除的行重新变为 Create
func (t *Tables) Upsert(kind, id string) *Row {
	row := t.touch(kind, id, OpCreate)
	if row.op == OpDelete {
		row.op = OpCreate
	}
	return row
}

// Update 返回 (kind, id) 对应的行，不存在时以 Update 新建；已有行保持原操作
func (t *Tables) Update(kind, id string) *Row {
	row := t.touch(kind, id, OpUpdate)
	if row.op == OpDelete {
		row.op = OpUpdate
	}
	return row
}

// Delete 标记删除并清空字段
func (t *Tables) Delete(kind, id string) {
	row := t.touch(kind, id, OpDelete)
	row.op = OpDelete
	row.fields = nil
	row.index = make(map[string]int)
}

func (t *Tables) Row(kind, id string) (*Row, bool) {
	row, ok := t.index[rowKey{kind: kind, id: id}]
	return row, ok
}

func (t *Tables) Len() int {
	return len(t.rows)
}

// ToChangeSet 按首次触达顺序输出变更集
func (t *Tables) ToChangeSet() *ChangeSet {
	cs := &ChangeSet{Changes: make([]EntityChange, 0, len(t.rows))}
	for _, row := range t.rows {
		cs.Changes = append(cs.Changes, EntityChange{
			Entity:    row.kind,
			ID:        row.id,
			Operation: row.op,
			Fields:    row.Fields(),
		})
	}
	return cs
}
