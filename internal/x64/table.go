package x64

import "sync"

// OperatorTable assigns a stable code to each distinct operand
// descriptor. Codes start at 1; 0 means "no operand". The table is safe
// for concurrent use, but codes are only deterministic when operands are
// added in a fixed order.
type OperatorTable struct {
	mu    sync.Mutex
	codes map[Descriptor]int64
	ops   []Descriptor
}

func NewOperatorTable() *OperatorTable {
	return &OperatorTable{codes: make(map[Descriptor]int64)}
}

// Add returns the code for d, assigning the next one if d is new.
func (t *OperatorTable) Add(d Descriptor) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if code, ok := t.codes[d]; ok {
		return code
	}
	t.ops = append(t.ops, d)
	code := int64(len(t.ops))
	t.codes[d] = code
	return code
}

// Lookup returns the descriptor registered under code.
func (t *OperatorTable) Lookup(code int64) (Descriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if code < 1 || code > int64(len(t.ops)) {
		return Descriptor{}, false
	}
	return t.ops[code-1], true
}

// Len returns the number of distinct descriptors.
func (t *OperatorTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ops)
}

// Each calls fn for every descriptor in code order.
func (t *OperatorTable) Each(fn func(code int64, d Descriptor)) {
	t.mu.Lock()
	ops := append([]Descriptor(nil), t.ops...)
	t.mu.Unlock()
	for i, d := range ops {
		fn(int64(i+1), d)
	}
}
