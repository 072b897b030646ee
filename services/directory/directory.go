package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist in the directory.
var ErrNotFound = errors.New("directory: key not found")

// Store is the access layer over the shared session directory. Reads are
// plain operations; writes that span more than one key go through Apply so
// they hit the store atomically (all keys updated or none).
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// SetNX writes the key only if it does not exist yet and reports whether
	// the write happened. This is the compare-and-swap primitive used to
	// close check-then-act races.
	SetNX(ctx context.Context, key, value string) (bool, error)
	Delete(ctx context.Context, keys ...string) error

	HashGet(ctx context.Context, key, field string) (string, error)
	HashGetAll(ctx context.Context, key string) (map[string]string, error)

	SetAdd(ctx context.Context, key string, members ...string) error
	SetRemove(ctx context.Context, key string, members ...string) error
	SetMembers(ctx context.Context, key string) ([]string, error)

	// Apply executes the queued batch atomically. Any failure aborts the
	// whole batch; partial application is never observable.
	Apply(ctx context.Context, batch *Batch) error
	// ApplyIfBelow applies the batch only while the set at setKey holds fewer
	// than limit members, atomically with that check. It reports whether the
	// batch was applied, so capacity checks hold under concurrent writers.
	ApplyIfBelow(ctx context.Context, setKey string, limit int, batch *Batch) (bool, error)
}

type opKind int

const (
	opSet opKind = iota
	opDelete
	opHashSet
	opSetAdd
	opSetRemove
)

type batchOp struct {
	kind    opKind
	key     string
	value   string
	fields  map[string]string
	members []string
	keys    []string
}

// Batch accumulates multi-key writes for atomic application via Store.Apply.
type Batch struct {
	ops []batchOp
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Set(key, value string) *Batch {
	b.ops = append(b.ops, batchOp{kind: opSet, key: key, value: value})
	return b
}

func (b *Batch) Delete(keys ...string) *Batch {
	b.ops = append(b.ops, batchOp{kind: opDelete, keys: keys})
	return b
}

func (b *Batch) HashSet(key string, fields map[string]string) *Batch {
	b.ops = append(b.ops, batchOp{kind: opHashSet, key: key, fields: fields})
	return b
}

func (b *Batch) SetAdd(key string, members ...string) *Batch {
	b.ops = append(b.ops, batchOp{kind: opSetAdd, key: key, members: members})
	return b
}

func (b *Batch) SetRemove(key string, members ...string) *Batch {
	b.ops = append(b.ops, batchOp{kind: opSetRemove, key: key, members: members})
	return b
}

// Len reports the number of queued operations.
func (b *Batch) Len() int {
	return len(b.ops)
}
