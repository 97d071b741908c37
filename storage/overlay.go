package storage

// Overlay buffers writes on top of a backing Database so one inbound
// message can be applied atomically: every mutation lands in the overlay
// first and reaches the backing store only when Commit is called. An
// overlay that is dropped without Commit leaves the backing store
// untouched, which is how failed messages roll back.
//
// Overlay is not safe for concurrent use; the node serializes message
// processing before handing an overlay to the engine.
type Overlay struct {
	backing Database
	pending map[string][]byte
	order   []string
}

// NewOverlay creates an empty overlay over the provided backing store.
func NewOverlay(backing Database) *Overlay {
	return &Overlay{
		backing: backing,
		pending: make(map[string][]byte),
	}
}

func (o *Overlay) Put(key []byte, value []byte) error {
	k := string(key)
	if _, ok := o.pending[k]; !ok {
		o.order = append(o.order, k)
	}
	o.pending[k] = append([]byte(nil), value...)
	return nil
}

func (o *Overlay) Get(key []byte) ([]byte, error) {
	if value, ok := o.pending[string(key)]; ok {
		return append([]byte(nil), value...), nil
	}
	return o.backing.Get(key)
}

func (o *Overlay) Has(key []byte) (bool, error) {
	if _, ok := o.pending[string(key)]; ok {
		return true, nil
	}
	return o.backing.Has(key)
}

// Commit flushes the buffered writes to the backing store in insertion
// order. After Commit the overlay is empty and can be reused.
func (o *Overlay) Commit() error {
	for _, k := range o.order {
		if err := o.backing.Put([]byte(k), o.pending[k]); err != nil {
			return err
		}
	}
	o.pending = make(map[string][]byte)
	o.order = nil
	return nil
}

// Discard drops all buffered writes without touching the backing store.
func (o *Overlay) Discard() {
	o.pending = make(map[string][]byte)
	o.order = nil
}

// Close satisfies the Database interface. The backing store stays open;
// its lifecycle belongs to the caller that opened it.
func (o *Overlay) Close() {}
