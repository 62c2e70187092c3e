package cache

// prefixed namespaces the keys of a shared Store.
type prefixed struct {
	store  Store
	prefix string
}

// WithPrefix returns a Store that prepends prefix to every key, so that
// several datasets can share one backend.
func WithPrefix(store Store, prefix string) Store {
	return &prefixed{store: store, prefix: prefix}
}

func (p *prefixed) Load(key string, v any) (bool, error) {
	return p.store.Load(p.prefix+key, v)
}

func (p *prefixed) Store(key string, v any) error {
	return p.store.Store(p.prefix+key, v)
}
