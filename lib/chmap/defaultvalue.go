package chmap

// --------------------------------------------------------------------------
// Default-Value Policy
// --------------------------------------------------------------------------

// DefaultValueProvider supplies a value for get-or-create (acquire-style)
// operations when no entry exists for the key.
//
// Supply is invoked while the segment's write lock is held; it must not call
// operations on the same map and must not block indefinitely.
type DefaultValueProvider[K, V any] interface {
	Supply(key K) V
}

// ConstantValue returns a provider that always supplies v. The value is
// encoded once at map construction and the encoded form is reused on every
// acquire miss.
func ConstantValue[K, V any](v V) DefaultValueProvider[K, V] {
	return &constantValue[K, V]{v: v}
}

type constantValue[K, V any] struct {
	v V
}

func (p *constantValue[K, V]) Supply(K) V { return p.v }

// DefaultValueFunc adapts a plain function into a per-key provider, invoked
// lazily on each acquire miss.
type DefaultValueFunc[K, V any] func(key K) V

func (f DefaultValueFunc[K, V]) Supply(key K) V { return f(key) }
