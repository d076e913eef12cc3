package chmap

import "github.com/imlxw/Chronicle-Map/lib/serial"

// --------------------------------------------------------------------------
// Return-Value Policy
// --------------------------------------------------------------------------

// ReturnValue stages an operation's result. Stage must be called while the
// segment lock is still held - the source bytes alias segment memory and are
// invalid after release. Get may be called after the lock is gone: by then
// the result is fully materialized (or deliberately discarded).
type ReturnValue[V any] interface {
	// Stage materializes (or discards) the result from entry bytes.
	Stage(src []byte)
	// Get returns the materialized result and whether one was staged.
	Get() (V, bool)
}

// discardReturn never decodes. It is selected when the map is configured
// with PutReturnsNull/RemoveReturnsNull and the caller gave up on the
// previous value in exchange for skipping the decode entirely.
type discardReturn[V any] struct{}

func (discardReturn[V]) Stage([]byte) {}

func (discardReturn[V]) Get() (V, bool) {
	var zero V
	return zero, false
}

// freshReturn decodes into a newly produced, heap-owned instance.
type freshReturn[V any] struct {
	codec serial.Codec[V]
	v     V
	ok    bool
}

func (r *freshReturn[V]) Stage(src []byte) {
	r.v = r.codec.Decode(src)
	r.ok = true
}

func (r *freshReturn[V]) Get() (V, bool) { return r.v, r.ok }

func (r *freshReturn[V]) reset() {
	var zero V
	r.v = zero
	r.ok = false
}

// usingReturn decodes into the caller-supplied mutable instance. The decoded
// instance must be the exact instance that was supplied; verify enforces
// this after the operation body completed.
type usingReturn[V any] struct {
	codec serial.InPlaceCodec[V]
	given V
	got   V
	ok    bool
}

func (r *usingReturn[V]) init(given V) {
	r.given = given
	r.got = given
	r.ok = false
}

func (r *usingReturn[V]) Stage(src []byte) {
	r.got = r.codec.DecodeInto(src, r.given)
	r.ok = true
}

func (r *usingReturn[V]) Get() (V, bool) { return r.got, r.ok }

// verify reports whether the staged instance is the supplied one.
func (r *usingReturn[V]) verify() bool {
	return !r.ok || r.codec.Same(r.got, r.given)
}

func (r *usingReturn[V]) reset() {
	var zero V
	r.given = zero
	r.got = zero
	r.ok = false
}
