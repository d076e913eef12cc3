// Package serial provides the codec plugins used to move typed keys and
// values in and out of raw segment memory.
//
// A Codec knows three things about its type: how many bytes an encoded value
// occupies, how to write a value into a caller-provided byte region, and how
// to materialize a value from such a region. Codecs never allocate the
// destination region themselves - the storage engine owns all entry memory
// and hands codecs exactly-sized slices of it.
//
// Two materialization strategies exist and a codec declares which it
// supports:
//
//   - Owned instances: Decode produces a fresh, heap-resident value that is
//     independent of the source bytes and safe to retain indefinitely.
//   - Reused instances: codecs that additionally implement InPlaceCodec can
//     decode into a caller-supplied mutable instance (DecodeInto), which is
//     required for the acquire/getUsing style of map operations where the
//     caller's instance must be the one returned.
//
// The package ships codecs for string, []byte, uint64 and *Blob. All integer
// encodings are little-endian.
package serial
