package bundle

import "encoding/binary"

// headerSize is the fixed size of the placeholder: two
// int64 fields (offset, length) plus a 32-byte sentinel magic.
const headerSize = 48

// sentinelSeed is the 32-byte sentinel signature XORed with 0xA5.
// Keeping only the obfuscated form in source means the reader's own image
// never contains the literal magic, so scanning the host executable finds
// the authoring tool's patched placeholder and nothing else.
var sentinelSeed = [32]byte{
	0x31, 0x55, 0x14, 0xde, 0xcd, 0x36, 0x45, 0x8c,
	0x92, 0x4e, 0x91, 0x4a, 0xf6, 0x0f, 0x42, 0x71,
	0x8e, 0xf1, 0x50, 0xd5, 0xdb, 0x50, 0x73, 0x50,
	0xdd, 0xf1, 0x3d, 0x9b, 0xfb, 0x31, 0x48, 0xd8,
}

// sentinelMagic is the de-obfuscated signature the authoring toolchain
// writes into the placeholder so the linker cannot merge or elide it.
var sentinelMagic = func() [32]byte {
	var m [32]byte
	for i, b := range sentinelSeed {
		m[i] = b ^ 0xA5
	}
	return m
}()

// header is the decoded form of the 48-byte placeholder.
type header struct {
	offset int64
	length int64
}

// parseHeader reads a 48-byte native-endian header and validates the
// sentinel magic. A zero offset/length with a valid magic means the host
// is unfused.
func parseHeader(b []byte) (header, bool, error) {
	if len(b) != headerSize {
		return header{}, false, errInvalidHeaderSize
	}

	var magic [32]byte
	copy(magic[:], b[16:48])
	if magic != sentinelMagic {
		return header{}, false, errBadSentinel
	}

	h := header{
		offset: int64(binary.NativeEndian.Uint64(b[0:8])),
		length: int64(binary.NativeEndian.Uint64(b[8:16])),
	}

	fused := h.offset != 0 || h.length != 0
	return h, fused, nil
}
