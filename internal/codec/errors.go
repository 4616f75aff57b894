package codec

import "errors"

// Sentinel errors for the wire grammar described in the protocol design.
// Callers compare with errors.Is; none of these wrap further context by
// design since the codec is pure and stateless.
var (
	// ErrInvalidQuery marks a QNAME or TXT payload that does not parse
	// under the grammar (missing suffix, wrong field count, bad verb).
	ErrInvalidQuery = errors.New("codec: invalid query")

	// ErrNameTooLong marks an encode that would exceed DNS label (63
	// octets) or name (255 octets) limits.
	ErrNameTooLong = errors.New("codec: name too long")

	// ErrInvalidName marks a filename that can't be encoded unambiguously
	// (currently: contains a literal '-', which collides with the '.'
	// substitution used in the GET command).
	ErrInvalidName = errors.New("codec: invalid filename")

	// ErrChecksumMismatch marks a decoded chunk whose advertised checksum
	// does not match the computed one.
	ErrChecksumMismatch = errors.New("codec: checksum mismatch")

	// ErrChunkTooLarge marks an encoded TXT payload that would exceed the
	// 255-octet DNS character-string limit.
	ErrChunkTooLarge = errors.New("codec: chunk too large")
)
