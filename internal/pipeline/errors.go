package pipeline

import "github.com/ironsheep/pnid-topology/internal/pnid"

// InputError is the error type for rejected input. Decoders in imaging and
// ingest return the same type, so a caller can classify any failure with
// IsInputError no matter which layer raised it.
type InputError = pnid.InputError

// IsInputError reports whether err is or wraps an *InputError.
func IsInputError(err error) bool {
	return pnid.IsInputError(err)
}
