package codec

import "github.com/preon-go/preon/pkg/types"

// wrapBufferErr lifts a low-level bitio error (a plain error from
// BitBuffer/BitChannel) into the single *types.Error shape spec.md §7
// requires every public-facing error to have, attaching the buffer's bit
// position at the point of failure.
func wrapBufferErr(code types.ErrorCode, err error, bitPos int64) *types.Error {
	return types.NewRuntimeError(code, err.Error(), bitPos, "").WithCause(err)
}
