package consensus

import "errors"

// ErrUnknownMode indicates that the consensus mode is unknown.
var ErrUnknownMode = errors.New("unknown consensus mode")
