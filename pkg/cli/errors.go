package cli

import "errors"

// Common CLI errors
var (
	ErrInvalidMode    = errors.New("invalid mode: expected default, aggressive or test")
	ErrNoConfigFile   = errors.New("no fault file given: pass a FILE argument or set --config")
	ErrWatchNeedsFile = errors.New("--watch needs a fault file (--config)")
)
