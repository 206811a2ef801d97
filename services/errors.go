package services

import "errors"

var (
	errNotWhitelisted   = errors.New("fee currency is not whitelisted for this business")
	errUnknownTxKind    = errors.New("unknown transaction kind")
	errInvalidSignature = errors.New("invalid signature encoding, r and s must be hex quantities")
)
