// Package core holds the types shared by every exchange subpackage: the order side
// and the error taxonomy. All errors are recoverable; callers report them and retry.
package core

import "errors"

var (
	ErrInsufficientFunds         = errors.New("insufficient funds")
	ErrInsufficientAssetHoldings = errors.New("insufficient asset holdings")
	ErrInsufficientPoolSupply    = errors.New("insufficient pool supply")
	ErrUnknownAsset              = errors.New("unknown asset")
	ErrInvalidAmount             = errors.New("invalid amount")

	ErrUnknownUser = errors.New("unknown user")
	ErrEmailInUse  = errors.New("email already in use")
	ErrInvalidSide = errors.New("invalid order side")
)
