package services

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAuctionNotOpen    = errors.New("auction is not open for bidding")
	ErrBidTooLow         = errors.New("bid is below the minimum accepted amount")
	ErrSelfBid           = errors.New("owners cannot bid on their own product")
	ErrInsufficientFunds = errors.New("insufficient available funds")
	ErrInvalidWindow     = errors.New("auction end must be after its start")
	ErrNotOwner          = errors.New("product does not belong to user")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrProductInAuction  = errors.New("product already has an open auction")
	ErrProductLocked     = errors.New("product is referenced by an auction")
	ErrUnknownCategory   = errors.New("unknown category")
	ErrInvalidCondition  = errors.New("condition must be new or used")
	ErrCreditLimit       = errors.New("credit exceeds the per-operation limit")
)
