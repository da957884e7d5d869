package loyalty

import "errors"

var (
	ErrNotFound            = errors.New("loyalty: record not found")
	ErrUnauthorized        = errors.New("loyalty: unauthorized")
	ErrProgramExists       = errors.New("loyalty: program already exists")
	ErrMerchantExists      = errors.New("loyalty: merchant already exists")
	ErrCustomerExists      = errors.New("loyalty: customer already exists")
	ErrMerchantNotActive   = errors.New("loyalty: merchant not active")
	ErrMerchantNotEmpty    = errors.New("loyalty: merchant owns active rules or offers")
	ErrOfferNotAvailable   = errors.New("loyalty: offer not available")
	ErrInsufficientBalance = errors.New("loyalty: insufficient balance")
	ErrInvalidTransition   = errors.New("loyalty: invalid voucher transition")
	ErrDuplicateVoucher    = errors.New("loyalty: voucher already exists")
	ErrDuplicateOffer      = errors.New("loyalty: offer name already taken")
	ErrVoucherExpired      = errors.New("loyalty: voucher expired")
	ErrOverflow            = errors.New("loyalty: counter overflow")
	ErrInvalidName         = errors.New("loyalty: invalid name")
	ErrInvalidRate         = errors.New("loyalty: invalid reward rate")
	ErrInvalidRule         = errors.New("loyalty: invalid reward rule")
	ErrInvalidOffer        = errors.New("loyalty: invalid offer")
)
