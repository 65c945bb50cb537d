package daraja

import "errors"

var (
	ErrCredentialsMissing = errors.New("daraja consumer key or secret not configured")
	ErrCertificateMissing = errors.New("daraja certificate path not configured")
	ErrInvalidPhoneFormat = errors.New("invalid phone number format")
	ErrInvalidAmount      = errors.New("amount must be at least 1")
	ErrGatewayUnreachable = errors.New("payment gateway unreachable")
	ErrPushFailed         = errors.New("push request failed")
)
