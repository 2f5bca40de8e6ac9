package service

import "errors"

// Error categories returned by the services. Causes are wrapped alongside the
// category so both can be matched with errors.Is.
var (
	ErrValidation            = errors.New("validation failed")
	ErrStorage               = errors.New("order store unavailable")
	ErrPaymentGateway        = errors.New("payment gateway error")
	ErrSignatureVerification = errors.New("webhook signature verification failed")
	ErrNotFound              = errors.New("not found")
)
