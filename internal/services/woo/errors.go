package woo

import "errors"

var (
	// ErrInternal is returned when a request could not be built or sent
	ErrInternal = errors.New("woocommerce client: internal error")

	// ErrInvalidResponse is returned on unexpected status codes or payloads
	ErrInvalidResponse = errors.New("woocommerce client: invalid response")

	// ErrNoProducts is returned when none of the order SKUs exist in the shop
	ErrNoProducts = errors.New("no products found for the given SKUs")

	// ErrInvalidArgument is returned for an empty order id or discount
	ErrInvalidArgument = errors.New("empty order ID or discount")
)
