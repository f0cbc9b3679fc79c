package checkout

import "errors"

var (
	// ErrEmptyBasket means there is nothing to check out.
	ErrEmptyBasket = errors.New("basket is empty, nothing to check out")
)
