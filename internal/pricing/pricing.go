// Package pricing holds the totals rules shared by checkout and payment
// intent sizing. All amounts are minor currency units.
package pricing

const (
	// FreeShippingThreshold: orders strictly above this subtotal ship free.
	FreeShippingThreshold int64 = 100000

	// StandardDeliveryFee applies at or below the threshold.
	StandardDeliveryFee int64 = 5000
)

func DeliveryFee(subtotal int64) int64 {
	if subtotal > FreeShippingThreshold {
		return 0
	}
	return StandardDeliveryFee
}

func Total(subtotal int64) int64 {
	return subtotal + DeliveryFee(subtotal)
}
