package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeliveryFee_Boundary(t *testing.T) {
	assert.Equal(t, int64(5000), DeliveryFee(0))
	assert.Equal(t, int64(5000), DeliveryFee(60000))
	assert.Equal(t, int64(5000), DeliveryFee(100000)) // at the threshold the fee still applies
	assert.Equal(t, int64(0), DeliveryFee(100001))
	assert.Equal(t, int64(0), DeliveryFee(250000))
}

func TestTotal(t *testing.T) {
	assert.Equal(t, int64(65000), Total(60000))
	assert.Equal(t, int64(105000), Total(100000))
	assert.Equal(t, int64(100001), Total(100001))
}
