package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxEventTypeIsValid(t *testing.T) {
	t.Parallel()

	assert.True(t, EventCouponActivated.IsValid())
	assert.True(t, EventCouponCompleted.IsValid())
	assert.True(t, EventRaffleDrawn.IsValid())
	assert.False(t, OutboxEventType("coupon_deleted").IsValid())
}

func TestParseOutboxEventType(t *testing.T) {
	t.Parallel()

	parsed, err := ParseOutboxEventType("raffle_drawn")
	require.NoError(t, err)
	assert.Equal(t, EventRaffleDrawn, parsed)

	if _, err := ParseOutboxEventType("unknown"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseOutboxAggregateType(t *testing.T) {
	t.Parallel()

	parsed, err := ParseOutboxAggregateType("coupon")
	require.NoError(t, err)
	assert.Equal(t, AggregateCoupon, parsed)

	assert.False(t, OutboxAggregateType("station").IsValid())
	if _, err := ParseOutboxAggregateType("station"); err == nil {
		t.Fatal("expected parse error")
	}
}
