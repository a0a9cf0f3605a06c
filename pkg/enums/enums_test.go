package enums

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseOrderStatus(t *testing.T) {
	for _, status := range OrderStatuses() {
		got, err := ParseOrderStatus(string(status))
		require.NoError(t, err)
		require.Equal(t, status, got)
	}

	_, err := ParseOrderStatus("returned")
	require.EqualError(t, err, `invalid order status "returned"`)
	require.False(t, OrderStatus("PENDING").IsValid(), "matching is case sensitive")
}

func TestOrderStatusesIsACopy(t *testing.T) {
	all := OrderStatuses()
	all[0] = "mutated"
	require.Equal(t, OrderStatusPending, OrderStatuses()[0])
}

func TestParsePaymentStatus(t *testing.T) {
	got, err := ParsePaymentStatus("paid")
	require.NoError(t, err)
	require.Equal(t, PaymentStatusPaid, got)

	_, err = ParsePaymentStatus("settled")
	require.Error(t, err)
}

func TestParseAddressKind(t *testing.T) {
	kind, err := ParseAddressKind("billing")
	require.NoError(t, err)
	require.Equal(t, AddressKindBilling, kind)

	_, err = ParseAddressKind("home")
	require.EqualError(t, err, `invalid address kind "home"`)
}

func TestOutboxEnums(t *testing.T) {
	require.True(t, EventOrderCreated.IsValid())
	require.True(t, AggregateCart.IsValid())
	require.True(t, OutboxDLQReasonNonRetryable.IsValid())
	require.False(t, OutboxDLQErrorReason("gave_up").IsValid())

	_, err := ParseOutboxEventType("media_uploaded")
	require.Error(t, err)
}

func TestOnlyPublishedProductsArePurchasable(t *testing.T) {
	require.True(t, ProductStatusPublished.Purchasable())
	require.False(t, ProductStatusDraft.Purchasable())
	require.False(t, ProductStatusArchived.Purchasable())
	require.False(t, UserRole("admin").IsValid())
}
