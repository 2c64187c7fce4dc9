package enums

import "testing"

func TestOrderStatusCanAdvanceTo(t *testing.T) {
	t.Parallel()

	allowed := []struct {
		from OrderStatus
		to   OrderStatus
	}{
		{OrderStatusReceived, OrderStatusPreparing},
		{OrderStatusPreparing, OrderStatusReady},
		{OrderStatusReady, OrderStatusDelivered},
	}
	for _, tc := range allowed {
		if !tc.from.CanAdvanceTo(tc.to) {
			t.Fatalf("expected %s -> %s to be allowed", tc.from, tc.to)
		}
	}

	denied := []struct {
		from OrderStatus
		to   OrderStatus
	}{
		{OrderStatusReceived, OrderStatusReady},
		{OrderStatusReceived, OrderStatusDelivered},
		{OrderStatusPreparing, OrderStatusDelivered},
		{OrderStatusReady, OrderStatusPreparing},
		{OrderStatusDelivered, OrderStatusReceived},
		{OrderStatusCancelled, OrderStatusPreparing},
		{OrderStatusReceived, OrderStatusCancelled},
	}
	for _, tc := range denied {
		if tc.from.CanAdvanceTo(tc.to) {
			t.Fatalf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestOrderStatusTerminalAndCancellable(t *testing.T) {
	t.Parallel()

	if !OrderStatusDelivered.IsTerminal() || !OrderStatusCancelled.IsTerminal() {
		t.Fatal("delivered and cancelled must be terminal")
	}
	if OrderStatusReady.IsTerminal() {
		t.Fatal("ready must not be terminal")
	}
	if !OrderStatusReceived.IsCancellable() || !OrderStatusPreparing.IsCancellable() {
		t.Fatal("received and preparing must be cancellable")
	}
	if OrderStatusReady.IsCancellable() || OrderStatusDelivered.IsCancellable() {
		t.Fatal("ready and delivered must not be cancellable")
	}
}
