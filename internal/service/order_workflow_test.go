package service

import (
	"context"
	"testing"

	"saipov-admin/internal/auth"
	"saipov-admin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderAPI struct {
	orders      map[string]*models.Order
	updateCalls int
	cancelCalls int
	failWith    error
}

func newFakeOrderAPI(orders ...*models.Order) *fakeOrderAPI {
	f := &fakeOrderAPI{orders: make(map[string]*models.Order)}
	for _, o := range orders {
		f.orders[o.ID] = o
	}
	return f
}

func (f *fakeOrderAPI) GetOrders(ctx context.Context, token string) ([]models.Order, error) {
	result := make([]models.Order, 0, len(f.orders))
	for _, o := range f.orders {
		result = append(result, *o)
	}
	return result, nil
}

func (f *fakeOrderAPI) GetOrder(ctx context.Context, token, orderID string) (*models.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, models.NewRemoteError(404, "buyurtma topilmadi", nil)
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrderAPI) UpdateOrderStatus(ctx context.Context, token, orderID string, status models.OrderStatus, internalNotes string) (*models.Order, error) {
	f.updateCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	o := f.orders[orderID]
	o.Status = status
	if internalNotes != "" {
		o.InternalNotes = internalNotes
	}
	copied := *o
	return &copied, nil
}

func (f *fakeOrderAPI) CancelOrder(ctx context.Context, token, orderID, cancelReason string) (*models.Order, error) {
	f.cancelCalls++
	if f.failWith != nil {
		return nil, f.failWith
	}
	o := f.orders[orderID]
	o.Status = models.StatusCancelled
	o.CancelReason = cancelReason
	copied := *o
	return &copied, nil
}

type fakePublisher struct {
	statusEvents []*models.OrderStatusChangedEvent
	cancelEvents []*models.OrderCancelledEvent
}

func (f *fakePublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	f.statusEvents = append(f.statusEvents, event)
	return nil
}

func (f *fakePublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	f.cancelEvents = append(f.cancelEvents, event)
	return nil
}

type fakeAudit struct {
	entries []*models.AuditEntry
}

func (f *fakeAudit) RecordAction(ctx context.Context, entry *models.AuditEntry) error {
	f.entries = append(f.entries, entry)
	return nil
}

func testSession() *auth.Session {
	return &auth.Session{
		Token:         "console-token",
		AdminID:       "admin-1",
		FullName:      "Test Admin",
		UpstreamToken: "upstream-token",
	}
}

func TestUpdateStatusRejectsTerminalOrders(t *testing.T) {
	for _, status := range []models.OrderStatus{models.StatusDelivered, models.StatusCancelled} {
		api := newFakeOrderAPI(&models.Order{ID: "o1", Status: status})
		w := NewOrderWorkflow(api, &fakePublisher{}, &fakeAudit{})

		order, _ := api.GetOrder(context.Background(), "tok", "o1")
		_, err := w.UpdateStatus(context.Background(), testSession(), order, models.StatusInProcess, "")

		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, 0, api.updateCalls, "terminal order must be rejected before any remote call")
	}
}

func TestCancelRejectsTerminalOrders(t *testing.T) {
	for _, status := range []models.OrderStatus{models.StatusDelivered, models.StatusCancelled} {
		api := newFakeOrderAPI(&models.Order{ID: "o1", Status: status})
		w := NewOrderWorkflow(api, &fakePublisher{}, &fakeAudit{})

		order, _ := api.GetOrder(context.Background(), "tok", "o1")
		_, err := w.Cancel(context.Background(), testSession(), order, "mijoz rad etdi")

		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, 0, api.cancelCalls)
	}
}

func TestUpdateStatusValidation(t *testing.T) {
	tests := []struct {
		name      string
		newStatus models.OrderStatus
	}{
		{"empty status", ""},
		{"unknown status", "shipped"},
		{"same status", models.StatusNotContacted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFakeOrderAPI(&models.Order{ID: "o1", Status: models.StatusNotContacted})
			w := NewOrderWorkflow(api, &fakePublisher{}, &fakeAudit{})

			order, _ := api.GetOrder(context.Background(), "tok", "o1")
			_, err := w.UpdateStatus(context.Background(), testSession(), order, tt.newStatus, "")

			var validationErr *models.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, 0, api.updateCalls)
		})
	}
}

func TestCancelRequiresNonBlankReason(t *testing.T) {
	for _, reason := range []string{"", "   "} {
		api := newFakeOrderAPI(&models.Order{ID: "o1", Status: models.StatusInProcess})
		w := NewOrderWorkflow(api, &fakePublisher{}, &fakeAudit{})

		order, _ := api.GetOrder(context.Background(), "tok", "o1")
		_, err := w.Cancel(context.Background(), testSession(), order, reason)

		var validationErr *models.ValidationError
		require.ErrorAs(t, err, &validationErr)
		assert.Equal(t, "cancelReason", validationErr.Field)
		assert.Equal(t, 0, api.cancelCalls)
	}
}

func TestUpdateStatusLifecycle(t *testing.T) {
	api := newFakeOrderAPI(&models.Order{ID: "o1", OrderNumber: "SF-100", Status: models.StatusNotContacted})
	publisher := &fakePublisher{}
	audit := &fakeAudit{}
	w := NewOrderWorkflow(api, publisher, audit)
	sess := testSession()

	order, _ := api.GetOrder(context.Background(), "tok", "o1")
	updated, err := w.UpdateStatus(context.Background(), sess, order, models.StatusInProcess, "mijoz bilan gaplashildi")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProcess, updated.Status)

	updated, err = w.UpdateStatus(context.Background(), sess, updated, models.StatusDelivered, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDelivered, updated.Status)
	assert.True(t, updated.Status.Terminal())

	_, err = w.UpdateStatus(context.Background(), sess, updated, models.StatusInProcess, "")
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)

	assert.Equal(t, 2, api.updateCalls)
	require.Len(t, publisher.statusEvents, 2)
	assert.Equal(t, models.StatusNotContacted, publisher.statusEvents[0].FromStatus)
	assert.Equal(t, models.StatusInProcess, publisher.statusEvents[0].ToStatus)
	assert.Equal(t, "admin-1", publisher.statusEvents[0].ActorID)
	assert.Len(t, audit.entries, 2)
}

func TestCancelPersistsReasonAndPublishes(t *testing.T) {
	api := newFakeOrderAPI(&models.Order{ID: "o1", OrderNumber: "SF-101", Status: models.StatusNotContacted})
	publisher := &fakePublisher{}
	audit := &fakeAudit{}
	w := NewOrderWorkflow(api, publisher, audit)

	order, _ := api.GetOrder(context.Background(), "tok", "o1")
	updated, err := w.Cancel(context.Background(), testSession(), order, "mijoz rad etdi")
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, updated.Status)
	assert.Equal(t, "mijoz rad etdi", updated.CancelReason)
	require.Len(t, publisher.cancelEvents, 1)
	assert.Equal(t, "mijoz rad etdi", publisher.cancelEvents[0].Reason)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionOrderCancel, audit.entries[0].Action)
}

func TestRemoteFailureLeavesNoSideEffects(t *testing.T) {
	api := newFakeOrderAPI(&models.Order{ID: "o1", Status: models.StatusNotContacted})
	api.failWith = models.NewRemoteError(500, "", nil)
	publisher := &fakePublisher{}
	audit := &fakeAudit{}
	w := NewOrderWorkflow(api, publisher, audit)

	order, _ := api.GetOrder(context.Background(), "tok", "o1")
	_, err := w.UpdateStatus(context.Background(), testSession(), order, models.StatusInProcess, "")

	var remoteErr *models.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, models.GenericRemoteMessage, remoteErr.Message)
	assert.Empty(t, publisher.statusEvents)
	assert.Empty(t, audit.entries)
}

func TestMutationInFlightGuard(t *testing.T) {
	api := newFakeOrderAPI(&models.Order{ID: "o1", Status: models.StatusNotContacted})
	w := NewOrderWorkflow(api, &fakePublisher{}, &fakeAudit{})

	require.True(t, w.acquire("o1"))

	order, _ := api.GetOrder(context.Background(), "tok", "o1")
	_, err := w.UpdateStatus(context.Background(), testSession(), order, models.StatusInProcess, "")
	assert.ErrorIs(t, err, models.ErrMutationInFlight)
	assert.Equal(t, 0, api.updateCalls)

	_, err = w.Cancel(context.Background(), testSession(), order, "sabab")
	assert.ErrorIs(t, err, models.ErrMutationInFlight)
	assert.Equal(t, 0, api.cancelCalls)

	w.release("o1")
	_, err = w.UpdateStatus(context.Background(), testSession(), order, models.StatusInProcess, "")
	assert.NoError(t, err)
}

func TestAllowedTargets(t *testing.T) {
	targets := AllowedTargets(models.StatusNotContacted)
	assert.Len(t, targets, 3)
	assert.NotContains(t, targets, models.StatusNotContacted)

	targets = AllowedTargets(models.StatusInProcess)
	assert.NotContains(t, targets, models.StatusInProcess)

	assert.Empty(t, AllowedTargets(models.StatusDelivered))
	assert.Empty(t, AllowedTargets(models.StatusCancelled))
}

func TestListOrdersFilter(t *testing.T) {
	api := newFakeOrderAPI(
		&models.Order{ID: "o1", OrderNumber: "SF-100", Status: models.StatusNotContacted,
			Customer: models.Customer{FullName: "Aziz Karimov", PhoneNumber: "+998901234567"}},
		&models.Order{ID: "o2", OrderNumber: "SF-101", Status: models.StatusInProcess,
			Customer: models.Customer{FullName: "Dilnoza Rahimova", PhoneNumber: "+998907654321"}},
	)
	w := NewOrderWorkflow(api, &fakePublisher{}, &fakeAudit{})
	sess := testSession()

	orders, err := w.ListOrders(context.Background(), sess, "aziz")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)

	orders, err = w.ListOrders(context.Background(), sess, "998907")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "o2", orders[0].ID)

	orders, err = w.ListOrders(context.Background(), sess, "")
	require.NoError(t, err)
	assert.Len(t, orders, 2)
}
