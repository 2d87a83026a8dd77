package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"saipov-admin/internal/auth"
	"saipov-admin/internal/models"
	"saipov-admin/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderAPI is the slice of the commerce API the workflow needs.
type OrderAPI interface {
	GetOrders(ctx context.Context, token string) ([]models.Order, error)
	GetOrder(ctx context.Context, token, orderID string) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, token, orderID string, status models.OrderStatus, internalNotes string) (*models.Order, error)
	CancelOrder(ctx context.Context, token, orderID, cancelReason string) (*models.Order, error)
}

// StatusEventPublisher publishes order lifecycle events.
type StatusEventPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
}

// AuditRecorder appends rows to the console action log.
type AuditRecorder interface {
	RecordAction(ctx context.Context, entry *models.AuditEntry) error
}

// OrderWorkflow drives order status transitions and cancellation. All
// preconditions are checked against the in-hand order before any call
// reaches the remote API; delivered and cancelled orders are locked out
// of further mutation.
type OrderWorkflow struct {
	api    OrderAPI
	events StatusEventPublisher
	audit  AuditRecorder
	logger *zap.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewOrderWorkflow creates a new order workflow service
func NewOrderWorkflow(api OrderAPI, events StatusEventPublisher, audit AuditRecorder) *OrderWorkflow {
	return &OrderWorkflow{
		api:      api,
		events:   events,
		audit:    audit,
		logger:   util.GetLogger(),
		inFlight: make(map[string]struct{}),
	}
}

// AllowedTargets lists the statuses an order may be moved to from its
// current status: none for terminal states, every other status
// otherwise. The current status is never selectable.
func AllowedTargets(current models.OrderStatus) []models.OrderStatus {
	if current.Terminal() {
		return nil
	}

	targets := make([]models.OrderStatus, 0, 3)
	for _, s := range models.AllStatuses() {
		if s != current {
			targets = append(targets, s)
		}
	}
	return targets
}

// ListOrders retrieves the full order collection, optionally filtered by
// a case-insensitive substring match over order number and customer
// name/phone.
func (w *OrderWorkflow) ListOrders(ctx context.Context, sess *auth.Session, search string) ([]models.Order, error) {
	orders, err := w.api.GetOrders(ctx, sess.UpstreamToken)
	if err != nil {
		return nil, err
	}

	search = strings.TrimSpace(search)
	if search == "" {
		return orders, nil
	}

	needle := strings.ToLower(search)
	filtered := make([]models.Order, 0, len(orders))
	for _, order := range orders {
		if strings.Contains(strings.ToLower(order.OrderNumber), needle) ||
			strings.Contains(strings.ToLower(order.Customer.FullName), needle) ||
			strings.Contains(order.Customer.PhoneNumber, search) {
			filtered = append(filtered, order)
		}
	}
	return filtered, nil
}

// GetOrder retrieves one order by id.
func (w *OrderWorkflow) GetOrder(ctx context.Context, sess *auth.Session, orderID string) (*models.Order, error) {
	return w.api.GetOrder(ctx, sess.UpstreamToken, orderID)
}

// UpdateStatus moves an order to a new status with optional internal
// notes. The order argument is the caller's current snapshot; every
// precondition is checked against it locally.
func (w *OrderWorkflow) UpdateStatus(ctx context.Context, sess *auth.Session, order *models.Order, newStatus models.OrderStatus, internalNotes string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderWorkflow.UpdateStatus")
	defer span.End()

	if order.Status.Terminal() {
		util.MutationsRejectedTotal.WithLabelValues("terminal").Inc()
		return nil, models.NewValidationError("status", "buyurtma yakuniy holatda, uni o'zgartirib bo'lmaydi")
	}
	if newStatus == "" {
		util.MutationsRejectedTotal.WithLabelValues("empty_status").Inc()
		return nil, models.NewValidationError("status", "yangi holatni tanlang")
	}
	if !newStatus.Valid() {
		util.MutationsRejectedTotal.WithLabelValues("invalid_status").Inc()
		return nil, models.NewValidationError("status", "noma'lum holat qiymati")
	}
	if newStatus == order.Status {
		util.MutationsRejectedTotal.WithLabelValues("same_status").Inc()
		return nil, models.NewValidationError("status", "buyurtma allaqachon shu holatda")
	}

	if !w.acquire(order.ID) {
		util.MutationsRejectedTotal.WithLabelValues("in_flight").Inc()
		return nil, models.ErrMutationInFlight
	}
	defer w.release(order.ID)

	updated, err := w.api.UpdateOrderStatus(ctx, sess.UpstreamToken, order.ID, newStatus, internalNotes)
	if err != nil {
		return nil, err
	}

	util.StatusTransitionsTotal.WithLabelValues(string(newStatus)).Inc()
	w.logger.Info("Order status updated",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(order.Status)),
		zap.String("to", string(newStatus)),
		zap.String("actor_id", sess.AdminID))

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		FromStatus:  order.Status,
		ToStatus:    newStatus,
		ActorID:     sess.AdminID,
		Notes:       internalNotes,
	}
	if err := w.events.PublishOrderStatusChanged(ctx, event); err != nil {
		util.EventPublishFailuresTotal.Inc()
		w.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	w.recordAudit(ctx, sess, models.AuditActionStatusChange, order.ID,
		string(order.Status)+" -> "+string(newStatus))

	return updated, nil
}

// Cancel moves an order to cancelled with a mandatory reason.
func (w *OrderWorkflow) Cancel(ctx context.Context, sess *auth.Session, order *models.Order, cancelReason string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderWorkflow.Cancel")
	defer span.End()

	if order.Status.Terminal() {
		util.MutationsRejectedTotal.WithLabelValues("terminal").Inc()
		return nil, models.NewValidationError("status", "buyurtma yakuniy holatda, uni o'zgartirib bo'lmaydi")
	}
	if strings.TrimSpace(cancelReason) == "" {
		util.MutationsRejectedTotal.WithLabelValues("empty_reason").Inc()
		return nil, models.NewValidationError("cancelReason", "bekor qilish sababini kiriting")
	}

	if !w.acquire(order.ID) {
		util.MutationsRejectedTotal.WithLabelValues("in_flight").Inc()
		return nil, models.ErrMutationInFlight
	}
	defer w.release(order.ID)

	updated, err := w.api.CancelOrder(ctx, sess.UpstreamToken, order.ID, cancelReason)
	if err != nil {
		return nil, err
	}

	util.OrdersCancelledTotal.Inc()
	w.logger.Info("Order cancelled",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("reason", cancelReason),
		zap.String("actor_id", sess.AdminID))

	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		FromStatus:  order.Status,
		ActorID:     sess.AdminID,
		Reason:      cancelReason,
	}
	if err := w.events.PublishOrderCancelled(ctx, event); err != nil {
		util.EventPublishFailuresTotal.Inc()
		w.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	w.recordAudit(ctx, sess, models.AuditActionOrderCancel, order.ID, cancelReason)

	return updated, nil
}

// acquire marks an order as having a mutation in flight. At most one
// mutating call per order is allowed at a time.
func (w *OrderWorkflow) acquire(orderID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, busy := w.inFlight[orderID]; busy {
		return false
	}
	w.inFlight[orderID] = struct{}{}
	return true
}

func (w *OrderWorkflow) release(orderID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.inFlight, orderID)
}

// recordAudit writes the action log row. Audit is best effort and never
// fails the operation.
func (w *OrderWorkflow) recordAudit(ctx context.Context, sess *auth.Session, action, orderID, detail string) {
	entry := &models.AuditEntry{
		ActorID:    sess.AdminID,
		ActorName:  sess.FullName,
		Action:     action,
		EntityType: "order",
		EntityID:   orderID,
		Detail:     detail,
	}
	if err := w.audit.RecordAction(ctx, entry); err != nil {
		util.AuditWriteFailuresTotal.Inc()
		w.logger.Error("Failed to record audit entry",
			zap.String("action", action),
			zap.Error(err))
	}
}
