package models

import "time"

// OrderStatus is the closed set of fulfillment states an order moves through.
type OrderStatus string

const (
	StatusNotContacted OrderStatus = "not_contacted"
	StatusInProcess    OrderStatus = "in_process"
	StatusDelivered    OrderStatus = "delivered"
	StatusCancelled    OrderStatus = "cancelled"
)

// AllStatuses lists every valid status in display order.
func AllStatuses() []OrderStatus {
	return []OrderStatus{StatusNotContacted, StatusInProcess, StatusDelivered, StatusCancelled}
}

// Valid reports whether s is a member of the status enum.
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusNotContacted, StatusInProcess, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further status mutation is permitted.
func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// Label returns the operator-facing label for a status. Unknown values
// fall back to the raw string rather than failing.
func (s OrderStatus) Label() string {
	switch s {
	case StatusNotContacted:
		return "Bog'lanilmagan"
	case StatusInProcess:
		return "Jarayonda"
	case StatusDelivered:
		return "Yetkazilgan"
	case StatusCancelled:
		return "Bekor qilingan"
	}
	return string(s)
}

// BadgeColor returns the badge color class for a status, with a neutral
// default for unknown values.
func (s OrderStatus) BadgeColor() string {
	switch s {
	case StatusNotContacted:
		return "bg-yellow-100 text-yellow-800"
	case StatusInProcess:
		return "bg-blue-100 text-blue-800"
	case StatusDelivered:
		return "bg-green-100 text-green-800"
	case StatusCancelled:
		return "bg-red-100 text-red-800"
	}
	return "bg-gray-100 text-gray-800"
}

// Customer is the contact snapshot embedded in an order at the time it
// was placed. It is not a live reference to a customer record.
type Customer struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Address     string `json:"address,omitempty"`
}

// OrderItem is one line of an order: the product ids it covers and the
// price charged for the line.
type OrderItem struct {
	Products   []string `json:"products"`
	TotalPrice float64  `json:"totalPrice"`
}

// Order represents a customer purchase tracked through fulfillment.
// Orders are created by the external ordering system; the console only
// reads them and applies status transitions.
type Order struct {
	ID            string      `json:"_id"`
	OrderNumber   string      `json:"orderNumber"`
	Status        OrderStatus `json:"status"`
	Customer      Customer    `json:"customer"`
	Items         []OrderItem `json:"items"`
	InternalNotes string      `json:"internalNotes,omitempty"`
	CancelReason  string      `json:"cancelReason,omitempty"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// TotalAmount sums the line totals. Derived for display, never stored.
func (o *Order) TotalAmount() float64 {
	var total float64
	for _, item := range o.Items {
		total += item.TotalPrice
	}
	return total
}

// Active reports whether the order still needs operator attention.
func (o *Order) Active() bool {
	return o.Status == StatusNotContacted || o.Status == StatusInProcess
}

// CountActive counts orders still in a non-terminal status.
func CountActive(orders []Order) int {
	n := 0
	for i := range orders {
		if orders[i].Active() {
			n++
		}
	}
	return n
}

// ProductCategory is the closed set of catalog categories.
type ProductCategory string

const (
	CategoryBathrobe    ProductCategory = "bathrobe"
	CategoryTowel       ProductCategory = "towel"
	CategorySet         ProductCategory = "set"
	CategoryAccessories ProductCategory = "accessories"
)

// Valid reports whether c is a member of the category enum.
func (c ProductCategory) Valid() bool {
	switch c {
	case CategoryBathrobe, CategoryTowel, CategorySet, CategoryAccessories:
		return true
	}
	return false
}

// Product is a catalog entry with bilingual copy.
type Product struct {
	ID            string          `json:"_id"`
	TitleUz       string          `json:"titleUz"`
	TitleRu       string          `json:"titleRu"`
	DescriptionUz string          `json:"descriptionUz"`
	DescriptionRu string          `json:"descriptionRu"`
	Category      ProductCategory `json:"category"`
	Price         float64         `json:"price"`
	StockQuantity int             `json:"stockQuantity"`
	Sizes         []string        `json:"sizes"`
	Colors        []string        `json:"colors"`
	Images        []string        `json:"images"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Pagination is the paging metadata returned alongside product lists.
type Pagination struct {
	CurrentPage   int `json:"currentPage"`
	TotalPages    int `json:"totalPages"`
	TotalProducts int `json:"totalProducts"`
}

// Admin is a privileged operator account of the console itself.
type Admin struct {
	ID          string    `json:"_id"`
	FullName    string    `json:"fullName"`
	PhoneNumber string    `json:"phoneNumber"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AuditEntry is one row of the console-local action log.
type AuditEntry struct {
	ID         int64     `db:"id" json:"id"`
	ActorID    string    `db:"actor_id" json:"actorId"`
	ActorName  string    `db:"actor_name" json:"actorName"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entityType"`
	EntityID   string    `db:"entity_id" json:"entityId"`
	Detail     string    `db:"detail" json:"detail"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Audit actions
const (
	AuditActionLogin          = "login"
	AuditActionStatusChange   = "order_status_change"
	AuditActionOrderCancel    = "order_cancel"
	AuditActionProductCreate  = "product_create"
	AuditActionProductUpdate  = "product_update"
	AuditActionProductDelete  = "product_delete"
	AuditActionAdminCreate    = "admin_create"
	AuditActionAdminUpdate    = "admin_update"
	AuditActionAdminDelete    = "admin_delete"
	AuditActionPasswordChange = "password_change"
)
