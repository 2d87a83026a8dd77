package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"saipov-admin/internal/auth"
	"saipov-admin/internal/models"
	"saipov-admin/internal/service"
	"saipov-admin/internal/upstream"
	"saipov-admin/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// AuditLog is the slice of the store the HTTP layer needs.
type AuditLog interface {
	RecordAction(ctx context.Context, entry *models.AuditEntry) error
	RecentActions(ctx context.Context, limit int) ([]models.AuditEntry, error)
	ActionsByEntity(ctx context.Context, entityType, entityID string) ([]models.AuditEntry, error)
}

// Handler contains HTTP handlers
type Handler struct {
	sessions  *auth.SessionManager
	workflow  *service.OrderWorkflow
	catalog   *service.CatalogService
	admins    *service.AdminService
	dashboard *service.DashboardService
	audit     AuditLog
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	sessions *auth.SessionManager,
	workflow *service.OrderWorkflow,
	catalog *service.CatalogService,
	admins *service.AdminService,
	dashboard *service.DashboardService,
	audit AuditLog,
) *Handler {
	return &Handler{
		sessions:  sessions,
		workflow:  workflow,
		catalog:   catalog,
		admins:    admins,
		dashboard: dashboard,
		audit:     audit,
		logger:    util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.POST("/auth/login", h.login)

	protected := v1.Group("")
	protected.Use(authMiddleware(h.sessions))
	{
		protected.POST("/auth/logout", h.logout)
		protected.GET("/auth/me", h.me)
		protected.POST("/auth/change-password", h.changePassword)

		protected.GET("/dashboard/stats", h.dashboardStats)

		protected.GET("/orders", h.listOrders)
		protected.GET("/orders/:id", h.getOrder)
		protected.GET("/orders/:id/audit", h.orderAudit)
		protected.PATCH("/orders/:id/status", h.updateOrderStatus)
		protected.POST("/orders/:id/cancel", h.cancelOrder)

		protected.GET("/products", h.listProducts)
		protected.POST("/products", h.createProduct)
		protected.PUT("/products/:id", h.updateProduct)
		protected.DELETE("/products/:id", h.deleteProduct)

		protected.GET("/admins", h.listAdmins)
		protected.POST("/admins", h.createAdmin)
		protected.PUT("/admins/:id", h.updateAdmin)
		protected.DELETE("/admins/:id", h.deleteAdmin)

		protected.GET("/audit", h.listAudit)
	}
}

// respondError maps the error taxonomy to HTTP statuses.
func (h *Handler) respondError(c *gin.Context, err error) {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": validationErr.Message,
			"field": validationErr.Field,
		})
		return
	}

	if errors.Is(err, models.ErrMutationInFlight) {
		c.JSON(http.StatusConflict, gin.H{
			"error": "Boshqa amal bajarilmoqda, biroz kuting",
		})
		return
	}

	var remoteErr *models.RemoteError
	if errors.As(err, &remoteErr) {
		status := http.StatusBadGateway
		if remoteErr.StatusCode >= 400 && remoteErr.StatusCode < 500 {
			status = remoteErr.StatusCode
		}
		c.JSON(status, gin.H{"error": remoteErr.Message})
		return
	}

	h.logger.Error("Unhandled request error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error": models.GenericRemoteMessage,
	})
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type loginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

// login exchanges credentials for a console session token
func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session, err := h.sessions.Login(c.Request.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}

	entry := &models.AuditEntry{
		ActorID:    session.AdminID,
		ActorName:  session.FullName,
		Action:     models.AuditActionLogin,
		EntityType: "session",
		EntityID:   session.AdminID,
	}
	if err := h.audit.RecordAction(c.Request.Context(), entry); err != nil {
		util.AuditWriteFailuresTotal.Inc()
		h.logger.Error("Failed to record login audit entry", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{
		"token": session.Token,
		"admin": gin.H{
			"id":          session.AdminID,
			"fullName":    session.FullName,
			"phoneNumber": session.PhoneNumber,
		},
	})
}

// logout drops the session token
func (h *Handler) logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), bearerToken(c)); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// me returns the authenticated admin's profile, re-verified upstream
func (h *Handler) me(c *gin.Context) {
	session := currentSession(c)
	admin, err := h.sessions.Profile(c.Request.Context(), session)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":          admin.ID,
		"fullName":    admin.FullName,
		"phoneNumber": admin.PhoneNumber,
	})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

// changePassword validates and applies a password change
func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if req.ConfirmPassword != "" && req.NewPassword != req.ConfirmPassword {
		h.respondError(c, models.NewValidationError("confirmPassword", "yangi parollar mos kelmaydi"))
		return
	}

	session := currentSession(c)
	if err := h.sessions.ChangePassword(c.Request.Context(), session, req.CurrentPassword, req.NewPassword); err != nil {
		h.respondError(c, err)
		return
	}

	entry := &models.AuditEntry{
		ActorID:    session.AdminID,
		ActorName:  session.FullName,
		Action:     models.AuditActionPasswordChange,
		EntityType: "session",
		EntityID:   session.AdminID,
	}
	if err := h.audit.RecordAction(c.Request.Context(), entry); err != nil {
		util.AuditWriteFailuresTotal.Inc()
		h.logger.Error("Failed to record password change audit entry", zap.Error(err))
	}

	c.JSON(http.StatusOK, gin.H{"message": "Parol muvaffaqiyatli o'zgartirildi"})
}

// dashboardStats returns aggregate counts for the landing view
func (h *Handler) dashboardStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context(), currentSession(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// listOrders returns orders, optionally filtered by search term
func (h *Handler) listOrders(c *gin.Context) {
	orders, err := h.workflow.ListOrders(c.Request.Context(), currentSession(c), c.Query("search"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// getOrder returns one order plus its display metadata
func (h *Handler) getOrder(c *gin.Context) {
	order, err := h.workflow.GetOrder(c.Request.Context(), currentSession(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order":          order,
		"totalAmount":    order.TotalAmount(),
		"statusLabel":    order.Status.Label(),
		"statusColor":    order.Status.BadgeColor(),
		"allowedTargets": service.AllowedTargets(order.Status),
	})
}

type updateStatusRequest struct {
	Status        string `json:"status"`
	InternalNotes string `json:"internalNotes"`
}

// updateOrderStatus applies a status transition to an order
func (h *Handler) updateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session := currentSession(c)
	order, err := h.workflow.GetOrder(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	updated, err := h.workflow.UpdateStatus(c.Request.Context(), session, order,
		models.OrderStatus(req.Status), req.InternalNotes)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": updated})
}

type cancelOrderRequest struct {
	CancelReason string `json:"cancelReason"`
}

// cancelOrder cancels an order with a mandatory reason
func (h *Handler) cancelOrder(c *gin.Context) {
	var req cancelOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	session := currentSession(c)
	order, err := h.workflow.GetOrder(c.Request.Context(), session, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	updated, err := h.workflow.Cancel(c.Request.Context(), session, order, req.CancelReason)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": updated})
}

// orderAudit returns the console action log of one order
func (h *Handler) orderAudit(c *gin.Context) {
	entries, err := h.audit.ActionsByEntity(c.Request.Context(), "order", c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// listProducts returns a page of products, optionally filtered
func (h *Handler) listProducts(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	limit, _ := strconv.Atoi(c.Query("limit"))

	list, err := h.catalog.List(c.Request.Context(), currentSession(c), c.Query("search"), page, limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// productDraftFromForm reads the multipart product form shared by
// create and update.
func (h *Handler) productDraftFromForm(c *gin.Context) (*service.ProductDraft, error) {
	price, err := strconv.ParseFloat(c.DefaultPostForm("price", "0"), 64)
	if err != nil {
		return nil, models.NewValidationError("price", "narx raqam bo'lishi kerak")
	}
	stock, err := strconv.Atoi(c.DefaultPostForm("stockQuantity", "0"))
	if err != nil {
		return nil, models.NewValidationError("stockQuantity", "miqdor butun son bo'lishi kerak")
	}

	draft := &service.ProductDraft{
		TitleUz:       c.PostForm("titleUz"),
		TitleRu:       c.PostForm("titleRu"),
		DescriptionUz: c.PostForm("descriptionUz"),
		DescriptionRu: c.PostForm("descriptionRu"),
		Category:      models.ProductCategory(c.DefaultPostForm("category", string(models.CategoryBathrobe))),
		Price:         price,
		StockQuantity: stock,
		Sizes:         c.PostForm("sizes"),
		Colors:        c.PostForm("colors"),
	}

	form, err := c.MultipartForm()
	if err != nil {
		return draft, nil
	}
	for _, fileHeader := range form.File["images"] {
		file, err := fileHeader.Open()
		if err != nil {
			return nil, models.NewValidationError("images", "rasmni o'qib bo'lmadi")
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, models.NewValidationError("images", "rasmni o'qib bo'lmadi")
		}
		draft.Images = append(draft.Images, upstream.ImageFile{
			Filename: fileHeader.Filename,
			Data:     data,
		})
	}
	return draft, nil
}

// createProduct creates a catalog entry from a multipart form
func (h *Handler) createProduct(c *gin.Context) {
	draft, err := h.productDraftFromForm(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	product, err := h.catalog.Create(c.Request.Context(), currentSession(c), draft)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

// updateProduct updates a catalog entry from a multipart form
func (h *Handler) updateProduct(c *gin.Context) {
	draft, err := h.productDraftFromForm(c)
	if err != nil {
		h.respondError(c, err)
		return
	}

	product, err := h.catalog.Update(c.Request.Context(), currentSession(c), c.Param("id"), draft)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// deleteProduct removes a catalog entry
func (h *Handler) deleteProduct(c *gin.Context) {
	if err := h.catalog.Delete(c.Request.Context(), currentSession(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Mahsulot o'chirildi"})
}

// listAdmins returns admin accounts, flagging which rows are deletable
func (h *Handler) listAdmins(c *gin.Context) {
	session := currentSession(c)
	admins, err := h.admins.List(c.Request.Context(), session, c.Query("search"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	rows := make([]gin.H, 0, len(admins))
	for _, admin := range admins {
		rows = append(rows, gin.H{
			"admin":     admin,
			"isSelf":    admin.ID == session.AdminID,
			"canDelete": service.CanDelete(session, admin.ID),
		})
	}
	c.JSON(http.StatusOK, gin.H{"admins": rows})
}

type adminRequest struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

// createAdmin creates an admin account
func (h *Handler) createAdmin(c *gin.Context) {
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	draft := &service.AdminDraft{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	}
	admin, err := h.admins.Create(c.Request.Context(), currentSession(c), draft)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, admin)
}

// updateAdmin updates an admin account
func (h *Handler) updateAdmin(c *gin.Context) {
	var req adminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	draft := &service.AdminDraft{
		FullName:    req.FullName,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	}
	admin, err := h.admins.Update(c.Request.Context(), currentSession(c), c.Param("id"), draft)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, admin)
}

// deleteAdmin removes an admin account (never the caller's own)
func (h *Handler) deleteAdmin(c *gin.Context) {
	if err := h.admins.Delete(c.Request.Context(), currentSession(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Admin o'chirildi"})
}

// listAudit returns the newest console action log rows
func (h *Handler) listAudit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	entries, err := h.audit.RecentActions(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
