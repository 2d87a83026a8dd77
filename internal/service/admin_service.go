package service

import (
	"context"
	"strings"

	"saipov-admin/internal/auth"
	"saipov-admin/internal/models"
	"saipov-admin/internal/upstream"
	"saipov-admin/internal/util"

	"go.uber.org/zap"
)

// AdminAPI is the slice of the commerce API the admin service needs.
type AdminAPI interface {
	GetAdmins(ctx context.Context, token string) ([]models.Admin, error)
	CreateAdmin(ctx context.Context, token string, form *upstream.AdminForm) (*models.Admin, error)
	UpdateAdmin(ctx context.Context, token, adminID string, form *upstream.AdminForm) (*models.Admin, error)
	DeleteAdmin(ctx context.Context, token, adminID string) error
}

// AdminDraft is the edit-form shape of an admin account. Password is
// required on create and optional on update.
type AdminDraft struct {
	FullName    string
	PhoneNumber string
	Password    string
}

// AdminService handles admin account CRUD and search.
type AdminService struct {
	api    AdminAPI
	audit  AuditRecorder
	logger *zap.Logger
}

// NewAdminService creates a new admin service
func NewAdminService(api AdminAPI, audit AuditRecorder) *AdminService {
	return &AdminService{
		api:    api,
		audit:  audit,
		logger: util.GetLogger(),
	}
}

// CanDelete reports whether the delete affordance applies to a row. An
// admin can never delete their own account.
func CanDelete(sess *auth.Session, adminID string) bool {
	return adminID != sess.AdminID
}

// List retrieves all admins, optionally filtered by a case-insensitive
// substring match over the full name or a plain match over the phone
// number.
func (s *AdminService) List(ctx context.Context, sess *auth.Session, search string) ([]models.Admin, error) {
	admins, err := s.api.GetAdmins(ctx, sess.UpstreamToken)
	if err != nil {
		return nil, err
	}

	search = strings.TrimSpace(search)
	if search == "" {
		return admins, nil
	}

	needle := strings.ToLower(search)
	filtered := make([]models.Admin, 0, len(admins))
	for _, admin := range admins {
		if strings.Contains(strings.ToLower(admin.FullName), needle) ||
			strings.Contains(admin.PhoneNumber, search) {
			filtered = append(filtered, admin)
		}
	}
	return filtered, nil
}

func validateAdminDraft(draft *AdminDraft, passwordRequired bool) error {
	if strings.TrimSpace(draft.FullName) == "" {
		return models.NewValidationError("fullName", "ism kiritilishi shart")
	}
	if strings.TrimSpace(draft.PhoneNumber) == "" {
		return models.NewValidationError("phoneNumber", "telefon raqami kiritilishi shart")
	}
	if passwordRequired && draft.Password == "" {
		return models.NewValidationError("password", "parol kiritilishi shart")
	}
	if draft.Password != "" && len(draft.Password) < 6 {
		return models.NewValidationError("password", "parol kamida 6 ta belgidan iborat bo'lishi kerak")
	}
	return nil
}

// Create validates the draft and creates the admin account.
func (s *AdminService) Create(ctx context.Context, sess *auth.Session, draft *AdminDraft) (*models.Admin, error) {
	if err := validateAdminDraft(draft, true); err != nil {
		return nil, err
	}

	form := &upstream.AdminForm{
		FullName:    draft.FullName,
		PhoneNumber: draft.PhoneNumber,
		Password:    draft.Password,
	}
	admin, err := s.api.CreateAdmin(ctx, sess.UpstreamToken, form)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Admin created",
		zap.String("admin_id", admin.ID),
		zap.String("actor_id", sess.AdminID))
	s.recordAudit(ctx, sess, models.AuditActionAdminCreate, admin.ID, admin.FullName)

	return admin, nil
}

// Update validates the draft and updates an existing admin account.
func (s *AdminService) Update(ctx context.Context, sess *auth.Session, adminID string, draft *AdminDraft) (*models.Admin, error) {
	if err := validateAdminDraft(draft, false); err != nil {
		return nil, err
	}

	form := &upstream.AdminForm{
		FullName:    draft.FullName,
		PhoneNumber: draft.PhoneNumber,
		Password:    draft.Password,
	}
	admin, err := s.api.UpdateAdmin(ctx, sess.UpstreamToken, adminID, form)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Admin updated",
		zap.String("admin_id", adminID),
		zap.String("actor_id", sess.AdminID))
	s.recordAudit(ctx, sess, models.AuditActionAdminUpdate, adminID, admin.FullName)

	return admin, nil
}

// Delete removes an admin account. Deleting the session's own account is
// rejected before any call reaches the remote API.
func (s *AdminService) Delete(ctx context.Context, sess *auth.Session, adminID string) error {
	if !CanDelete(sess, adminID) {
		return models.NewValidationError("id", "o'z hisobingizni o'chira olmaysiz")
	}

	if err := s.api.DeleteAdmin(ctx, sess.UpstreamToken, adminID); err != nil {
		return err
	}

	s.logger.Info("Admin deleted",
		zap.String("admin_id", adminID),
		zap.String("actor_id", sess.AdminID))
	s.recordAudit(ctx, sess, models.AuditActionAdminDelete, adminID, "")

	return nil
}

func (s *AdminService) recordAudit(ctx context.Context, sess *auth.Session, action, adminID, detail string) {
	entry := &models.AuditEntry{
		ActorID:    sess.AdminID,
		ActorName:  sess.FullName,
		Action:     action,
		EntityType: "admin",
		EntityID:   adminID,
		Detail:     detail,
	}
	if err := s.audit.RecordAction(ctx, entry); err != nil {
		util.AuditWriteFailuresTotal.Inc()
		s.logger.Error("Failed to record audit entry",
			zap.String("action", action),
			zap.Error(err))
	}
}
