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

// ProductAPI is the slice of the commerce API the catalog needs.
type ProductAPI interface {
	GetProducts(ctx context.Context, token string, page, limit int) (*upstream.ProductList, error)
	CreateProduct(ctx context.Context, token string, form *upstream.ProductForm) (*models.Product, error)
	UpdateProduct(ctx context.Context, token, productID string, form *upstream.ProductForm) (*models.Product, error)
	DeleteProduct(ctx context.Context, token, productID string) error
}

// ProductDraft is the edit-form shape of a product: sizes and colors as
// comma-separated strings, exactly as operators type them.
type ProductDraft struct {
	TitleUz       string
	TitleRu       string
	DescriptionUz string
	DescriptionRu string
	Category      models.ProductCategory
	Price         float64
	StockQuantity int
	Sizes         string
	Colors        string
	Images        []upstream.ImageFile
}

// CatalogService handles product CRUD and search.
type CatalogService struct {
	api    ProductAPI
	audit  AuditRecorder
	logger *zap.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(api ProductAPI, audit AuditRecorder) *CatalogService {
	return &CatalogService{
		api:    api,
		audit:  audit,
		logger: util.GetLogger(),
	}
}

// SplitTokens turns a comma-separated field into trimmed, non-empty
// tokens: "S, M, L" -> ["S","M","L"].
func SplitTokens(s string) []string {
	parts := strings.Split(s, ",")
	tokens := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tokens = append(tokens, trimmed)
		}
	}
	return tokens
}

// JoinTokens renders stored tokens back into the edit-form string:
// ["S","M","L"] -> "S, M, L".
func JoinTokens(tokens []string) string {
	return strings.Join(tokens, ", ")
}

// DraftFromProduct seeds an edit form from a stored product.
func DraftFromProduct(p *models.Product) *ProductDraft {
	return &ProductDraft{
		TitleUz:       p.TitleUz,
		TitleRu:       p.TitleRu,
		DescriptionUz: p.DescriptionUz,
		DescriptionRu: p.DescriptionRu,
		Category:      p.Category,
		Price:         p.Price,
		StockQuantity: p.StockQuantity,
		Sizes:         JoinTokens(p.Sizes),
		Colors:        JoinTokens(p.Colors),
	}
}

func validateProductDraft(draft *ProductDraft) error {
	required := []struct {
		field, value string
	}{
		{"titleUz", draft.TitleUz},
		{"titleRu", draft.TitleRu},
		{"descriptionUz", draft.DescriptionUz},
		{"descriptionRu", draft.DescriptionRu},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return models.NewValidationError(r.field, "maydon to'ldirilishi shart")
		}
	}

	if !draft.Category.Valid() {
		return models.NewValidationError("category", "noma'lum kategoriya")
	}
	if draft.Price < 0 {
		return models.NewValidationError("price", "narx manfiy bo'lishi mumkin emas")
	}
	if draft.StockQuantity < 0 {
		return models.NewValidationError("stockQuantity", "miqdor manfiy bo'lishi mumkin emas")
	}
	return nil
}

func (d *ProductDraft) toForm() *upstream.ProductForm {
	return &upstream.ProductForm{
		TitleUz:       d.TitleUz,
		TitleRu:       d.TitleRu,
		DescriptionUz: d.DescriptionUz,
		DescriptionRu: d.DescriptionRu,
		Category:      d.Category,
		Price:         d.Price,
		StockQuantity: d.StockQuantity,
		Sizes:         SplitTokens(d.Sizes),
		Colors:        SplitTokens(d.Colors),
		Images:        d.Images,
	}
}

// List retrieves a page of products, optionally filtered by a
// case-insensitive substring match over the bilingual titles.
func (s *CatalogService) List(ctx context.Context, sess *auth.Session, search string, page, limit int) (*upstream.ProductList, error) {
	list, err := s.api.GetProducts(ctx, sess.UpstreamToken, page, limit)
	if err != nil {
		return nil, err
	}

	search = strings.TrimSpace(search)
	if search == "" {
		return list, nil
	}

	needle := strings.ToLower(search)
	filtered := make([]models.Product, 0, len(list.Products))
	for _, product := range list.Products {
		if strings.Contains(strings.ToLower(product.TitleUz), needle) ||
			strings.Contains(strings.ToLower(product.TitleRu), needle) {
			filtered = append(filtered, product)
		}
	}
	list.Products = filtered
	return list, nil
}

// Create validates the draft and creates the product.
func (s *CatalogService) Create(ctx context.Context, sess *auth.Session, draft *ProductDraft) (*models.Product, error) {
	if err := validateProductDraft(draft); err != nil {
		return nil, err
	}

	product, err := s.api.CreateProduct(ctx, sess.UpstreamToken, draft.toForm())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product created",
		zap.String("product_id", product.ID),
		zap.String("title_uz", product.TitleUz),
		zap.String("actor_id", sess.AdminID))
	s.recordAudit(ctx, sess, models.AuditActionProductCreate, product.ID, product.TitleUz)

	return product, nil
}

// Update validates the draft and updates an existing product.
func (s *CatalogService) Update(ctx context.Context, sess *auth.Session, productID string, draft *ProductDraft) (*models.Product, error) {
	if err := validateProductDraft(draft); err != nil {
		return nil, err
	}

	product, err := s.api.UpdateProduct(ctx, sess.UpstreamToken, productID, draft.toForm())
	if err != nil {
		return nil, err
	}

	s.logger.Info("Product updated",
		zap.String("product_id", productID),
		zap.String("actor_id", sess.AdminID))
	s.recordAudit(ctx, sess, models.AuditActionProductUpdate, productID, product.TitleUz)

	return product, nil
}

// Delete removes a product from the catalog.
func (s *CatalogService) Delete(ctx context.Context, sess *auth.Session, productID string) error {
	if err := s.api.DeleteProduct(ctx, sess.UpstreamToken, productID); err != nil {
		return err
	}

	s.logger.Info("Product deleted",
		zap.String("product_id", productID),
		zap.String("actor_id", sess.AdminID))
	s.recordAudit(ctx, sess, models.AuditActionProductDelete, productID, "")

	return nil
}

func (s *CatalogService) recordAudit(ctx context.Context, sess *auth.Session, action, productID, detail string) {
	entry := &models.AuditEntry{
		ActorID:    sess.AdminID,
		ActorName:  sess.FullName,
		Action:     action,
		EntityType: "product",
		EntityID:   productID,
		Detail:     detail,
	}
	if err := s.audit.RecordAction(ctx, entry); err != nil {
		util.AuditWriteFailuresTotal.Inc()
		s.logger.Error("Failed to record audit entry",
			zap.String("action", action),
			zap.Error(err))
	}
}
