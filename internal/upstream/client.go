package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"saipov-admin/internal/models"
	"saipov-admin/internal/util"

	"go.uber.org/zap"
)

// Client is a typed client for the remote commerce API. All entity
// persistence lives behind it; the console never writes orders,
// products or admins anywhere else.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new commerce API client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     util.GetLogger(),
	}
}

// LoginResult is the session material returned by the remote API on a
// successful login.
type LoginResult struct {
	Token string       `json:"token"`
	Admin models.Admin `json:"admin"`
}

// ProductList is a page of products plus paging metadata.
type ProductList struct {
	Products   []models.Product  `json:"products"`
	Pagination models.Pagination `json:"pagination"`
}

// ImageFile is one uploaded product image.
type ImageFile struct {
	Filename string
	Data     []byte
}

// ProductForm carries the fields of a product create/update call.
// Sizes and colors are transmitted as JSON arrays inside the multipart
// body, matching the API's contract.
type ProductForm struct {
	TitleUz       string
	TitleRu       string
	DescriptionUz string
	DescriptionRu string
	Category      models.ProductCategory
	Price         float64
	StockQuantity int
	Sizes         []string
	Colors        []string
	Images        []ImageFile
}

// AdminForm carries the fields of an admin create/update call. Password
// is omitted from the body when empty (update without password change).
type AdminForm struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// Login exchanges credentials for a token and the admin profile.
func (c *Client) Login(ctx context.Context, phoneNumber, password string) (*LoginResult, error) {
	body := map[string]string{"phoneNumber": phoneNumber, "password": password}

	var result LoginResult
	if err := c.doJSON(ctx, "login", http.MethodPost, "/auth/login", "", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetMe retrieves the admin profile bound to a token.
func (c *Client) GetMe(ctx context.Context, token string) (*models.Admin, error) {
	var admin models.Admin
	if err := c.doJSON(ctx, "get_me", http.MethodGet, "/auth/me", token, nil, &admin); err != nil {
		return nil, err
	}
	return &admin, nil
}

// ChangePassword changes the password of the authenticated admin.
func (c *Client) ChangePassword(ctx context.Context, token, currentPassword, newPassword string) error {
	body := map[string]string{
		"currentPassword": currentPassword,
		"newPassword":     newPassword,
	}
	return c.doJSON(ctx, "change_password", http.MethodPost, "/auth/change-password", token, body, nil)
}

// GetOrders retrieves the full order collection, newest first.
func (c *Client) GetOrders(ctx context.Context, token string) ([]models.Order, error) {
	var orders []models.Order
	if err := c.doJSON(ctx, "get_orders", http.MethodGet, "/orders", token, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder retrieves one order by id.
func (c *Client) GetOrder(ctx context.Context, token, orderID string) (*models.Order, error) {
	var order models.Order
	if err := c.doJSON(ctx, "get_order", http.MethodGet, "/orders/"+orderID, token, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus persists a status transition with optional notes.
func (c *Client) UpdateOrderStatus(ctx context.Context, token, orderID string, status models.OrderStatus, internalNotes string) (*models.Order, error) {
	body := map[string]string{
		"status":        string(status),
		"internalNotes": internalNotes,
	}

	var order models.Order
	if err := c.doJSON(ctx, "update_order_status", http.MethodPatch, "/orders/"+orderID+"/status", token, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder persists status=cancelled with the operator's reason.
func (c *Client) CancelOrder(ctx context.Context, token, orderID, cancelReason string) (*models.Order, error) {
	body := map[string]string{"cancelReason": cancelReason}

	var order models.Order
	if err := c.doJSON(ctx, "cancel_order", http.MethodPatch, "/orders/"+orderID+"/cancel", token, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetProducts retrieves a page of products. Zero page/limit values are
// omitted and the API applies its defaults.
func (c *Client) GetProducts(ctx context.Context, token string, page, limit int) (*ProductList, error) {
	path := "/products"
	sep := "?"
	if page > 0 {
		path += sep + "page=" + strconv.Itoa(page)
		sep = "&"
	}
	if limit > 0 {
		path += sep + "limit=" + strconv.Itoa(limit)
	}

	var list ProductList
	if err := c.doJSON(ctx, "get_products", http.MethodGet, path, token, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CreateProduct creates a product from a multipart form with image
// attachments.
func (c *Client) CreateProduct(ctx context.Context, token string, form *ProductForm) (*models.Product, error) {
	return c.sendProductForm(ctx, "create_product", http.MethodPost, "/products", token, form)
}

// UpdateProduct updates a product from a multipart form.
func (c *Client) UpdateProduct(ctx context.Context, token, productID string, form *ProductForm) (*models.Product, error) {
	return c.sendProductForm(ctx, "update_product", http.MethodPut, "/products/"+productID, token, form)
}

// DeleteProduct removes a product from the catalog.
func (c *Client) DeleteProduct(ctx context.Context, token, productID string) error {
	return c.doJSON(ctx, "delete_product", http.MethodDelete, "/products/"+productID, token, nil, nil)
}

// GetAdmins retrieves all admin accounts.
func (c *Client) GetAdmins(ctx context.Context, token string) ([]models.Admin, error) {
	var result struct {
		Admins []models.Admin `json:"admins"`
	}
	if err := c.doJSON(ctx, "get_admins", http.MethodGet, "/admins", token, nil, &result); err != nil {
		return nil, err
	}
	return result.Admins, nil
}

// CreateAdmin creates a new admin account.
func (c *Client) CreateAdmin(ctx context.Context, token string, form *AdminForm) (*models.Admin, error) {
	var admin models.Admin
	if err := c.doJSON(ctx, "create_admin", http.MethodPost, "/admins", token, form, &admin); err != nil {
		return nil, err
	}
	return &admin, nil
}

// UpdateAdmin updates an existing admin account.
func (c *Client) UpdateAdmin(ctx context.Context, token, adminID string, form *AdminForm) (*models.Admin, error) {
	var admin models.Admin
	if err := c.doJSON(ctx, "update_admin", http.MethodPut, "/admins/"+adminID, token, form, &admin); err != nil {
		return nil, err
	}
	return &admin, nil
}

// DeleteAdmin removes an admin account.
func (c *Client) DeleteAdmin(ctx context.Context, token, adminID string) error {
	return c.doJSON(ctx, "delete_admin", http.MethodDelete, "/admins/"+adminID, token, nil, nil)
}

// doJSON performs one JSON request/response cycle against the API and
// maps non-2xx responses to *models.RemoteError.
func (c *Client) doJSON(ctx context.Context, operation, method, path, token string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.do(req, operation, token, out)
}

// sendProductForm builds and sends the multipart body shared by product
// create and update.
func (c *Client) sendProductForm(ctx context.Context, operation, method, path, token string, form *ProductForm) (*models.Product, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fields := map[string]string{
		"titleUz":       form.TitleUz,
		"titleRu":       form.TitleRu,
		"descriptionUz": form.DescriptionUz,
		"descriptionRu": form.DescriptionRu,
		"category":      string(form.Category),
		"price":         strconv.FormatFloat(form.Price, 'f', -1, 64),
		"stockQuantity": strconv.Itoa(form.StockQuantity),
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	for key, tokens := range map[string][]string{"sizes": form.Sizes, "colors": form.Colors} {
		encoded, err := json.Marshal(tokens)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		if err := writer.WriteField(key, string(encoded)); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	for _, image := range form.Images {
		part, err := writer.CreateFormFile("images", image.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create image part: %w", err)
		}
		if _, err := part.Write(image.Data); err != nil {
			return nil, fmt.Errorf("failed to write image %s: %w", image.Filename, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var product models.Product
	if err := c.do(req, operation, token, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

// do executes a prepared request, records metrics and decodes the
// response into out when out is non-nil.
func (c *Client) do(req *http.Request, operation, token string, out interface{}) error {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	util.UpstreamRequestDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())

	if err != nil {
		util.UpstreamErrorsTotal.WithLabelValues(operation).Inc()
		c.logger.Warn("Upstream request failed",
			zap.String("operation", operation),
			zap.Error(err))
		return models.NewRemoteError(0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		util.UpstreamErrorsTotal.WithLabelValues(operation).Inc()

		var apiErr apiError
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		_ = json.Unmarshal(data, &apiErr)

		c.logger.Warn("Upstream returned error status",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("message", apiErr.Message))
		return models.NewRemoteError(resp.StatusCode, apiErr.Message, nil)
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		util.UpstreamErrorsTotal.WithLabelValues(operation).Inc()
		return models.NewRemoteError(resp.StatusCode, "", fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
