package upstream

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"saipov-admin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	return NewClient(server.URL, 5*time.Second), server
}

func TestUpdateOrderStatus(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/orders/o1/status", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "in_process", body["status"])
		assert.Equal(t, "eslatma", body["internalNotes"])

		json.NewEncoder(w).Encode(models.Order{ID: "o1", Status: models.StatusInProcess})
	})
	defer server.Close()

	order, err := client.UpdateOrderStatus(context.Background(), "tok", "o1", models.StatusInProcess, "eslatma")
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProcess, order.Status)
}

func TestRemoteErrorCarriesMessage(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"message": "buyurtma allaqachon yopilgan"})
	})
	defer server.Close()

	_, err := client.CancelOrder(context.Background(), "tok", "o1", "sabab")

	var remoteErr *models.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusConflict, remoteErr.StatusCode)
	assert.Equal(t, "buyurtma allaqachon yopilgan", remoteErr.Message)
}

func TestRemoteErrorFallsBackToGenericMessage(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer server.Close()

	_, err := client.GetOrders(context.Background(), "tok")

	var remoteErr *models.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, models.GenericRemoteMessage, remoteErr.Message)
}

func TestConnectionFailureIsRemoteError(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second)

	_, err := client.GetOrders(context.Background(), "tok")

	var remoteErr *models.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, 0, remoteErr.StatusCode)
	assert.Equal(t, models.GenericRemoteMessage, remoteErr.Message)
}

func TestGetAdminsUnwrapsEnvelope(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admins", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"admins": []models.Admin{{ID: "a1", FullName: "Aziz"}},
		})
	})
	defer server.Close()

	admins, err := client.GetAdmins(context.Background(), "tok")
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "a1", admins[0].ID)
}

func TestGetProductsQueryParams(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "12", r.URL.Query().Get("limit"))
		json.NewEncoder(w).Encode(ProductList{
			Pagination: models.Pagination{CurrentPage: 2, TotalProducts: 30},
		})
	})
	defer server.Close()

	list, err := client.GetProducts(context.Background(), "tok", 2, 12)
	require.NoError(t, err)
	assert.Equal(t, 30, list.Pagination.TotalProducts)
}

func TestCreateProductMultipart(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "Xalat", r.FormValue("titleUz"))
		assert.Equal(t, "bathrobe", r.FormValue("category"))
		assert.Equal(t, `["S","M","L"]`, r.FormValue("sizes"))
		assert.Equal(t, `[]`, r.FormValue("colors"))

		files := r.MultipartForm.File["images"]
		require.Len(t, files, 1)
		assert.Equal(t, "front.jpg", files[0].Filename)

		json.NewEncoder(w).Encode(models.Product{ID: "p1", TitleUz: "Xalat"})
	})
	defer server.Close()

	form := &ProductForm{
		TitleUz:       "Xalat",
		TitleRu:       "Халат",
		DescriptionUz: "Paxta",
		DescriptionRu: "Хлопок",
		Category:      models.CategoryBathrobe,
		Price:         250000,
		StockQuantity: 10,
		Sizes:         []string{"S", "M", "L"},
		Colors:        []string{},
		Images:        []ImageFile{{Filename: "front.jpg", Data: []byte("jpeg-bytes")}},
	}

	product, err := client.CreateProduct(context.Background(), "tok", form)
	require.NoError(t, err)
	assert.Equal(t, "p1", product.ID)
}

func TestLogin(t *testing.T) {
	client, server := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "+998901234567", body["phoneNumber"])

		json.NewEncoder(w).Encode(LoginResult{
			Token: "upstream-token",
			Admin: models.Admin{ID: "a1", FullName: "Aziz"},
		})
	})
	defer server.Close()

	result, err := client.Login(context.Background(), "+998901234567", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "upstream-token", result.Token)
	assert.Equal(t, "a1", result.Admin.ID)
}
