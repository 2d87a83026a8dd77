package service

import (
	"context"
	"testing"

	"saipov-admin/internal/models"
	"saipov-admin/internal/upstream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAdminAPI struct {
	admins      []models.Admin
	createCalls int
	updateCalls int
	deleteCalls int
	lastForm    *upstream.AdminForm
}

func (f *fakeAdminAPI) GetAdmins(ctx context.Context, token string) ([]models.Admin, error) {
	return f.admins, nil
}

func (f *fakeAdminAPI) CreateAdmin(ctx context.Context, token string, form *upstream.AdminForm) (*models.Admin, error) {
	f.createCalls++
	f.lastForm = form
	return &models.Admin{ID: "new-admin", FullName: form.FullName, PhoneNumber: form.PhoneNumber}, nil
}

func (f *fakeAdminAPI) UpdateAdmin(ctx context.Context, token, adminID string, form *upstream.AdminForm) (*models.Admin, error) {
	f.updateCalls++
	f.lastForm = form
	return &models.Admin{ID: adminID, FullName: form.FullName, PhoneNumber: form.PhoneNumber}, nil
}

func (f *fakeAdminAPI) DeleteAdmin(ctx context.Context, token, adminID string) error {
	f.deleteCalls++
	return nil
}

func TestSelfDeleteGuard(t *testing.T) {
	api := &fakeAdminAPI{}
	s := NewAdminService(api, &fakeAudit{})
	sess := testSession()

	err := s.Delete(context.Background(), sess, sess.AdminID)
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, 0, api.deleteCalls)

	err = s.Delete(context.Background(), sess, "other-admin")
	require.NoError(t, err)
	assert.Equal(t, 1, api.deleteCalls)
}

func TestCanDelete(t *testing.T) {
	sess := testSession()
	assert.False(t, CanDelete(sess, sess.AdminID))
	assert.True(t, CanDelete(sess, "someone-else"))
}

func TestCreateAdminValidation(t *testing.T) {
	tests := []struct {
		name  string
		draft AdminDraft
		field string
	}{
		{"missing name", AdminDraft{PhoneNumber: "+99890", Password: "secret1"}, "fullName"},
		{"missing phone", AdminDraft{FullName: "Aziz", Password: "secret1"}, "phoneNumber"},
		{"missing password", AdminDraft{FullName: "Aziz", PhoneNumber: "+99890"}, "password"},
		{"short password", AdminDraft{FullName: "Aziz", PhoneNumber: "+99890", Password: "12345"}, "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAdminAPI{}
			s := NewAdminService(api, &fakeAudit{})

			_, err := s.Create(context.Background(), testSession(), &tt.draft)

			var validationErr *models.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.field, validationErr.Field)
			assert.Equal(t, 0, api.createCalls)
		})
	}
}

func TestUpdateAdminPasswordOptional(t *testing.T) {
	api := &fakeAdminAPI{}
	s := NewAdminService(api, &fakeAudit{})

	draft := &AdminDraft{FullName: "Aziz Karimov", PhoneNumber: "+998901234567"}
	_, err := s.Update(context.Background(), testSession(), "a2", draft)
	require.NoError(t, err)
	assert.Empty(t, api.lastForm.Password)

	draft.Password = "123"
	_, err = s.Update(context.Background(), testSession(), "a2", draft)
	var validationErr *models.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "password", validationErr.Field)
}

func TestListAdminsFilter(t *testing.T) {
	api := &fakeAdminAPI{
		admins: []models.Admin{
			{ID: "a1", FullName: "Aziz Karimov", PhoneNumber: "+998901234567"},
			{ID: "a2", FullName: "Dilnoza Rahimova", PhoneNumber: "+998907654321"},
		},
	}
	s := NewAdminService(api, &fakeAudit{})
	sess := testSession()

	admins, err := s.List(context.Background(), sess, "dilnoza")
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "a2", admins[0].ID)

	admins, err = s.List(context.Background(), sess, "998901")
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "a1", admins[0].ID)

	admins, err = s.List(context.Background(), sess, "")
	require.NoError(t, err)
	assert.Len(t, admins, 2)
}
