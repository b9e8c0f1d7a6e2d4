package httpx_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storeapi/internal/catalog"
	"storeapi/internal/httpx"
	"storeapi/internal/orders"
	"storeapi/internal/users"
)

type memUsers struct {
	byID  map[string]users.User
	saved map[string][]catalog.Product
}

func (m *memUsers) List(_ context.Context, _, _ int, _ string) ([]users.User, error) {
	out := make([]users.User, 0, len(m.byID))
	for _, u := range m.byID {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) Get(_ context.Context, id string) (*users.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return &u, nil
}

func (m *memUsers) Create(_ context.Context, u *users.User) error {
	u.ID = "user-1"
	m.byID[u.ID] = *u
	return nil
}

func (m *memUsers) Update(_ context.Context, id string, upd users.UserUpdate) (*users.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	if upd.Email != nil {
		u.Email = *upd.Email
	}
	m.byID[id] = u
	return &u, nil
}

func (m *memUsers) Delete(_ context.Context, id string) error {
	if _, ok := m.byID[id]; !ok {
		return users.ErrNotFound
	}
	delete(m.byID, id)
	return nil
}

func (m *memUsers) SavedProducts(_ context.Context, userID string) ([]catalog.Product, error) {
	if _, ok := m.byID[userID]; !ok {
		return nil, users.ErrNotFound
	}
	return m.saved[userID], nil
}

func (m *memUsers) ToggleSaved(_ context.Context, userID, productID string) ([]catalog.Product, error) {
	if _, ok := m.byID[userID]; !ok {
		return nil, users.ErrNotFound
	}
	list := m.saved[userID]
	for i, p := range list {
		if p.ID == productID {
			m.saved[userID] = append(list[:i], list[i+1:]...)
			return m.saved[userID], nil
		}
	}
	m.saved[userID] = append(list, catalog.Product{ID: productID})
	return m.saved[userID], nil
}

type memOrderLister struct{ orders []orders.Order }

func (m *memOrderLister) ListByUser(_ context.Context, _ string) ([]orders.Order, error) {
	return m.orders, nil
}

func newUsersServer(store *memUsers) *chi.Mux {
	r := httpx.NewRouter()
	(&httpx.UsersHandler{
		Store:  store,
		Orders: &memOrderLister{},
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}).Register(r)
	return r
}

func TestCreateUser(t *testing.T) {
	store := &memUsers{byID: map[string]users.User{}, saved: map[string][]catalog.Product{}}
	r := newUsersServer(store)

	w := post(t, r, "/users", `{"email":"jane@example.com","firstName":"Jane","lastName":"Doe","address":"12 High St","userPreference":{"receiveEmail":true}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var u users.User
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &u))
	assert.Equal(t, "user-1", u.ID)
	require.NotNil(t, u.Preference)
	assert.True(t, u.Preference.ReceiveEmail)
}

func TestCreateUser_Invalid(t *testing.T) {
	store := &memUsers{byID: map[string]users.User{}, saved: map[string][]catalog.Product{}}
	r := newUsersServer(store)

	cases := map[string]string{
		"bad email":     `{"email":"nope","firstName":"Jane","lastName":"Doe"}`,
		"missing name":  `{"email":"jane@example.com","lastName":"Doe"}`,
		"name too long": `{"email":"jane@example.com","firstName":"JaneJaneJaneJaneJaneJaneJaneJane","lastName":"Doe"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := post(t, r, "/users", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
	assert.Empty(t, store.byID)
}

func TestToggleSavedProduct(t *testing.T) {
	store := &memUsers{
		byID:  map[string]users.User{"user-1": {ID: "user-1"}},
		saved: map[string][]catalog.Product{},
	}
	r := newUsersServer(store)

	// first toggle saves
	w := post(t, r, "/users/user-1/saved-products", `{"productId":"p1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var list []catalog.Product
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	// second toggle removes
	w = post(t, r, "/users/user-1/saved-products", `{"productId":"p1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	list = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Empty(t, list)
}

func TestToggleSavedProduct_UnknownUser(t *testing.T) {
	store := &memUsers{byID: map[string]users.User{}, saved: map[string][]catalog.Product{}}
	r := newUsersServer(store)

	w := post(t, r, "/users/ghost/saved-products", `{"productId":"p1"}`)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUser_NotFound(t *testing.T) {
	store := &memUsers{byID: map[string]users.User{}, saved: map[string][]catalog.Product{}}
	r := newUsersServer(store)

	req := httptest.NewRequest(http.MethodGet, "/users/ghost", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
