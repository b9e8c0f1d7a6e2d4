package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"storeapi/internal/catalog"
	"storeapi/internal/orders"
	"storeapi/internal/users"
)

type UserStore interface {
	List(ctx context.Context, offset, limit int, order string) ([]users.User, error)
	Get(ctx context.Context, id string) (*users.User, error)
	Create(ctx context.Context, u *users.User) error
	Update(ctx context.Context, id string, upd users.UserUpdate) (*users.User, error)
	Delete(ctx context.Context, id string) error
	SavedProducts(ctx context.Context, userID string) ([]catalog.Product, error)
	ToggleSaved(ctx context.Context, userID, productID string) ([]catalog.Product, error)
}

type OrderLister interface {
	ListByUser(ctx context.Context, userID string) ([]orders.Order, error)
}

type UsersHandler struct {
	Store  UserStore
	Orders OrderLister
	Log    *slog.Logger
}

func (h *UsersHandler) Register(r *chi.Mux) {
	r.Get("/users", h.list)
	r.Post("/users", h.create)
	r.Get("/users/{id}", h.get)
	r.Patch("/users/{id}", h.update)
	r.Delete("/users/{id}", h.delete)
	r.Get("/users/{id}/saved-products", h.savedProducts)
	r.Post("/users/{id}/saved-products", h.toggleSaved)
	r.Get("/users/{id}/orders", h.userOrders)
}

type createUserReq struct {
	Email          string `json:"email" validate:"required,email"`
	FirstName      string `json:"firstName" validate:"required,min=1,max=30"`
	LastName       string `json:"lastName" validate:"required,min=1,max=30"`
	Address        string `json:"address"`
	UserPreference struct {
		ReceiveEmail bool `json:"receiveEmail"`
	} `json:"userPreference"`
}

type patchUserReq struct {
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"firstName" validate:"omitempty,min=1,max=30"`
	LastName  *string `json:"lastName" validate:"omitempty,min=1,max=30"`
	Address   *string `json:"address"`
}

type savedProductReq struct {
	ProductID string `json:"productId" validate:"required"`
}

func (h *UsersHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Store.List(ctx, queryInt(r, "offset", 0), queryInt(r, "limit", 10), r.URL.Query().Get("order"))
	if err != nil {
		h.Log.Error("list users", "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *UsersHandler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Store.Get(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, users.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.Log.Error("get user", "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createUserReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u := users.User{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Address:    req.Address,
		Preference: &users.Preference{ReceiveEmail: req.UserPreference.ReceiveEmail},
	}
	if err := h.Store.Create(ctx, &u); err != nil {
		h.Log.Error("create user", "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *UsersHandler) update(w http.ResponseWriter, r *http.Request) {
	var req patchUserReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Store.Update(ctx, chi.URLParam(r, "id"), users.UserUpdate{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Address:   req.Address,
	})
	if errors.Is(err, users.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.Log.Error("update user", "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *UsersHandler) delete(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	err := h.Store.Delete(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, users.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.Log.Error("delete user", "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *UsersHandler) savedProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Store.SavedProducts(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, users.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.Log.Error("saved products", "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *UsersHandler) toggleSaved(w http.ResponseWriter, r *http.Request) {
	var req savedProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Store.ToggleSaved(ctx, chi.URLParam(r, "id"), req.ProductID)
	if errors.Is(err, users.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.Log.Error("toggle saved product", "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *UsersHandler) userOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Orders.ListByUser(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.Log.Error("list user orders", "err", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
		return
	}
	writeJSON(w, http.StatusOK, list)
}
