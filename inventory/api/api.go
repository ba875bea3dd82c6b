package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andrebq/stockroom/auth"
	authapi "github.com/andrebq/stockroom/auth/api"
	"github.com/andrebq/stockroom/internal/logutil"
	"github.com/andrebq/stockroom/inventory"
	"github.com/julienschmidt/httprouter"
)

type (
	ProductStore interface {
		ListProducts(ctx context.Context) ([]inventory.Product, error)
		GetProduct(ctx context.Context, id string) (inventory.Product, error)
		CreateProduct(ctx context.Context, p inventory.Product) (inventory.Product, error)
		UpdateProduct(ctx context.Context, p inventory.Product) (inventory.Product, error)
		DeleteProduct(ctx context.Context, id string) error
		Ping(ctx context.Context) error
	}

	server struct {
		store  ProductStore
		realm  *authapi.SecurityRealm
		router *httprouter.Router
	}
)

// AsHandler exposes the product store over http. Every product route
// goes through the realm, only login, logout and health are public.
func AsHandler(ctx context.Context, store ProductStore, realm *authapi.SecurityRealm) (http.Handler, error) {
	if store == nil || realm == nil {
		return nil, errors.New("api: store and realm are required")
	}
	s := &server{
		store:  store,
		realm:  realm,
		router: httprouter.New(),
	}
	s.router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Interface("panic", v).Msg("Handler panic")
		renderError(w, r, http.StatusInternalServerError, "Internal error", msgTryAgainLater)
	}

	s.public("GET", "/", s.loginForm)
	s.public("POST", "/login", s.login)
	s.public("GET", "/logout", s.logout)
	s.public("GET", "/healthz", s.health)

	s.protected("GET", "/products", s.listProducts)
	s.protected("GET", "/add", s.newProductForm)
	s.protected("POST", "/add", s.createProduct)
	s.protected("GET", "/edit/:id", s.editProductForm)
	s.protected("POST", "/edit/:id", s.updateProduct)
	s.protected("POST", "/delete/:id", s.deleteProduct)

	s.protectedAPI("GET", "/api/products", s.listProductsJSON)

	return logutil.Middleware(s.router), nil
}

func (s *server) public(method, path string, h http.HandlerFunc) {
	s.router.Handler(method, path, h)
}

func (s *server) protected(method, path string, h http.HandlerFunc) {
	s.router.Handler(method, path, s.realm.Protect(h))
}

func (s *server) protectedAPI(method, path string, h http.HandlerFunc) {
	s.router.Handler(method, path, s.realm.ProtectAPI(h))
}

func (s *server) loginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.realm.Check(r); err == nil {
		http.Redirect(w, r, "/products", http.StatusSeeOther)
		return
	}
	render(w, r, http.StatusOK, "login", loginPage{})
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		render(w, r, http.StatusBadRequest, "login", loginPage{Message: msgInvalidCredentials})
		return
	}
	login := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	// empty fields go through the full check so they cost as much as any
	// other rejection
	_, err := s.realm.Login(r.Context(), w, login, password)
	switch {
	case errors.Is(err, auth.ErrStoreUnavailable):
		renderError(w, r, http.StatusInternalServerError, "Internal error", msgTryAgainLater)
	case err != nil:
		render(w, r, http.StatusUnauthorized, "login", loginPage{Login: login, Message: msgInvalidCredentials})
	default:
		http.Redirect(w, r, "/products", http.StatusSeeOther)
	}
}

func (s *server) logout(w http.ResponseWriter, r *http.Request) {
	s.realm.Logout(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("Health check failed")
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		s.storeFailure(w, r, err)
		return
	}
	render(w, r, http.StatusOK, "products", productsPage{Products: products})
}

func (s *server) listProductsJSON(w http.ResponseWriter, r *http.Request) {
	products, err := s.store.ListProducts(r.Context())
	if err != nil {
		log := logutil.GetOrDefault(r.Context())
		log.Error().Err(err).Msg("Unable to list products")
		writeJSON(w, r, http.StatusInternalServerError, map[string]string{"error": "unavailable"})
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{"products": products})
}

func (s *server) newProductForm(w http.ResponseWriter, r *http.Request) {
	render(w, r, http.StatusOK, "form", formPage{Title: "Add product", Action: "/add"})
}

func (s *server) createProduct(w http.ResponseWriter, r *http.Request) {
	p, err := productFromForm(r)
	if err == nil {
		_, err = s.store.CreateProduct(r.Context(), p)
	}
	var invalid inventory.InvalidProduct
	switch {
	case errors.As(err, &invalid):
		render(w, r, http.StatusBadRequest, "form", formPage{Title: "Add product", Action: "/add", Product: p, Message: invalid.Error()})
	case err != nil:
		s.storeFailure(w, r, err)
	default:
		http.Redirect(w, r, "/products", http.StatusSeeOther)
	}
}

func (s *server) editProductForm(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	p, err := s.store.GetProduct(r.Context(), id)
	if err != nil {
		s.storeFailure(w, r, err)
		return
	}
	render(w, r, http.StatusOK, "form", formPage{Title: "Edit product", Action: "/edit/" + p.ID, Product: p})
}

func (s *server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	p, err := productFromForm(r)
	p.ID = id
	if err == nil {
		_, err = s.store.UpdateProduct(r.Context(), p)
	}
	var invalid inventory.InvalidProduct
	switch {
	case errors.As(err, &invalid):
		render(w, r, http.StatusBadRequest, "form", formPage{Title: "Edit product", Action: "/edit/" + id, Product: p, Message: invalid.Error()})
	case err != nil:
		s.storeFailure(w, r, err)
	default:
		http.Redirect(w, r, "/products", http.StatusSeeOther)
	}
}

func (s *server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id := httprouter.ParamsFromContext(r.Context()).ByName("id")
	err := s.store.DeleteProduct(r.Context(), id)
	if err != nil {
		s.storeFailure(w, r, err)
		return
	}
	http.Redirect(w, r, "/products", http.StatusSeeOther)
}

func (s *server) storeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var notFound inventory.ProductNotFound
	if errors.As(err, &notFound) {
		renderError(w, r, http.StatusNotFound, "Not found", "The product does not exist.")
		return
	}
	log := logutil.GetOrDefault(r.Context())
	log.Error().Err(err).Str("path", r.URL.Path).Msg("Store operation failed")
	renderError(w, r, http.StatusInternalServerError, "Internal error", msgTryAgainLater)
}

func productFromForm(r *http.Request) (inventory.Product, error) {
	var p inventory.Product
	if err := r.ParseForm(); err != nil {
		return p, inventory.InvalidProduct{Field: "form", Reason: "cannot be parsed"}
	}
	p.Name = r.PostFormValue("name")
	p.Description = r.PostFormValue("description")
	var err error
	p.Quantity, err = strconv.ParseInt(strings.TrimSpace(r.PostFormValue("quantity")), 10, 64)
	if err != nil {
		return p, inventory.InvalidProduct{Field: "quantity", Reason: "must be an integer"}
	}
	p.Price, err = strconv.ParseFloat(strings.TrimSpace(r.PostFormValue("price")), 64)
	if err != nil {
		return p, inventory.InvalidProduct{Field: "price", Reason: "must be a number"}
	}
	return p, nil
}
