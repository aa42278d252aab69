package checks

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"

	"github.com/gorilla/mux"
)

// faults switch off parts of the fake student API.
type faults struct {
	noConflict      bool // duplicate e-mails and second stores are accepted
	noCascade       bool // deleting a user leaves its store and products
	failUserCreate  bool // POST /usuarios always answers 500
	plainTextErrors bool
	deleteWithBody  bool // DELETE answers 200 with the removed resource
}

type fakeUser struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type fakeStore struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	UserID int    `json:"userId"`
}

type fakeProduct struct {
	ID      int     `json:"id"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	StoreID int     `json:"storeId"`
}

// fakeAPI is an in-memory version of the API students are asked to build.
type fakeAPI struct {
	mu       sync.Mutex
	faults   faults
	nextID   int
	users    map[int]*fakeUser
	stores   map[int]*fakeStore
	products map[int]*fakeProduct
}

func newFakeAPI(t *testing.T, f faults) (*fakeAPI, *httptest.Server) {
	t.Helper()
	api := &fakeAPI{
		faults:   f,
		users:    map[int]*fakeUser{},
		stores:   map[int]*fakeStore{},
		products: map[int]*fakeProduct{},
	}

	r := mux.NewRouter()
	r.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		api.json(w, http.StatusOK, map[string]string{"message": "API running"})
	}).Methods(http.MethodGet)

	r.HandleFunc("/usuarios", api.listUsers).Methods(http.MethodGet)
	r.HandleFunc("/usuarios", api.createUser).Methods(http.MethodPost)
	r.HandleFunc("/usuarios/{id}", api.getUser).Methods(http.MethodGet)
	r.HandleFunc("/usuarios/{id}", api.updateUser).Methods(http.MethodPut)
	r.HandleFunc("/usuarios/{id}", api.deleteUser).Methods(http.MethodDelete)

	r.HandleFunc("/stores", api.listStores).Methods(http.MethodGet)
	r.HandleFunc("/stores", api.createStore).Methods(http.MethodPost)
	r.HandleFunc("/stores/{id}", api.getStore).Methods(http.MethodGet)
	r.HandleFunc("/stores/{id}", api.updateStore).Methods(http.MethodPut)
	r.HandleFunc("/stores/{id}", api.deleteStore).Methods(http.MethodDelete)
	r.HandleFunc("/stores/{id}/products", api.storeProducts).Methods(http.MethodGet)

	r.HandleFunc("/products", api.listProducts).Methods(http.MethodGet)
	r.HandleFunc("/products", api.createProduct).Methods(http.MethodPost)
	r.HandleFunc("/products/{id}", api.getProduct).Methods(http.MethodGet)
	r.HandleFunc("/products/{id}", api.updateProduct).Methods(http.MethodPut)
	r.HandleFunc("/products/{id}", api.deleteProduct).Methods(http.MethodDelete)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return api, srv
}

func (a *fakeAPI) json(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (a *fakeAPI) deleted(w http.ResponseWriter, v any) {
	if a.faults.deleteWithBody {
		a.json(w, http.StatusOK, v)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *fakeAPI) fail(w http.ResponseWriter, status int, msg string) {
	if a.faults.plainTextErrors {
		http.Error(w, msg, status)
		return
	}
	a.json(w, status, map[string]string{"error": msg})
}

func (a *fakeAPI) id() int {
	a.nextID++
	return a.nextID
}

func pathID(r *http.Request) int {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		return -1
	}
	return id
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func sortedValues[T any](m map[int]*T) []*T {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	out := make([]*T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m[k])
	}
	return out
}

func (a *fakeAPI) listUsers(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.json(w, http.StatusOK, sortedValues(a.users))
}

func (a *fakeAPI) createUser(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.faults.failUserCreate {
		a.fail(w, http.StatusInternalServerError, "database unavailable")
		return
	}
	var in fakeUser
	if !decode(r, &in) || in.Name == "" || in.Email == "" {
		a.fail(w, http.StatusBadRequest, "name and email are required")
		return
	}
	if !a.faults.noConflict {
		for _, u := range a.users {
			if u.Email == in.Email {
				a.fail(w, http.StatusConflict, "email already registered")
				return
			}
		}
	}
	in.ID = a.id()
	a.users[in.ID] = &in
	a.json(w, http.StatusCreated, in)
}

func (a *fakeAPI) getUser(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[pathID(r)]
	if !ok {
		a.fail(w, http.StatusNotFound, "user not found")
		return
	}
	a.json(w, http.StatusOK, u)
}

func (a *fakeAPI) updateUser(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[pathID(r)]
	if !ok {
		a.fail(w, http.StatusNotFound, "user not found")
		return
	}
	var in fakeUser
	if !decode(r, &in) {
		a.fail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if in.Name != "" {
		u.Name = in.Name
	}
	a.json(w, http.StatusOK, u)
}

func (a *fakeAPI) deleteUser(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := pathID(r)
	u, ok := a.users[id]
	if !ok {
		a.fail(w, http.StatusNotFound, "user not found")
		return
	}
	delete(a.users, id)
	if !a.faults.noCascade {
		for sid, s := range a.stores {
			if s.UserID == id {
				a.removeStore(sid)
			}
		}
	}
	a.deleted(w, u)
}

func (a *fakeAPI) removeStore(id int) {
	delete(a.stores, id)
	if a.faults.noCascade {
		return
	}
	for pid, p := range a.products {
		if p.StoreID == id {
			delete(a.products, pid)
		}
	}
}

func (a *fakeAPI) listStores(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.json(w, http.StatusOK, sortedValues(a.stores))
}

func (a *fakeAPI) createStore(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var in fakeStore
	if !decode(r, &in) || in.Name == "" || in.UserID == 0 {
		a.fail(w, http.StatusBadRequest, "name and userId are required")
		return
	}
	if _, ok := a.users[in.UserID]; !ok {
		a.fail(w, http.StatusNotFound, "user not found")
		return
	}
	if !a.faults.noConflict {
		for _, s := range a.stores {
			if s.UserID == in.UserID {
				a.fail(w, http.StatusConflict, "user already has a store")
				return
			}
		}
	}
	in.ID = a.id()
	a.stores[in.ID] = &in
	a.json(w, http.StatusCreated, in)
}

func (a *fakeAPI) getStore(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.stores[pathID(r)]
	if !ok {
		a.fail(w, http.StatusNotFound, "store not found")
		return
	}
	a.json(w, http.StatusOK, s)
}

func (a *fakeAPI) updateStore(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	s, ok := a.stores[pathID(r)]
	if !ok {
		a.fail(w, http.StatusNotFound, "store not found")
		return
	}
	var in fakeStore
	if !decode(r, &in) {
		a.fail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if in.Name != "" {
		s.Name = in.Name
	}
	a.json(w, http.StatusOK, s)
}

func (a *fakeAPI) deleteStore(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := pathID(r)
	st, ok := a.stores[id]
	if !ok {
		a.fail(w, http.StatusNotFound, "store not found")
		return
	}
	a.removeStore(id)
	a.deleted(w, st)
}

func (a *fakeAPI) storeProducts(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := pathID(r)
	if _, ok := a.stores[id]; !ok {
		a.fail(w, http.StatusNotFound, "store not found")
		return
	}
	out := []*fakeProduct{}
	for _, p := range sortedValues(a.products) {
		if p.StoreID == id {
			out = append(out, p)
		}
	}
	a.json(w, http.StatusOK, out)
}

func (a *fakeAPI) listProducts(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.json(w, http.StatusOK, sortedValues(a.products))
}

func (a *fakeAPI) createProduct(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var in fakeProduct
	if !decode(r, &in) || in.Name == "" || in.StoreID == 0 {
		a.fail(w, http.StatusBadRequest, "name and storeId are required")
		return
	}
	if _, ok := a.stores[in.StoreID]; !ok {
		a.fail(w, http.StatusNotFound, "store not found")
		return
	}
	in.ID = a.id()
	a.products[in.ID] = &in
	a.json(w, http.StatusCreated, in)
}

func (a *fakeAPI) getProduct(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.products[pathID(r)]
	if !ok {
		a.fail(w, http.StatusNotFound, "product not found")
		return
	}
	a.json(w, http.StatusOK, p)
}

func (a *fakeAPI) updateProduct(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	p, ok := a.products[pathID(r)]
	if !ok {
		a.fail(w, http.StatusNotFound, "product not found")
		return
	}
	var in fakeProduct
	if !decode(r, &in) {
		a.fail(w, http.StatusBadRequest, "invalid body")
		return
	}
	if in.Name != "" {
		p.Name = in.Name
	}
	a.json(w, http.StatusOK, p)
}

func (a *fakeAPI) deleteProduct(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := pathID(r)
	p, ok := a.products[id]
	if !ok {
		a.fail(w, http.StatusNotFound, "product not found")
		return
	}
	delete(a.products, id)
	a.deleted(w, p)
}

// counts returns the number of stored users, stores and products.
func (a *fakeAPI) counts() (int, int, int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.users), len(a.stores), len(a.products)
}
