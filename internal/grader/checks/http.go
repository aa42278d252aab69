package checks

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/build-flow-labs/apigrader/probe"
)

// missingUserID is assumed not to exist in a freshly seeded database.
const missingUserID = 99999

// uniqueEmail returns an e-mail that no earlier run has used.
func uniqueEmail() string {
	return "avaliacao-" + uuid.NewString()[:8] + "@avaliacao.com"
}

func userPayload(email string) map[string]any {
	return map[string]any{
		"name":     "Teste Avaliacao",
		"email":    email,
		"password": "123456",
	}
}

func storePayload(userID json.RawMessage) map[string]any {
	return map[string]any{"name": "Loja Avaliacao", "userId": userID}
}

func productPayload(storeID json.RawMessage) map[string]any {
	return map[string]any{"name": "Produto Avaliacao", "price": 99.99, "storeId": storeID}
}

// created is a resource the API returned with an id.
type created struct {
	id  string
	raw json.RawMessage // id as sent back, so numeric ids stay numeric
}

func createdFrom(res probe.Result) (created, bool) {
	id, ok := res.ID()
	if !ok || !res.OK {
		return created{}, false
	}
	return created{id: id, raw: json.RawMessage(res.Field("id").Raw)}, true
}

// httpSuite runs the checks that talk to the API.
type httpSuite struct {
	*evaluation
	prober  *probe.Prober
	cleanup []string
}

func (h *httpSuite) do(method, path string, body any) probe.Result {
	res := h.prober.Do(h.ctx, method, path, body)
	h.logger.Debug("probe", "method", method, "path", path, "status", res.Status, "error", res.Err)
	return res
}

// track schedules a fixture for deletion at the end of the suite.
func (h *httpSuite) track(path string) {
	h.cleanup = append(h.cleanup, path)
}

// untrack drops a fixture that a check already deleted.
func (h *httpSuite) untrack(path string) {
	for i, p := range h.cleanup {
		if p == path {
			h.cleanup = append(h.cleanup[:i], h.cleanup[i+1:]...)
			return
		}
	}
}

// flush deletes tracked fixtures, newest first. Never scored.
func (h *httpSuite) flush() {
	for i := len(h.cleanup) - 1; i >= 0; i-- {
		res := h.do(http.MethodDelete, h.cleanup[i], nil)
		if !res.OK {
			h.logger.Debug("fixture cleanup failed", "path", h.cleanup[i], "status", res.Status)
		}
	}
	h.cleanup = nil
}

func (h *httpSuite) newUser() (created, probe.Result) {
	res := h.do(http.MethodPost, "/usuarios", userPayload(uniqueEmail()))
	u, ok := createdFrom(res)
	if ok {
		h.track("/usuarios/" + u.id)
	}
	return u, res
}

func (h *httpSuite) newStore(owner created) (created, probe.Result) {
	res := h.do(http.MethodPost, "/stores", storePayload(owner.raw))
	s, ok := createdFrom(res)
	if ok {
		h.track("/stores/" + s.id)
	}
	return s, res
}

func (h *httpSuite) newProduct(store created) (created, probe.Result) {
	res := h.do(http.MethodPost, "/products", productPayload(store.raw))
	p, ok := createdFrom(res)
	if ok {
		h.track("/products/" + p.id)
	}
	return p, res
}

func (h *httpSuite) run() {
	h.resource(resourceSpec{
		name: "users", path: "/usuarios",
		create: func() (created, probe.Result, string) {
			u, res := h.newUser()
			return u, res, ""
		},
		update: map[string]any{"name": "Nome Atualizado"},
	})
	h.resource(resourceSpec{
		name: "stores", path: "/stores",
		create: func() (created, probe.Result, string) {
			owner, res := h.newUser()
			if owner.id == "" {
				return created{}, res, "could not create the owner user"
			}
			s, res := h.newStore(owner)
			return s, res, ""
		},
		update: map[string]any{"name": "Loja Atualizada"},
	})
	h.resource(resourceSpec{
		name: "products", path: "/products",
		create: func() (created, probe.Result, string) {
			owner, res := h.newUser()
			if owner.id == "" {
				return created{}, res, "could not create the owner user"
			}
			store, res := h.newStore(owner)
			if store.id == "" {
				return created{}, res, "could not create the parent store"
			}
			p, res := h.newProduct(store)
			return p, res, ""
		},
		update: map[string]any{"name": "Produto Atualizado"},
	})
	h.flush()

	h.routes()
	h.flush()

	h.relations()
	h.flush()
}

type resourceSpec struct {
	name string
	path string
	// create returns the new resource, the response of the last request and,
	// when a fixture could not be prepared, why the create step was skipped.
	create func() (created, probe.Result, string)
	update map[string]any
}

func (h *httpSuite) resource(r resourceSpec) {
	ids := func(ops ...string) []string {
		out := make([]string, len(ops))
		for i, op := range ops {
			out[i] = r.name + "." + op
		}
		return out
	}
	if !h.wantsAny(ids("create", "list", "get", "update", "delete")...) {
		return
	}
	h.section(r.name + " " + r.path)

	item, res, skipped := r.create()
	switch {
	case skipped != "":
		h.skip(r.name+".create", skipped)
	case item.id != "":
		h.pass(r.name + ".create")
	default:
		h.fail(r.name+".create", expectation("2xx with an id", res))
	}

	if h.wants(r.name + ".list") {
		list := h.do(http.MethodGet, r.path, nil)
		if list.OK && list.IsArray() {
			h.pass(r.name + ".list")
		} else {
			h.fail(r.name+".list", expectation("2xx with a JSON array", list))
		}
	}

	if item.id == "" {
		h.skipAll(fmt.Sprintf("POST %s did not return an id", r.path), ids("get", "update", "delete")...)
		return
	}
	itemPath := r.path + "/" + item.id

	if h.wants(r.name + ".get") {
		got := h.do(http.MethodGet, itemPath, nil)
		if id, _ := got.ID(); got.OK && id == item.id {
			h.pass(r.name + ".get")
		} else {
			h.fail(r.name+".get", expectation("2xx with id "+item.id, got))
		}
	}

	if h.wants(r.name + ".update") {
		upd := h.do(http.MethodPut, itemPath, r.update)
		if upd.OK {
			h.pass(r.name + ".update")
		} else {
			h.fail(r.name+".update", expectation("2xx", upd))
		}
	}

	if h.wants(r.name + ".delete") {
		del := h.do(http.MethodDelete, itemPath, nil)
		if del.OK {
			h.pass(r.name + ".delete")
			h.untrack(itemPath)
		} else {
			h.fail(r.name+".delete", expectation("2xx", del))
		}
	}
}

func (h *httpSuite) routes() {
	if !h.wantsAny("routes.root", "routes.not_found", "routes.bad_request",
		"routes.duplicate_email", "routes.json_content_type") {
		return
	}
	h.section("routes and errors")

	if h.wants("routes.root") {
		res := h.do(http.MethodGet, "/", nil)
		if res.OK {
			h.pass("routes.root")
		} else {
			h.fail("routes.root", expectation("2xx", res))
		}
	}

	if h.wants("routes.not_found") {
		res := h.do(http.MethodGet, fmt.Sprintf("/usuarios/%d", missingUserID), nil)
		if res.Status == http.StatusNotFound {
			h.pass("routes.not_found")
		} else {
			h.fail("routes.not_found", expectation("404", res))
		}
	}

	if h.wants("routes.bad_request") {
		res := h.do(http.MethodPost, "/usuarios", map[string]any{})
		if id, ok := res.ID(); ok {
			h.track("/usuarios/" + id)
		}
		if res.Status == http.StatusBadRequest {
			h.pass("routes.bad_request")
		} else {
			h.fail("routes.bad_request", expectation("400", res))
		}
	}

	if h.wants("routes.duplicate_email") {
		email := uniqueEmail()
		first := h.do(http.MethodPost, "/usuarios", userPayload(email))
		if u, ok := createdFrom(first); ok {
			h.track("/usuarios/" + u.id)
			second := h.do(http.MethodPost, "/usuarios", userPayload(email))
			if id, ok := second.ID(); ok {
				h.track("/usuarios/" + id)
			}
			if second.Status == http.StatusConflict {
				h.pass("routes.duplicate_email")
			} else {
				h.fail("routes.duplicate_email", expectation("409", second))
			}
		} else {
			h.skip("routes.duplicate_email", "could not create the first user")
		}
	}

	if h.wants("routes.json_content_type") {
		res := h.do(http.MethodGet, "/usuarios", nil)
		if res.Reachable() && res.IsJSON() {
			h.pass("routes.json_content_type")
		} else {
			h.fail("routes.json_content_type",
				fmt.Sprintf("expected a JSON content type, got %q", res.Headers.Get("Content-Type")))
		}
	}
}

func (h *httpSuite) relations() {
	all := []string{"relations.user_store", "relations.single_store",
		"relations.store_products", "relations.cascade_delete"}
	if !h.wantsAny(all...) {
		return
	}
	h.section("relationships")

	owner, res := h.newUser()
	if owner.id == "" {
		h.skipAll("could not create a user: "+describe(res), all...)
		return
	}

	store, res := h.newStore(owner)
	if store.id == "" {
		h.fail("relations.user_store", expectation("2xx with an id", res))
		h.skipAll("no store was created", all[1:]...)
		return
	}
	h.pass("relations.user_store")

	if h.wants("relations.single_store") {
		second := h.do(http.MethodPost, "/stores", storePayload(owner.raw))
		if id, ok := second.ID(); ok {
			h.track("/stores/" + id)
		}
		if second.Status == http.StatusConflict {
			h.pass("relations.single_store")
		} else {
			h.fail("relations.single_store", expectation("409 for a second store of the same user", second))
		}
	}

	var products []created
	if h.wantsAny("relations.store_products", "relations.cascade_delete") {
		for i := 0; i < 2; i++ {
			if p, _ := h.newProduct(store); p.id != "" {
				products = append(products, p)
			}
		}
	}

	if h.wants("relations.store_products") {
		list := h.do(http.MethodGet, "/stores/"+store.id+"/products", nil)
		switch {
		case len(products) < 2:
			h.skip("relations.store_products", "could not create products for the store")
		case list.OK && list.Len() >= len(products):
			h.pass("relations.store_products")
		default:
			h.fail("relations.store_products",
				fmt.Sprintf("expected at least %d products, got %s", len(products), describe(list)))
		}
	}

	if h.wants("relations.cascade_delete") {
		if len(products) == 0 {
			h.skip("relations.cascade_delete", "could not create a product for the store")
			return
		}
		userPath := "/usuarios/" + owner.id
		del := h.do(http.MethodDelete, userPath, nil)
		if !del.OK {
			h.fail("relations.cascade_delete", expectation("2xx deleting the user", del))
			return
		}
		h.untrack(userPath)

		storeAfter := h.do(http.MethodGet, "/stores/"+store.id, nil)
		productAfter := h.do(http.MethodGet, "/products/"+products[0].id, nil)
		switch {
		case storeAfter.Status != http.StatusNotFound:
			h.fail("relations.cascade_delete", "store still exists after deleting its user ("+describe(storeAfter)+")")
		case productAfter.Status != http.StatusNotFound:
			h.fail("relations.cascade_delete", "product still exists after deleting its user ("+describe(productAfter)+")")
		default:
			h.pass("relations.cascade_delete")
			h.untrack("/stores/" + store.id)
			for _, p := range products {
				h.untrack("/products/" + p.id)
			}
		}
	}
}

func expectation(want string, res probe.Result) string {
	return "expected " + want + ", got " + describe(res)
}

func describe(res probe.Result) string {
	if !res.Reachable() {
		if res.Err != "" {
			return res.Err
		}
		return "no response"
	}
	return fmt.Sprintf("HTTP %d", res.Status)
}
