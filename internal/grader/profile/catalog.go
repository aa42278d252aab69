package profile

// Kind separates checks that read the project source from checks that talk
// to the running API.
type Kind string

const (
	KindStatic Kind = "static"
	KindHTTP   Kind = "http"
)

// CheckInfo describes a check a profile can reference.
type CheckInfo struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`
	Kind  Kind   `json:"kind" yaml:"kind"`
}

var catalog = []CheckInfo{
	{"structure.package_json", "package.json present", KindStatic},
	{"structure.entrypoint", "src/index.js or src/app.js present", KindStatic},
	{"structure.prisma_schema", "prisma/schema.prisma present", KindStatic},
	{"structure.env", ".env or .env.example present", KindStatic},
	{"structure.db_module", "src/db.js or src/database.js present", KindStatic},
	{"manifest.prisma_client", "@prisma/client dependency", KindStatic},
	{"manifest.express", "express dependency", KindStatic},
	{"manifest.start_script", "start script defined", KindStatic},
	{"schema.user_model", "User model declared", KindStatic},
	{"schema.store_model", "Store model declared", KindStatic},
	{"schema.product_model", "Product model declared", KindStatic},
	{"schema.relations", "relations declared in the schema", KindStatic},
	{"source.express", "entrypoint uses express", KindStatic},
	{"source.prisma", "entrypoint uses Prisma", KindStatic},
	{"source.route_list_users", "GET /usuarios route", KindStatic},
	{"source.route_create_users", "POST /usuarios route", KindStatic},
	{"source.route_list_stores", "GET /stores route", KindStatic},
	{"source.route_list_products", "GET /products route", KindStatic},
	{"source.error_handling", "try/catch error handling", KindStatic},
	{"source.status_codes", "explicit HTTP status codes", KindStatic},
	{"source.relation_queries", "relation queries (include/select)", KindStatic},

	{"users.create", "POST /usuarios", KindHTTP},
	{"users.list", "GET /usuarios", KindHTTP},
	{"users.get", "GET /usuarios/:id", KindHTTP},
	{"users.update", "PUT /usuarios/:id", KindHTTP},
	{"users.delete", "DELETE /usuarios/:id", KindHTTP},
	{"stores.create", "POST /stores", KindHTTP},
	{"stores.list", "GET /stores", KindHTTP},
	{"stores.get", "GET /stores/:id", KindHTTP},
	{"stores.update", "PUT /stores/:id", KindHTTP},
	{"stores.delete", "DELETE /stores/:id", KindHTTP},
	{"products.create", "POST /products", KindHTTP},
	{"products.list", "GET /products", KindHTTP},
	{"products.get", "GET /products/:id", KindHTTP},
	{"products.update", "PUT /products/:id", KindHTTP},
	{"products.delete", "DELETE /products/:id", KindHTTP},
	{"routes.root", "GET /", KindHTTP},
	{"routes.not_found", "404 for a missing user", KindHTTP},
	{"routes.bad_request", "400 for an invalid body", KindHTTP},
	{"routes.duplicate_email", "409 for a duplicate e-mail", KindHTTP},
	{"routes.json_content_type", "JSON content type", KindHTTP},
	{"relations.user_store", "store created for a user", KindHTTP},
	{"relations.single_store", "one store per user (409)", KindHTTP},
	{"relations.store_products", "GET /stores/:id/products", KindHTTP},
	{"relations.cascade_delete", "deleting a user removes its store and products", KindHTTP},
}

var catalogIndex = func() map[string]CheckInfo {
	m := make(map[string]CheckInfo, len(catalog))
	for _, c := range catalog {
		m[c.ID] = c
	}
	return m
}()

// Catalog returns every known check in display order.
func Catalog() []CheckInfo {
	out := make([]CheckInfo, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for id.
func Lookup(id string) (CheckInfo, bool) {
	c, ok := catalogIndex[id]
	return c, ok
}

// Known reports whether id is a check in the catalog.
func Known(id string) bool {
	_, ok := catalogIndex[id]
	return ok
}
