package checks

import (
	"fmt"
	"strings"

	"github.com/build-flow-labs/apigrader/inspect"
)

var requiredFiles = []struct {
	id    string
	paths []string
}{
	{"structure.package_json", []string{"package.json"}},
	{"structure.entrypoint", []string{"src/index.js", "src/app.js"}},
	{"structure.prisma_schema", []string{"prisma/schema.prisma"}},
	{"structure.env", []string{".env", ".env.example"}},
	{"structure.db_module", []string{"src/db.js", "src/database.js"}},
}

var entrypoints = []string{"src/index.js", "src/app.js"}

var routePatterns = []struct {
	id      string
	pattern inspect.Pattern
}{
	{"source.route_list_users", inspect.Pattern{Regexps: []string{`get.*usuarios`, `/usuarios.*get`}}},
	{"source.route_create_users", inspect.Pattern{Regexps: []string{`post.*usuarios`, `/usuarios.*post`}}},
	{"source.route_list_stores", inspect.Pattern{Regexps: []string{`get.*stores`, `/stores.*get`}}},
	{"source.route_list_products", inspect.Pattern{Regexps: []string{`get.*products`, `/products.*get`}}},
}

var statusCodes = []string{"201", "404", "400", "204"}

const minStatusCodes = 3

func runStatic(e *evaluation, src inspect.Source) {
	checkStructure(e, src)
	checkManifest(e, src)
	checkSchema(e, src)
	checkSource(e, src)
}

func checkStructure(e *evaluation, src inspect.Source) {
	if !e.wantsAny("structure.package_json", "structure.entrypoint", "structure.prisma_schema",
		"structure.env", "structure.db_module") {
		return
	}
	e.section("project structure")
	for _, f := range requiredFiles {
		if !e.wants(f.id) {
			continue
		}
		if _, ok := inspect.FirstExisting(src, f.paths...); ok {
			e.pass(f.id)
		} else {
			e.fail(f.id, "missing "+strings.Join(f.paths, " or "))
		}
	}
}

func checkManifest(e *evaluation, src inspect.Source) {
	ids := []string{"manifest.prisma_client", "manifest.express", "manifest.start_script"}
	if !e.wantsAny(ids...) {
		return
	}
	e.section("package.json")

	content, ok := src.Read("package.json")
	if !ok {
		e.failAll("package.json not found", ids...)
		return
	}
	m, err := inspect.ParseManifest(content)
	if err != nil {
		e.failAll("package.json is not valid JSON", ids...)
		return
	}

	if e.wants("manifest.prisma_client") {
		if m.HasDependency("@prisma/client") {
			e.pass("manifest.prisma_client")
		} else {
			e.fail("manifest.prisma_client", "@prisma/client is not in dependencies")
		}
	}
	if e.wants("manifest.express") {
		if m.HasDependency("express") {
			e.pass("manifest.express")
		} else {
			e.fail("manifest.express", "express is not in dependencies")
		}
	}
	if e.wants("manifest.start_script") {
		if _, ok := m.Script("start"); ok {
			e.pass("manifest.start_script")
		} else {
			e.fail("manifest.start_script", "no start script in package.json")
		}
	}
}

func checkSchema(e *evaluation, src inspect.Source) {
	models := []struct{ id, name string }{
		{"schema.user_model", "User"},
		{"schema.store_model", "Store"},
		{"schema.product_model", "Product"},
	}
	ids := []string{"schema.user_model", "schema.store_model", "schema.product_model", "schema.relations"}
	if !e.wantsAny(ids...) {
		return
	}
	e.section("prisma schema")

	content, ok := src.Read("prisma/schema.prisma")
	if !ok {
		e.failAll("prisma/schema.prisma not found", ids...)
		return
	}
	schema := inspect.ParsePrismaSchema(content)

	for _, m := range models {
		if !e.wants(m.id) {
			continue
		}
		if schema.HasModel(m.name) {
			e.pass(m.id)
		} else {
			e.fail(m.id, fmt.Sprintf("model %s is not declared", m.name))
		}
	}
	if e.wants("schema.relations") {
		if schema.Relations {
			e.pass("schema.relations")
		} else {
			e.fail("schema.relations", "no @relation found")
		}
	}
}

func checkSource(e *evaluation, src inspect.Source) {
	ids := []string{"source.express", "source.prisma", "source.route_list_users", "source.route_create_users",
		"source.route_list_stores", "source.route_list_products", "source.error_handling",
		"source.status_codes", "source.relation_queries"}
	if !e.wantsAny(ids...) {
		return
	}
	e.section("api source")

	path, code, ok := inspect.ReadFirst(src, entrypoints...)
	if !ok {
		e.failAll("API entrypoint not found ("+strings.Join(entrypoints, " or ")+")", ids...)
		return
	}
	e.logger.Debug("analyzing entrypoint", "path", path)

	contains := func(id string, p inspect.Pattern, reason string) {
		if !e.wants(id) {
			return
		}
		if p.Present(code) {
			e.pass(id)
		} else {
			e.fail(id, reason)
		}
	}

	contains("source.express", inspect.Pattern{Substrings: []string{"express", "Express"}},
		"express is not imported in "+path)
	contains("source.prisma", inspect.Pattern{Substrings: []string{"prisma", "PrismaClient"}},
		"Prisma is not imported in "+path)
	for _, r := range routePatterns {
		contains(r.id, r.pattern, fmt.Sprintf("route %s not found in %s", title(r.id), path))
	}
	contains("source.error_handling", inspect.Pattern{Substrings: []string{"try", "catch"}, All: true},
		"no try/catch error handling")

	if e.wants("source.status_codes") {
		n := inspect.CountPresent(code, statusCodes)
		if n >= minStatusCodes {
			e.pass("source.status_codes")
		} else {
			e.fail("source.status_codes", fmt.Sprintf("only %d of %s used", n, strings.Join(statusCodes, ", ")))
		}
	}

	contains("source.relation_queries", inspect.Pattern{Substrings: []string{"include", "select"}},
		"queries never use include or select")
}
