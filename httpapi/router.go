package httpapi

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/platformed/scimcore/refs"
	"github.com/platformed/scimcore/spec"
)

// Router builds the complete SCIM HTTP surface for d: discovery endpoints, a
// dynamically mounted route set per registered resource type (so a host can
// register arbitrary resource types without this package knowing their names
// ahead of time), and the reference-rewriting middleware every response needs.
// basePath (e.g. "/v2") is the path prefix every route is served under; it is
// stripped before routing and also prefixes the absolute URLs written into
// meta.location.
func Router(d *Dispatcher, basePath string) http.Handler {
	router := httprouter.New()

	router.GET("/ServiceProviderConfig", d.serviceProviderConfigHandler)
	router.GET("/Schemas", d.schemasHandler)
	router.GET("/Schemas/:id", d.schemaByIDHandler)
	router.GET("/ResourceTypes", d.resourceTypesHandler)
	router.GET("/ResourceTypes/:name", d.resourceTypeByNameHandler)
	router.GET("/health", d.healthHandler)
	router.POST("/.search", d.crossTypeSearchHandler)

	for _, rt := range d.reg.ResourceTypes() {
		endpoint := rt.Endpoint
		router.GET(endpoint, withEndpoint(endpoint, d.listHandler))
		router.POST(endpoint, withEndpoint(endpoint, d.createHandler))
		router.POST(endpoint+"/.search", withEndpoint(endpoint, d.postSearchHandler))
		router.GET(endpoint+"/:id", withEndpoint(endpoint, d.getHandler))
		router.PUT(endpoint+"/:id", withEndpoint(endpoint, d.replaceHandler))
		router.PATCH(endpoint+"/:id", withEndpoint(endpoint, d.patchHandler))
		router.DELETE(endpoint+"/:id", withEndpoint(endpoint, d.deleteHandler))
	}

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, d.errLogger(r), spec.NotFound())
	})
	router.HandleMethodNotAllowed = true
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, d.errLogger(r), spec.MethodNotAllowed())
	})

	return refs.Middleware(basePath, http.StripPrefix(strings.TrimSuffix(basePath, "/"), router))
}
