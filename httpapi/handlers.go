package httpapi

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/platformed/scimcore/manager"
	"github.com/platformed/scimcore/patch"
	"github.com/platformed/scimcore/refs"
	"github.com/platformed/scimcore/spec"
)

type loggerFunc func(*spec.Error)

func (d *Dispatcher) errLogger(r *http.Request) loggerFunc {
	return func(e *spec.Error) {
		if d.log == nil {
			return
		}
		ev := d.log.Warn()
		if e.Status >= 500 {
			ev = d.log.Error()
		}
		ev.Str("method", r.Method).Str("path", r.URL.Path).Int("status", e.Status).Msg(e.Detail)
	}
}

func (d *Dispatcher) listHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	mgr, rt := d.mustManagerForEndpoint(w, r, endpointOf(r))
	if mgr == nil {
		return
	}
	args, err := listArgsFromQuery(r, d.reg, rt, mgr.DefaultPageSize())
	if err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	d.runList(w, r, mgr, args)
}

func (d *Dispatcher) postSearchHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	mgr, rt := d.mustManagerForEndpoint(w, r, endpointOf(r))
	if mgr == nil {
		return
	}
	args, err := listArgsFromBody(r, d.reg, rt, mgr.DefaultPageSize())
	if err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	d.runList(w, r, mgr, args)
}

func (d *Dispatcher) crossTypeSearchHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var wire struct {
		Filter string `json:"filter"`
	}
	if err := decodeBody(r, &wire); err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	f, err := parseFilterOrEmpty(wire.Filter)
	if err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	residual, rtName, ok := extractResourceTypeFilter(f)
	if !ok {
		writeError(w, d.errLogger(r), spec.InvalidFilter("cross-type search requires a meta.resourceType eq \"<name>\" conjunct"))
		return
	}
	mgr, ok := d.managerFor(rtName)
	if !ok {
		writeError(w, d.errLogger(r), spec.NotFound())
		return
	}
	rt := mgr.ResourceType()
	sr := searchRequest{}
	args, err := buildListArgs(sr, d.reg, rt, mgr.DefaultPageSize())
	if err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	args.Filter = residual
	d.runList(w, r, mgr, args)
}

func (d *Dispatcher) runList(w http.ResponseWriter, r *http.Request, mgr manager.ResourceManager, args manager.ListArgs) {
	result, err := mgr.List(r.Context(), args)
	if err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	for _, res := range result.Resources {
		locateResource(r, res)
	}
	writeListResult(w, args.StartIndex, args.Count, result)
}

func (d *Dispatcher) getHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	mgr, rt := d.mustManagerForEndpoint(w, r, endpointOf(r))
	if mgr == nil {
		return
	}
	include, exclude, err := attrsFromQuery(r, d.reg, rt)
	if err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	args := manager.GetArgs{
		ID:                 ps.ByName("id"),
		OptionalAttributes: selectionFor(d.reg, rt, include, exclude),
	}
	resource, err := mgr.Get(r.Context(), args)
	if err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	locateResource(r, resource)
	writeResource(w, r, http.StatusOK, resource)
}

func (d *Dispatcher) createHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	mgr, _ := d.mustManagerForEndpoint(w, r, endpointOf(r))
	if mgr == nil {
		return
	}
	var body map[string]interface{}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	id, err := mgr.Create(r.Context(), body)
	if err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	resource, err := mgr.Get(r.Context(), manager.GetArgs{ID: id})
	if err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	locateResource(r, resource)
	writeResource(w, r, http.StatusCreated, resource)
}

func (d *Dispatcher) replaceHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	mgr, _ := d.mustManagerForEndpoint(w, r, endpointOf(r))
	if mgr == nil {
		return
	}
	var body map[string]interface{}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	resource, err := mgr.Replace(r.Context(), ps.ByName("id"), body)
	if err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	locateResource(r, resource)
	writeResource(w, r, http.StatusOK, resource)
}

func (d *Dispatcher) patchHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	mgr, rt := d.mustManagerForEndpoint(w, r, endpointOf(r))
	if mgr == nil {
		return
	}
	var body struct {
		Schemas    []string            `json:"schemas"`
		Operations []patch.RawOperation `json:"Operations"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	items, err := patch.Translate(d.reg, rt, body.Operations)
	if err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	args := manager.UpdateArgs{ID: ps.ByName("id"), Items: toUpdateItems(items)}
	resource, err := mgr.Update(r.Context(), args)
	if err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	locateResource(r, resource)
	writeResource(w, r, http.StatusOK, resource)
}

func (d *Dispatcher) deleteHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	mgr, _ := d.mustManagerForEndpoint(w, r, endpointOf(r))
	if mgr == nil {
		return
	}
	if err := mgr.Delete(r.Context(), ps.ByName("id")); err != nil {
		writeError(w, d.errLogger(r), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toUpdateItems(items []patch.Item) []manager.UpdateItem {
	out := make([]manager.UpdateItem, len(items))
	for i, it := range items {
		var kind manager.UpdateKind
		switch it.Kind {
		case patch.Add:
			kind = manager.UpdateAdd
		case patch.Replace:
			kind = manager.UpdateReplace
		case patch.Remove:
			kind = manager.UpdateRemove
		}
		out[i] = manager.UpdateItem{Path: it.Path, Kind: kind, Value: it.Value}
	}
	return out
}

func (d *Dispatcher) mustManagerForEndpoint(w http.ResponseWriter, r *http.Request, endpoint string) (manager.ResourceManager, *spec.ResourceType) {
	mgr, ok := d.managerForEndpoint(endpoint)
	if !ok {
		writeError(w, d.errLogger(r), spec.NotFound())
		return nil, nil
	}
	return mgr, mgr.ResourceType()
}

// endpointOf returns the registered endpoint a request was routed under, derived
// from the httprouter pattern rather than the literal request path so that a
// trailing "/:id" or "/.search" segment doesn't leak into the lookup.
func endpointOf(r *http.Request) string {
	endpoint, _ := r.Context().Value(endpointCtxKey{}).(string)
	return endpoint
}

type endpointCtxKey struct{}

func withEndpoint(endpoint string, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), endpointCtxKey{}, endpoint)
		h(w, r.WithContext(ctx), ps)
	}
}

func (d *Dispatcher) serviceProviderConfigHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	cfg := *d.reg.ServiceProviderConfig()
	cfg.Locate()
	refs.LocateMeta(r.Context(), cfg.Meta)
	writeDocument(w, http.StatusOK, cfg)
}

func (d *Dispatcher) schemasHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	regSchemas := d.reg.Schemas()
	schemas := make([]*spec.Schema, len(regSchemas))
	for i, s := range regSchemas {
		copied := *s
		copied.Locate()
		refs.LocateMeta(r.Context(), copied.Meta)
		schemas[i] = &copied
	}
	writeListResult(w, 0, len(schemas), manager.ListResult{
		Resources:  toMaps(schemas),
		TotalCount: len(schemas),
	})
}

func (d *Dispatcher) schemaByIDHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s := d.reg.Schema(ps.ByName("id"))
	if s == nil {
		writeError(w, d.errLogger(r), spec.NotFound())
		return
	}
	copied := *s
	copied.Locate()
	refs.LocateMeta(r.Context(), copied.Meta)
	writeDocument(w, http.StatusOK, copied)
}

func (d *Dispatcher) resourceTypesHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	regTypes := d.reg.ResourceTypes()
	types := make([]*spec.ResourceType, len(regTypes))
	for i, rt := range regTypes {
		copied := *rt
		copied.Locate()
		refs.LocateMeta(r.Context(), copied.Meta)
		types[i] = &copied
	}
	writeListResult(w, 0, len(types), manager.ListResult{
		Resources:  toMaps(types),
		TotalCount: len(types),
	})
}

func (d *Dispatcher) resourceTypeByNameHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rt := d.reg.ResourceType(ps.ByName("name"))
	if rt == nil {
		writeError(w, d.errLogger(r), spec.NotFound())
		return
	}
	copied := *rt
	copied.Locate()
	refs.LocateMeta(r.Context(), copied.Meta)
	writeDocument(w, http.StatusOK, copied)
}

func (d *Dispatcher) healthHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	status := http.StatusOK
	body := map[string]interface{}{"status": "ok"}
	for _, rt := range d.reg.ResourceTypes() {
		mgr, ok := d.managerFor(rt.Name)
		if !ok {
			continue
		}
		pinger, ok := mgr.(manager.Pinger)
		if !ok {
			continue
		}
		if err := pinger.Ping(r.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unavailable"
			body[rt.Name] = err.Error()
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, body)
}
