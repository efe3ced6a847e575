package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/platformed/scimcore/manager"
	"github.com/platformed/scimcore/refs"
	"github.com/platformed/scimcore/spec"
)

// writeResource serializes a single resource, setting the SCIM Content-Type and,
// when present, Location and ETag headers derived from meta.location/meta.version.
// Reference rewriting (relative -> absolute location) must already have happened.
func writeResource(w http.ResponseWriter, r *http.Request, status int, resource map[string]interface{}) {
	w.Header().Set("Content-Type", spec.ApplicationScimJSON)
	if meta, ok := resource["meta"].(map[string]interface{}); ok {
		if loc, ok := meta["location"].(string); ok && loc != "" {
			w.Header().Set("Location", loc)
		}
		if version, ok := meta["version"].(string); ok && version != "" {
			w.Header().Set("ETag", version)
		}
	}
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resource)
}

// listResponse is the RFC 7644 §3.4.2 ListResponse envelope.
type listResponse struct {
	Schemas      []string                 `json:"schemas"`
	TotalResults int                      `json:"totalResults"`
	StartIndex   int                      `json:"startIndex"`
	ItemsPerPage int                      `json:"itemsPerPage"`
	Resources    []map[string]interface{} `json:"Resources"`
}

func writeListResult(w http.ResponseWriter, startIndex, count int, result manager.ListResult) {
	w.Header().Set("Content-Type", spec.ApplicationScimJSON)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(listResponse{
		Schemas:      []string{spec.ListResponseSchema},
		TotalResults: result.TotalCount,
		StartIndex:   startIndex + 1,
		ItemsPerPage: count,
		Resources:    result.Resources,
	})
}

// errorBody mirrors the RFC 7644 §3.12 error representation, where status is
// rendered as a JSON string rather than a number.
type errorBody struct {
	Schemas  []string `json:"schemas"`
	Status   string   `json:"status"`
	ScimType string   `json:"scimType,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

// writeError renders err as a SCIM error response. Any error that is not (or does
// not wrap) a *spec.Error is rendered as spec.Internal with its message as detail.
func writeError(w http.ResponseWriter, log loggerFunc, err error) {
	scimErr := asScimError(err)
	log(scimErr)

	w.Header().Set("Content-Type", spec.ApplicationScimJSON)
	w.WriteHeader(scimErr.Status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Schemas:  []string{spec.ErrorSchema},
		Status:   strconv.Itoa(scimErr.Status),
		ScimType: string(scimErr.ScimType),
		Detail:   scimErr.Detail,
	})
}

func asScimError(err error) *spec.Error {
	var scimErr *spec.Error
	if errors.As(err, &scimErr) {
		return scimErr
	}
	return spec.Internal(err.Error())
}

// locateResource rewrites meta.location to an absolute URL for a single resource
// about to be written to the response.
func locateResource(r *http.Request, resource map[string]interface{}) {
	meta, ok := resource["meta"].(map[string]interface{})
	if !ok {
		return
	}
	if loc, ok := meta["location"].(string); ok {
		meta["location"] = refs.Rewrite(r.Context(), loc)
	}
}
