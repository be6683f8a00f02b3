package v4

import (
	"fmt"
	"strings"
)

// IRI builds a resource identifier of the form /v4/<resource>/<id>.
func IRI(resource string, id any) string {
	return fmt.Sprintf("/v4/%s/%v", resource, id)
}

// IRIID extracts the trailing id segment of an IRI, or "" when the string
// has no path segments.
func IRIID(iri string) string {
	iri = strings.TrimSuffix(iri, "/")
	if i := strings.LastIndexByte(iri, '/'); i >= 0 {
		return iri[i+1:]
	}
	return iri
}
