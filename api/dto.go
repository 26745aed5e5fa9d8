/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Mirrors the wire shape the admin UI data provider speaks:

    request:  {"data": {...}, "meta": {"custom": {"page": "purchases"}}}
    response: {"data": {..., "id": "..."}}

  Numbers are decoded as json.Number so decimal values survive unchanged
  until the payload processor parses them.

VALIDATION:
  Validation is done by the document package, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"github.com/warp/stock-provider/document"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// WriteRequest is the body of create and update calls.
type WriteRequest struct {
	Data document.Fields `json:"data"`
	Meta *document.Meta  `json:"meta,omitempty"`
}

// DataResponse wraps a single record.
type DataResponse struct {
	Data document.Fields `json:"data"`
}

// ResourcesResponse lists writable resources.
type ResourcesResponse struct {
	Resources []string `json:"resources"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
