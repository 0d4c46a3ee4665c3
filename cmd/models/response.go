package models

import "encoding/json"

// Response is the envelope every backend endpoint wraps its payload in.
// Data stays raw until the caller knows the concrete type.
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *ResponseError  `json:"error"`
}

// ResponseError carries a field-level validation error, if any.
type ResponseError struct {
	Property *string `json:"property"`
	Message  string  `json:"message"`
}

// Page is the pagination envelope inside Response.Data for list endpoints.
type Page[T any] struct {
	Total     int `json:"total"`
	TotalPage int `json:"totalPage"`
	Items     []T `json:"items"`
}
