// Package respond provides the JSON response envelope used by all API
// handlers: {"success": true, "data": ...} on success and
// {"success": false, "error": ...} on failure.
package respond

import (
	"github.com/labstack/echo/v4"
)

// Envelope is the standard API response shape.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Message string      `json:"message,omitempty"`
}

// OK writes a success envelope with the given status code.
func OK(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

// OKMessage writes a success envelope carrying a human-readable message
// alongside the data.
func OKMessage(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Error writes a failure envelope with the given status code.
func Error(c echo.Context, status int, msg string) error {
	return c.JSON(status, Envelope{Success: false, Error: msg})
}
