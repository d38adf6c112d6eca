/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package apiresponses

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIError represents a standardized error response.
// Code is left empty where clients match on the bare {"error": ...} shape.
type APIError struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// SuccessResponse acknowledges an accepted submission.
type SuccessResponse struct {
	Success bool `json:"success"`
}

// RespondSuccess sends 200 {"success": true}.
func RespondSuccess(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// RespondNotFoundSimple sends a 404 Not Found response with a simple message.
func RespondNotFoundSimple(c *gin.Context, message string) {
	c.JSON(http.StatusNotFound, APIError{
		Error: message,
		Code:  "NOT_FOUND",
	})
}

// RespondBadRequest sends a 400 Bad Request response carrying only the message.
// Use this for client errors like malformed forms or a rejected captcha.
func RespondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, APIError{
		Error: message,
	})
}

// RespondPayloadTooLarge sends a 413 response for uploads over the configured limit.
func RespondPayloadTooLarge(c *gin.Context, message string) {
	c.JSON(http.StatusRequestEntityTooLarge, APIError{
		Error: message,
		Code:  "PAYLOAD_TOO_LARGE",
	})
}

// RespondInternalError sends a 500 Internal Server Error response.
// It logs the error with full details but returns a sanitized message to the client.
func RespondInternalError(c *gin.Context, operation string, err error, log *zap.SugaredLogger) {
	if log != nil {
		log.Errorw(fmt.Sprintf("Failed to %s", operation), "error", err)
	}
	c.JSON(http.StatusInternalServerError, APIError{
		Error: fmt.Sprintf("failed to %s", operation),
		Code:  "INTERNAL_ERROR",
	})
}

// RespondInternalErrorSimple sends a 500 response with the message as-is.
// Use this when the message is meant for the client, e.g. a relay rejection.
func RespondInternalErrorSimple(c *gin.Context, message string) {
	c.JSON(http.StatusInternalServerError, APIError{
		Error: message,
	})
}

// RespondMisconfigured sends a 500 response for operator errors without leaking setting names.
func RespondMisconfigured(c *gin.Context, err error, log *zap.SugaredLogger) {
	if log != nil {
		log.Errorw("Request failed due to server misconfiguration", "error", err)
	}
	c.JSON(http.StatusInternalServerError, APIError{
		Error: "server misconfigured",
		Code:  "MISCONFIGURED",
	})
}

// RespondOK sends a 200 OK response with the given data.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}
