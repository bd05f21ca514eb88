package services

import (
	"encoding/json"
	"net/http"

	"github.com/itm-space/backend-resources/models"
)

func WriteResponse(w http.ResponseWriter, statusCode int, response interface{}, location ...string) {

	w.Header().Set("Content-Type", "application/json")

	// We don't want to cache API responses so the client receives most curent data
	w.Header().Set("Cache-Control", "max-age=0")

	// Conditionally set the Location header if provided
	if len(location) > 0 && location[0] != "" {
		w.Header().Set("Location", location[0])
	}

	w.WriteHeader(statusCode)

	if response != nil {
		if err := json.NewEncoder(w).Encode(response); err != nil {
			http.Error(w, "Failed to encode response", http.StatusInternalServerError)
			return
		}
	}
}

// HandleErrResponse writes err in the error envelope with the given status.
func HandleErrResponse(w http.ResponseWriter, statusCode int, err error) {
	WriteResponse(w, statusCode, models.Response{
		Success:      0,
		ErrorDetails: err.Error(),
	})
}

// HandleServiceError writes a service error with the status and code it maps to.
func HandleServiceError(w http.ResponseWriter, err error) {
	WriteResponse(w, StatusCode(err), models.Response{
		Success:      0,
		ErrorCode:    ErrorCode(err),
		ErrorDetails: err.Error(),
	})
}
