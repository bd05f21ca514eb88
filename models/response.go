package models

// Response is the envelope written for failed requests.
type Response struct {
	Success      int    `json:"success"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorDetails string `json:"error_details,omitempty"`
}
