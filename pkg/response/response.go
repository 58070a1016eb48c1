package response

// Response represents a standard API response format
type Response struct {
	Status  string            `json:"status"` // "success" or "error"
	Message string            `json:"message"`
	Data    interface{}       `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"` // field -> failed rule
}

// Paged wraps one page of a listing together with its paging metadata
type Paged struct {
	Items interface{} `json:"items"`
	Total int64       `json:"total"`
	Page  int         `json:"page"`
	Limit int         `json:"limit"`
}

// Success returns a standard success response wrapping the data
func Success(message string, data interface{}) Response {
	return Response{
		Status:  "success",
		Message: message,
		Data:    data,
	}
}

// Error returns a standard error response wrapping the error message
func Error(message string) Response {
	return Response{
		Status:  "error",
		Message: message,
	}
}

// Invalid is an error response carrying per-field validation failures
func Invalid(message string, fields map[string]string) Response {
	return Response{
		Status:  "error",
		Message: message,
		Errors:  fields,
	}
}
