package handler

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// ListData wraps paginated collections.
type ListData struct {
	Items    interface{} `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewListResponse(items interface{}, total, page, pageSize int) *Response {
	return NewSuccessResponse(ListData{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}
