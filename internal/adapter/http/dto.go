package http

type ErrorResponse struct {
	Error string `json:"error"`
}

type ListResponse[T any] struct {
	Data []T `json:"data"`
}

type PageResponse[T any] struct {
	Data     []T `json:"data"`
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}
