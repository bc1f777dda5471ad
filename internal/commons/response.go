package commons

type Response[T any] struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Data    *T       `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{
		Success: true,
		Message: message,
		Data:    &data,
	}
}

func ErrorResponse[T any](message string, errors ...string) Response[T] {
	return Response[T]{
		Success: false,
		Message: message,
		Errors:  errors,
	}
}

// ItemResult is one element of a positionally aligned batch response. Index
// mirrors the position of the triggering request so clients can match
// outcomes to inputs even when reading results in isolation.
type ItemResult[T any] struct {
	Index   int      `json:"index"`
	Success bool     `json:"success"`
	Data    *T       `json:"data,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

// PartialResponse wraps a batch whose items may have independently failed.
// Success is true only when every item succeeded.
func PartialResponse[T any](message string, items []ItemResult[T]) Response[[]ItemResult[T]] {
	allOK := true
	for _, item := range items {
		if !item.Success {
			allOK = false
			break
		}
	}
	return Response[[]ItemResult[T]]{
		Success: allOK,
		Message: message,
		Data:    &items,
	}
}
