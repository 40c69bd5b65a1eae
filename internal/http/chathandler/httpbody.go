package chathandler

// Count out of range is clamped by the store, never rejected.
type HistoryQuery struct {
	Count int `form:"count,default=0"`
} // @name HistoryQuery

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
