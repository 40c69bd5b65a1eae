package usershandler

type MeResponse struct {
	Username string `json:"username" example:"alice"`
} // @name MeResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
