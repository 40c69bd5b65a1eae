package authhandler

type RegisterBody struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required,min=8"`
} // @name RegisterRequest

type LoginBody struct {
	Username string `json:"username" binding:"required" example:"alice"`
	Password string `json:"password" binding:"required"`
} // @name LoginRequest

type RegisteredResponse struct {
	Message string `json:"message" example:"user registered"`
} // @name RegisteredResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse
