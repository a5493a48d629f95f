package response

import "github.com/gin-gonic/gin"

const (
	CodeOK                   = 0
	CodeBadRequest           = 40000
	CodeUsernameExists       = 40001
	CodeEmailExists          = 40002
	CodeEmptyContent         = 40003
	CodeUnsupportedFormat    = 40004
	CodeUnauthorized         = 40100
	CodeInvalidCredentials   = 40101
	CodeNotSupported         = 40500
	CodeTooManyRequests      = 42900
	CodeInternalServer       = 50000
	CodeIndexUnavailable     = 50301
	CodeEmbeddingUnavailable = 50302
)

type APIResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(200, APIResponse{
		Code:    CodeOK,
		Message: "ok",
		Data:    data,
	})
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
	})
}

// Accepted reports work queued for later, such as a deferred ingestion.
func Accepted(c *gin.Context, message string, data interface{}) {
	c.JSON(202, APIResponse{
		Code:    CodeOK,
		Message: message,
		Data:    data,
	})
}
