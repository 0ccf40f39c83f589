// internal/utils/response.go
package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farmchain/farmchain-backend/internal/i18n"
)

// Error kinds reported in failure bodies. Ledger kinds use the gateway's names.
const (
	KindValidation   = "validation"
	KindUnauthorized = "unauthorized"
	KindForbidden    = "forbidden"
	KindNotFound     = "not_found"
	KindRateLimited  = "rate_limited"
	KindUpstream     = "upstream"
	KindInternal     = "internal"
)

type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

type ErrorBody struct {
	Success bool        `json:"success"`
	Error   string      `json:"error"`
	Kind    string      `json:"kind"`
	Details interface{} `json:"details,omitempty"`
}

// TransactionBody is the success body of every ledger write.
type TransactionBody struct {
	Success         bool   `json:"success"`
	TransactionHash string `json:"transactionHash"`
	BlockNumber     uint64 `json:"blockNumber"`
	Nonce           uint64 `json:"nonce"`
}

func SuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

func SuccessResponseWithMeta(c *gin.Context, data interface{}, meta interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta:    meta,
	})
}

func TransactionResponse(c *gin.Context, txHash string, blockNumber, nonce uint64) {
	c.JSON(http.StatusOK, TransactionBody{
		Success:         true,
		TransactionHash: txHash,
		BlockNumber:     blockNumber,
		Nonce:           nonce,
	})
}

func ErrorResponse(c *gin.Context, statusCode int, kind, message string, details interface{}) {
	c.JSON(statusCode, ErrorBody{
		Success: false,
		Error:   message,
		Kind:    kind,
		Details: details,
	})
}

func BadRequestResponse(c *gin.Context, message string, details interface{}) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyValidationInvalid, "request")
	}
	ErrorResponse(c, http.StatusBadRequest, KindValidation, message, details)
}

func UnauthorizedResponse(c *gin.Context, message string) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyAuthRequired)
	}
	ErrorResponse(c, http.StatusUnauthorized, KindUnauthorized, message, nil)
}

func ForbiddenResponse(c *gin.Context, message string) {
	lang := GetLangFromContext(c)
	if message == "" {
		message = i18n.T(lang, i18n.KeyAuthForbidden)
	}
	ErrorResponse(c, http.StatusForbidden, KindForbidden, message, nil)
}

func NotFoundResponse(c *gin.Context, key string) {
	lang := GetLangFromContext(c)
	if key == "" {
		key = i18n.KeyNotFound
	}
	ErrorResponse(c, http.StatusNotFound, KindNotFound, i18n.T(lang, key), nil)
}

func TooManyRequestsResponse(c *gin.Context) {
	lang := GetLangFromContext(c)
	ErrorResponse(c, http.StatusTooManyRequests, KindRateLimited, i18n.T(lang, i18n.KeyRateLimited), nil)
}

func InternalErrorResponse(c *gin.Context, message string) {
	if message == "" {
		message = i18n.T(GetLangFromContext(c), i18n.KeyInternal)
	}
	ErrorResponse(c, http.StatusInternalServerError, KindInternal, message, nil)
}

func ValidationErrorResponse(c *gin.Context, errors []ValidationError) {
	lang := GetLangFromContext(c)
	message := i18n.T(lang, i18n.KeyValidationInvalid, "input")
	if len(errors) == 1 {
		message = errors[0].Message
	}
	ErrorResponse(c, http.StatusBadRequest, KindValidation, message, errors)
}

func PaginatedResponse(c *gin.Context, result PaginationResult) {
	SetPaginationHeaders(c, result)
	SuccessResponseWithMeta(c, result.Data, gin.H{
		"pagination": gin.H{
			"page":        result.Page,
			"limit":       result.Limit,
			"total":       result.Total,
			"total_pages": result.TotalPages,
		},
	})
}

func GetLangFromContext(c *gin.Context) string {
	if lang, exists := c.Get("lang"); exists {
		if langStr, ok := lang.(string); ok {
			return langStr
		}
	}
	return "en"
}

// GetOperatorFromContext returns the subject of a verified operator token.
func GetOperatorFromContext(c *gin.Context) (string, bool) {
	if operator, exists := c.Get("operator"); exists {
		if operatorStr, ok := operator.(string); ok {
			return operatorStr, true
		}
	}
	return "", false
}
