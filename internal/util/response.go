package util

import (
	"errors"
	"net/http"
	"strings"

	"quiz_backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 错误响应结构，成功响应直接返回数据本身
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, data)
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, message)
}

func InternalServerError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "Server Error")
}

func LogInternalError(c *gin.Context, err error) {
	logger.Log.Error("Internal server error",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)
	InternalServerError(c)
}

// HandleError 按错误类型映射状态码：ErrInvalidInput -> 400，ErrQuizNotFound -> 404，其余 500
func HandleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		BadRequest(c, invalidInputMessage(err))
	case errors.Is(err, ErrQuizNotFound):
		NotFound(c, "Quiz not found")
	default:
		LogInternalError(c, err)
	}
}

func invalidInputMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), ErrInvalidInput.Error()+": ")
	if msg == "" {
		return ErrInvalidInput.Error()
	}
	return msg
}
