package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 协议层错误响应体
// 仅用于非 200 状态码；业务失败通过各接口响应体内的 error 字段报告
type ErrorResponse struct {
	Error string `json:"error"`
}

// BadRequest 400 错误响应
func BadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// NotFound 404 错误响应
func NotFound(c *gin.Context, msg string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: msg})
}

// InternalServerError 500 错误响应
func InternalServerError(c *gin.Context, msg string) {
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: msg})
}
