package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/Babadzakkkich/project-manager/internal/apperr"
	"github.com/Babadzakkkich/project-manager/internal/middleware"
	"github.com/gin-gonic/gin"
)

// Response helpers

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

func SuccessPaged(c *gin.Context, list interface{}, total int64, page, pageSize int) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data": gin.H{
			"list":      list,
			"total":     total,
			"page":      page,
			"page_size": pageSize,
		},
	})
}

func Error(c *gin.Context, httpCode int, code int, message string) {
	c.JSON(httpCode, gin.H{
		"code":    code,
		"message": message,
		"data":    nil,
	})
}

func BadRequest(c *gin.Context, code int, message string) {
	Error(c, http.StatusBadRequest, code, message)
}

// Fail maps a service error onto the response envelope. Unknown errors
// are logged with the request id and reported as internal.
func Fail(c *gin.Context, err error) {
	var e *apperr.Error
	if errors.As(err, &e) {
		if e.Kind == apperr.KindInternal {
			log.Printf("[%s] internal error: %v", middleware.GetRequestID(c), err)
		}
		Error(c, e.HTTPStatus(), e.Code, e.Message)
		return
	}
	log.Printf("[%s] unexpected error: %v", middleware.GetRequestID(c), err)
	Error(c, http.StatusInternalServerError, apperr.CodeInternal, "internal error")
}

func parseID(s string) uint {
	id, _ := strconv.ParseUint(s, 10, 64)
	return uint(id)
}

func parsePage(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	return page, pageSize
}
