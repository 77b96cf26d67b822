package handler

import (
	"net/http"
	"strconv"

	"marketplace/internal/domain/model"
	"marketplace/internal/middleware"
	"marketplace/internal/usecase"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Message string `json:"message"`
}

type DataResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
}

type ListResponse struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total"`
	Page   int         `json:"page"`
	Limit  int         `json:"limit"`
}

func success(c echo.Context, code int, data interface{}) error {
	return c.JSON(code, DataResponse{Status: "success", Data: data})
}

func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= http.StatusInternalServerError {
			log.WithFields(log.Fields{
				"code":  he.Code,
				"path":  c.Path(),
				"error": he.Err,
			}).Error(he.Message)
		}
		return c.JSON(he.Status, ErrorResponse{Message: he.Message})
	}

	//500
	log.WithField("path", c.Path()).WithError(err).Error("unhandled error")
	return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "internal error"})
}

// AuthJWT が入れた id / role
func getActorFromContext(c echo.Context) (usecase.Actor, bool) {
	id, ok := c.Get(middleware.CtxUserIDKey).(int64)
	if !ok || id <= 0 {
		return usecase.Actor{}, false
	}
	role, ok := c.Get(middleware.CtxUserRoleKey).(model.Role)
	if !ok {
		return usecase.Actor{}, false
	}
	return usecase.Actor{ID: id, Role: role}, true
}

func parseID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// page / limit は数値だけ確認（範囲は usecase）
func parsePage(c echo.Context) (int, int, bool) {
	var page, limit int
	if v := c.QueryParam("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		page = p
	}
	if v := c.QueryParam("limit"); v != "" {
		l, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, false
		}
		limit = l
	}
	return page, limit, true
}
