package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.liveusers/internal/model"
)

func CreateUser(userService UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &model.CreateUserParams{}
		if err := c.Bind(params); err != nil {
			return fail(c, http.StatusBadRequest, "failed to create user", err)
		}
		_, err := userService.Create(c.Request().Context(), params)
		if err != nil {
			return fail(c, http.StatusBadRequest, "failed to create user", err)
		}
		return c.JSON(http.StatusCreated, map[string]string{"message": "user created"})
	}
}

func ListUsers(userService UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		users, err := userService.List(c.Request().Context())
		if err != nil {
			return fail(c, http.StatusInternalServerError, "Failed to retrieve users", err)
		}
		return c.JSON(http.StatusOK, users)
	}
}

func GetUser(userService UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := userService.Fetch(c.Request().Context(), model.UserID(c.Param("id")))
		if err != nil {
			if errors.Is(err, model.ErrorUserNotFound) {
				return fail(c, http.StatusNotFound, "User not found", nil)
			}
			return fail(c, http.StatusInternalServerError, "Failed to retrieve user", err)
		}
		return c.JSON(http.StatusOK, user)
	}
}

type syncResponse struct {
	Message    string `json:"message"`
	TotalUsers int    `json:"totalUsers"`
}

// SyncUsers runs a reconciliation pass on demand. Store failures are absorbed
// by the pass itself and show up as zero synced users.
func SyncUsers(engine Reconciler, cache Counter) echo.HandlerFunc {
	return func(c echo.Context) error {
		entries := engine.Sync(c.Request().Context())
		return c.JSON(http.StatusOK, syncResponse{
			Message:    fmt.Sprintf("Synced %d users", len(entries)),
			TotalUsers: cache.Len(),
		})
	}
}
