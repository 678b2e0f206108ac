package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.liveusers/internal/model"
)

type loginResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
	Token   string      `json:"token,omitempty"`
}

func Login(userService UserService) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &model.LoginParams{}
		if err := c.Bind(params); err != nil {
			return fail(c, http.StatusBadRequest, "Invalid request", err)
		}
		result, err := userService.Login(c.Request().Context(), params)
		if err != nil {
			if errors.Is(err, model.ErrorInvalidCredentials) {
				return fail(c, http.StatusUnauthorized, "Invalid credentials", nil)
			}
			return fail(c, http.StatusInternalServerError, "Login failed", err)
		}
		return c.JSON(http.StatusOK, loginResponse{
			Message: "Login successful",
			User:    result.User,
			Token:   result.Token,
		})
	}
}

func Logout(router PresenceRouter) echo.HandlerFunc {
	return func(c echo.Context) error {
		params := &model.LogoutParams{}
		if err := c.Bind(params); err != nil {
			return fail(c, http.StatusBadRequest, "Invalid request", err)
		}
		if params.UserID == "" {
			return fail(c, http.StatusBadRequest, "User not found", nil)
		}
		if _, err := router.Logout(params.UserID); err != nil {
			if errors.Is(err, model.ErrorUserNotFound) {
				return fail(c, http.StatusBadRequest, "User not found", nil)
			}
			return fail(c, http.StatusInternalServerError, "Logout failed", err)
		}
		return c.JSON(http.StatusOK, map[string]string{"message": "Logout successful"})
	}
}
