package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"uk.co.dudmesh.liveusers/internal/broadcast"
	"uk.co.dudmesh.liveusers/internal/model"
	"uk.co.dudmesh.liveusers/internal/service/user"
)

type UserService interface {
	Create(ctx context.Context, params *model.CreateUserParams) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Fetch(ctx context.Context, id model.UserID) (*model.User, error)
	Login(ctx context.Context, params *model.LoginParams) (*user.LoginResult, error)
}

type PresenceRouter interface {
	Connect(ctx context.Context, conn broadcast.Subscriber) error
	Refresh(ctx context.Context, conn broadcast.Subscriber) error
	Announce(conn broadcast.Subscriber, params *model.AnnounceLoginParams) (model.PresenceEntry, error)
	Disconnect(connection string)
	Logout(userID model.UserID) (model.PresenceEntry, error)
}

type Reconciler interface {
	Sync(ctx context.Context) []model.PresenceEntry
}

type Counter interface {
	Len() int
}

type errorResponse struct {
	Message string             `json:"message"`
	Error   string             `json:"error,omitempty"`
	Fields  []model.FieldError `json:"fields,omitempty"`
}

func fail(c echo.Context, status int, message string, err error) error {
	res := errorResponse{Message: message}
	if err != nil {
		res.Error = err.Error()
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			res.Error = verr.Error()
			res.Fields = verr.Fields
		}
	}
	return c.JSON(status, res)
}

func Liveness() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.String(http.StatusOK, "Server is working")
	}
}
