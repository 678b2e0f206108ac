package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/nrednav/cuid2"
	"uk.co.dudmesh.liveusers/internal/broadcast"
	"uk.co.dudmesh.liveusers/internal/model"
)

type Hub interface {
	Register(c broadcast.Subscriber)
	Unregister(c broadcast.Subscriber)
}

// Socket upgrades to a websocket, registers the connection with the hub and
// feeds its events to the presence router until it drops.
func Socket(hub Hub, router PresenceRouter, logger *log.Logger) echo.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			logger.Errorf("websocket upgrade failed: %+v", err)
			return nil
		}

		ctx := c.Request().Context()
		client := broadcast.NewClient(cuid2.Generate(), conn, logger)
		hub.Register(client)
		defer func() {
			hub.Unregister(client)
			client.Close()
			router.Disconnect(client.ID())
		}()

		if err := router.Connect(ctx, client); err != nil {
			logger.Warnf("connecting %s: %+v", client.ID(), err)
		}

		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return nil
			}

			event, err := broadcast.Decode(raw)
			if err != nil {
				logger.Warnf("bad event from %s: %+v", client.ID(), err)
				continue
			}

			switch event.Name {
			case model.EventAnnounceLogin:
				params, err := announceParams(event.Data)
				if err != nil {
					logger.Warnf("bad %s from %s: %+v", event.Name, client.ID(), err)
					continue
				}
				if _, err := router.Announce(client, params); err != nil {
					logger.Warnf("announce from %s: %+v", client.ID(), err)
				}
			case model.EventRefreshUsers:
				if err := router.Refresh(ctx, client); err != nil {
					logger.Warnf("refresh for %s: %+v", client.ID(), err)
				}
			default:
				logger.Warnf("unknown event %q from %s", event.Name, client.ID())
			}
		}
	}
}

// announceParams accepts either {"userId": ..., "token": ...} or a bare id string.
func announceParams(data json.RawMessage) (*model.AnnounceLoginParams, error) {
	params := &model.AnnounceLoginParams{}
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		params.UserID = model.UserID(id)
		return params, nil
	}
	if err := json.Unmarshal(data, params); err != nil {
		return nil, err
	}
	return params, nil
}
