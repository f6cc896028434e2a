// SPDX-License-Identifier: GPL-3.0-or-later
package api

import (
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// streamUpdates writes every live update to the websocket until the client
// goes away or the hub closes the subscription.
func (s *Server) streamUpdates(c *websocket.Conn) {
	id, updates := s.live.Subscribe()
	defer s.live.Unsubscribe(id)

	l := s.l.WithFields(logrus.Fields{"subscriber": id, "remote": c.RemoteAddr().String()})
	l.Debug("Websocket connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			l.Debug("Websocket disconnected")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := c.WriteJSON(update); err != nil {
				l.WithField("error", err).Debug("Could not write update")
				return
			}
		}
	}
}
