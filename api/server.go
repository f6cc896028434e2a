// SPDX-License-Identifier: GPL-3.0-or-later
package api

import (
	"context"
	"errors"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/log"
	"github.com/CrawX/go-imap-onebox/pipeline"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultRequestsPerMinute = 120

// Sync is the part of the aggregator the API drives.
type Sync interface {
	AddAccount(ctx context.Context, account *domain.Account) (int64, error)
	States() map[int64]domain.ConnectionState
	RemoveFromServer(ctx context.Context, id string) error
	MoveOnServer(ctx context.Context, id string, folder string) error
}

type Messages interface {
	SetFlags(ctx context.Context, id string, flags domain.MessageFlags) error
	Health(ctx context.Context) []pipeline.ComponentHealth
}

type Subscriptions interface {
	Subscribe() (uuid.UUID, <-chan domain.LiveUpdate)
	Unsubscribe(id uuid.UUID)
}

type Server struct {
	app      *fiber.App
	store    domain.Store
	sync     Sync
	messages Messages
	live     Subscriptions

	l *logrus.Logger
}

func NewServer(store domain.Store, sync Sync, messages Messages, live Subscriptions, requestsPerMinute int) *Server {
	s := &Server{
		store:    store,
		sync:     sync,
		messages: messages,
		live:     live,
		l:        log.Logger(log.LOG_API),
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(s.requestLogger)

	s.app.Get("/health", s.health)

	api := s.app.Group("/api", RateLimiter(requestsPerMinute, time.Minute))
	api.Get("/accounts", s.listAccounts)
	api.Post("/accounts", s.addAccount)
	api.Get("/messages", s.listMessages)
	api.Get("/messages/:id", s.getMessage)
	api.Patch("/messages/:id", s.setFlags)
	api.Delete("/messages/:id", s.deleteMessage)
	api.Post("/messages/:id/move", s.moveMessage)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws", websocket.New(s.streamUpdates))

	return s
}

func (s *Server) Listen(addr string) error {
	s.l.WithField("address", addr).Info("Listening")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
	case errors.Is(err, domain.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, domain.ErrInvalidFilter):
		code = fiber.StatusBadRequest
	}

	message := err.Error()
	if code >= fiber.StatusInternalServerError {
		s.l.WithFields(logrus.Fields{"method": c.Method(), "path": c.Path(), "error": err}).Error("Request failed")
		message = utils.StatusMessage(code)
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	if err != nil {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			status = fiberErr.Code
		}
	}

	s.l.WithFields(logrus.Fields{
		"method":   c.Method(),
		"path":     c.Path(),
		"status":   status,
		"duration": time.Since(start),
	}).Debug("Handled request")
	return err
}
