// SPDX-License-Identifier: GPL-3.0-or-later
package api

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/CrawX/go-imap-onebox/domain"
	"github.com/CrawX/go-imap-onebox/pipeline"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type healthResponse struct {
	Status     string                     `json:"status"`
	Components []pipeline.ComponentHealth `json:"components"`
	Accounts   map[string]string          `json:"accounts"`
	Time       string                     `json:"time"`
}

func (s *Server) health(c *fiber.Ctx) error {
	response := healthResponse{
		Status:     "ok",
		Components: s.messages.Health(c.UserContext()),
		Accounts:   map[string]string{},
		Time:       time.Now().UTC().Format(time.RFC3339),
	}
	for id, state := range s.sync.States() {
		response.Accounts[strconv.FormatInt(id, 10)] = state.String()
	}

	status := fiber.StatusOK
	for _, component := range response.Components {
		if !component.Healthy {
			response.Status = "degraded"
			status = fiber.StatusServiceUnavailable
		}
	}

	return c.Status(status).JSON(response)
}

type accountResponse struct {
	*domain.Account
	State string `json:"state"`
}

func (s *Server) listAccounts(c *fiber.Ctx) error {
	accounts, err := s.store.ListAccounts(c.UserContext())
	if err != nil {
		return err
	}

	states := s.sync.States()
	response := []accountResponse{}
	for _, a := range accounts {
		response = append(response, accountResponse{Account: a, State: states[a.Id].String()})
	}

	return c.JSON(response)
}

type accountRequest struct {
	Name     string   `json:"name"`
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	TLS      *bool    `json:"tls"`
	Username string   `json:"username"`
	Password string   `json:"password"`
	Folders  []string `json:"folders"`
	Active   *bool    `json:"active"`
}

func (r *accountRequest) toDomain() *domain.Account {
	a := &domain.Account{
		Name:     strings.TrimSpace(r.Name),
		Host:     strings.TrimSpace(r.Host),
		Port:     r.Port,
		TLS:      true,
		Username: strings.TrimSpace(r.Username),
		Password: r.Password,
		Folders:  r.Folders,
		Active:   true,
	}
	if r.TLS != nil {
		a.TLS = *r.TLS
	}
	if r.Active != nil {
		a.Active = *r.Active
	}
	if a.Port == 0 {
		a.Port = 993
		if !a.TLS {
			a.Port = 143
		}
	}
	return a
}

func (s *Server) addAccount(c *fiber.Ctx) error {
	request := accountRequest{}
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("could not parse account: %v", err))
	}

	account := request.toDomain()
	if err := account.Validate(); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	_, err := s.store.FindAccountByName(c.UserContext(), account.Name)
	if err == nil {
		return fiber.NewError(fiber.StatusConflict, fmt.Sprintf("account %s already exists", account.Name))
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	id, err := s.sync.AddAccount(c.UserContext(), account)
	if err != nil {
		return err
	}

	s.l.WithFields(logrus.Fields{"id": id, "name": account.Name, "active": account.Active}).Info("Added account")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
}

func (s *Server) listMessages(c *fiber.Ctx) error {
	opts := []domain.FilterOption{}

	if account := c.Query("account"); len(account) > 0 {
		id, err := strconv.ParseInt(account, 10, 64)
		if err != nil {
			return fmt.Errorf("%w: account must be a number", domain.ErrInvalidFilter)
		}
		opts = append(opts, domain.ForAccount(id))
	}
	if folder := c.Query("folder"); len(folder) > 0 {
		opts = append(opts, domain.InFolder(folder))
	}
	if category := c.Query("category"); len(category) > 0 {
		opts = append(opts, domain.WithCategory(category))
	}

	since, err := parseDate(c.Query("since"))
	if err != nil {
		return err
	}
	until, err := parseDate(c.Query("until"))
	if err != nil {
		return err
	}
	if !since.IsZero() || !until.IsZero() {
		opts = append(opts, domain.Between(since, until))
	}

	filter, err := domain.NewMessageFilter(opts...)
	if err != nil {
		return err
	}

	page := domain.NewPage(c.QueryInt("page", 1), c.QueryInt("pageSize", domain.DefaultPageSize))
	result, err := s.store.ListMessages(c.UserContext(), filter, page)
	if err != nil {
		return err
	}

	return c.JSON(result)
}

// parseDate accepts RFC 3339 timestamps and plain dates.
func parseDate(value string) (time.Time, error) {
	if len(value) == 0 {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: could not parse date %q", domain.ErrInvalidFilter, value)
}

func (s *Server) getMessage(c *fiber.Ctx) error {
	message, err := s.store.GetMessage(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(message)
}

func (s *Server) setFlags(c *fiber.Ctx) error {
	flags := domain.MessageFlags{}
	if err := c.BodyParser(&flags); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("could not parse flags: %v", err))
	}
	if flags.Read == nil && flags.Important == nil {
		return fiber.NewError(fiber.StatusBadRequest, "no flags given")
	}

	err := s.messages.SetFlags(c.UserContext(), c.Params("id"), flags)
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) deleteMessage(c *fiber.Ctx) error {
	err := s.sync.RemoveFromServer(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type moveRequest struct {
	Folder string `json:"folder"`
}

func (s *Server) moveMessage(c *fiber.Ctx) error {
	request := moveRequest{}
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("could not parse move request: %v", err))
	}
	if len(strings.TrimSpace(request.Folder)) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "folder must not be empty")
	}

	err := s.sync.MoveOnServer(c.UserContext(), c.Params("id"), request.Folder)
	if err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
