// SPDX-License-Identifier: GPL-3.0-or-later
package domain

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

const DefaultFolder = "INBOX"

type Account struct {
	Id       int64    `json:"id"`
	Name     string   `json:"name"`
	Host     string   `json:"host"`
	Port     int      `json:"port"`
	TLS      bool     `json:"tls"`
	Username string   `json:"username"`
	Password string   `json:"-"`
	Folders  []string `json:"folders"`
	Active   bool     `json:"active"`
}

func (a *Account) Address() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// WatchedFolders returns the configured folders, INBOX if none are configured. The first
// folder is the one kept in IDLE.
func (a *Account) WatchedFolders() []string {
	if len(a.Folders) == 0 {
		return []string{DefaultFolder}
	}
	return a.Folders
}

func (a *Account) Validate() error {
	if len(strings.TrimSpace(a.Name)) == 0 {
		return errors.New("account name must not be empty")
	}
	if len(strings.TrimSpace(a.Host)) == 0 {
		return errors.New("account host must not be empty")
	}
	if a.Port <= 0 || a.Port > 65535 {
		return fmt.Errorf("account port %d out of range", a.Port)
	}
	if len(strings.TrimSpace(a.Username)) == 0 {
		return errors.New("account username must not be empty")
	}
	if len(a.Password) == 0 {
		return errors.New("account password must not be empty")
	}
	for _, f := range a.Folders {
		if len(strings.TrimSpace(f)) == 0 {
			return errors.New("account folders must not contain empty names")
		}
	}

	return nil
}

type ConnectionState int

const (
	Disconnected = ConnectionState(iota)
	Connecting
	Ready
	Watching
	Fetching
	ReconnectPending
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Ready:
		return "ready"
	case Watching:
		return "watching"
	case Fetching:
		return "fetching"
	case ReconnectPending:
		return "reconnect-pending"
	}
	return "unknown"
}

func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
