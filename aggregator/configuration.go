// SPDX-License-Identifier: GPL-3.0-or-later
package aggregator

import (
	"fmt"
	"time"

	"github.com/CrawX/go-imap-onebox/mailbox"
)

const (
	DefaultPollInterval = 5 * time.Minute
	DefaultEventBuffer  = 64
)

type ConfigFunc func(c *configuration) error

// PollInterval sets how often every connection is asked to reconcile its
// folders regardless of server notifications.
func PollInterval(interval time.Duration) ConfigFunc {
	return func(c *configuration) error {
		if interval <= 0 {
			return fmt.Errorf("PollInterval must be positive")
		}

		c.PollInterval = interval
		return nil
	}
}

func EventBuffer(size int) ConfigFunc {
	return func(c *configuration) error {
		if size < 0 {
			return fmt.Errorf("EventBuffer cannot be negative")
		}

		c.EventBuffer = size
		return nil
	}
}

// ActionDialer is used for the short-lived sessions that change messages
// on the server.
func ActionDialer(dial mailbox.Dialer) ConfigFunc {
	return func(c *configuration) error {
		if dial == nil {
			return fmt.Errorf("ActionDialer cannot be null")
		}

		c.Dial = dial
		return nil
	}
}

type configuration struct {
	PollInterval time.Duration
	EventBuffer  int

	Dial mailbox.Dialer
}

func defaultConfiguration() *configuration {
	return &configuration{
		PollInterval: DefaultPollInterval,
		EventBuffer:  DefaultEventBuffer,
	}
}
