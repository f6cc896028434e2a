// SPDX-License-Identifier: GPL-3.0-or-later
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Database      DatabaseConfig
	Server        ServerConfig
	Sync          SyncConfig
	Classifier    ClassifierConfig
	Elasticsearch ElasticsearchConfig
	SemanticStore SemanticStoreConfig
	Slack         SinkConfig
	Webhook       SinkConfig

	Account []AccountConfig

	Loglevel *string
}

type DatabaseConfig struct {
	// Driver is either sqlite3 or pgx
	Driver     string
	Datasource string
}

type ServerConfig struct {
	Listen         string
	RequestsPerMin int
}

type SyncConfig struct {
	PollInterval   time.Duration
	ReconnectDelay time.Duration
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	AuthTimeout    time.Duration
	LookbackDays   int
	MaxBatch       int
}

type ClassifierConfig struct {
	Endpoint     string
	Model        string
	ApiKey       string
	Timeout      time.Duration
	DefaultLabel string

	SpamassassinHost string

	RspamdController string
	RspamdPassword   string
}

type ElasticsearchConfig struct {
	Addresses []string
	Username  string
	Password  string
	Index     string
}

type SemanticStoreConfig struct {
	Endpoint   string
	ApiKey     string
	Collection string
}

type SinkConfig struct {
	Url    string
	Labels []string
}

type AccountConfig struct {
	Name     string
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	Folders  []string
	Active   bool
}

func defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:     "sqlite3",
			Datasource: "onebox.db",
		},
		Server: ServerConfig{
			Listen:         ":8080",
			RequestsPerMin: 120,
		},
		Sync: SyncConfig{
			PollInterval:   5 * time.Minute,
			ReconnectDelay: 30 * time.Second,
			KeepAlive:      5 * time.Minute,
			ConnectTimeout: 30 * time.Second,
			AuthTimeout:    30 * time.Second,
			LookbackDays:   30,
			MaxBatch:       50,
		},
		Classifier: ClassifierConfig{
			Timeout:      20 * time.Second,
			DefaultLabel: "Uncategorized",
		},
		Elasticsearch: ElasticsearchConfig{
			Index: "emails",
		},
		SemanticStore: SemanticStoreConfig{
			Collection: "emails",
		},
		Slack: SinkConfig{
			Labels: []string{"Interested"},
		},
		Webhook: SinkConfig{
			Labels: []string{"Interested"},
		},
	}
}

func ReadConfig(filename string) (*Config, error) {
	config := defaults()

	_, err := toml.DecodeFile(filename, config)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.Database.Driver != "sqlite3" && c.Database.Driver != "pgx" {
		return fmt.Errorf("Database.Driver must be sqlite3 or pgx, got %q", c.Database.Driver)
	}
	if err := validateNonEmptyStringField(c.Database.Datasource, "Database.Datasource must not be empty, set to a sqlite filename or a postgres connection string"); err != nil {
		return err
	}

	if err := validateNonEmptyStringField(c.Server.Listen, "Server.Listen must not be empty, set to host:port to listen on"); err != nil {
		return err
	}
	if c.Server.RequestsPerMin <= 0 {
		return errors.New("Server.RequestsPerMin must be positive")
	}

	if c.Sync.PollInterval <= 0 || c.Sync.ReconnectDelay <= 0 || c.Sync.KeepAlive <= 0 {
		return errors.New("Sync.PollInterval, Sync.ReconnectDelay and Sync.KeepAlive must be positive durations")
	}
	if c.Sync.ConnectTimeout <= 0 || c.Sync.AuthTimeout <= 0 {
		return errors.New("Sync.ConnectTimeout and Sync.AuthTimeout must be positive durations")
	}
	if c.Sync.LookbackDays < 0 {
		return errors.New("Sync.LookbackDays must not be negative")
	}
	if c.Sync.MaxBatch <= 0 {
		return errors.New("Sync.MaxBatch must be positive")
	}

	if err := validateNonEmptyStringField(c.Classifier.DefaultLabel, "Classifier.DefaultLabel must not be empty"); err != nil {
		return err
	}
	if len(strings.TrimSpace(c.Classifier.Endpoint)) > 0 {
		if err := validateNonEmptyStringField(c.Classifier.Model, "Classifier.Model must be set if Classifier.Endpoint is set"); err != nil {
			return err
		}
	}
	if c.Classifier.Timeout <= 0 {
		return errors.New("Classifier.Timeout must be a positive duration")
	}

	spamassassinSet := len(strings.TrimSpace(c.Classifier.SpamassassinHost)) > 0
	rspamdSet := len(strings.TrimSpace(c.Classifier.RspamdController)) > 0
	if rspamdSet && spamassassinSet {
		return fmt.Errorf("Classifier.SpamassassinHost and Classifier.RspamdController cannot be set at the same time")
	}
	if rspamdSet {
		if err := validateNonEmptyStringField(c.Classifier.RspamdPassword, "Classifier.RspamdPassword must be set if Classifier.RspamdController is set"); err != nil {
			return err
		}
	}

	if len(c.Elasticsearch.Addresses) > 0 {
		if err := validateNonEmptyStringField(c.Elasticsearch.Index, "Elasticsearch.Index must not be empty"); err != nil {
			return err
		}
	}
	if len(strings.TrimSpace(c.SemanticStore.Endpoint)) > 0 {
		if err := validateNonEmptyStringField(c.SemanticStore.Collection, "SemanticStore.Collection must be set if SemanticStore.Endpoint is set"); err != nil {
			return err
		}
	}

	names := map[string]bool{}
	for i, a := range c.Account {
		if err := validateNonEmptyStringField(a.Name, fmt.Sprintf("Account %d: Name must not be empty", i)); err != nil {
			return err
		}
		if names[a.Name] {
			return fmt.Errorf("Account %s configured more than once", a.Name)
		}
		names[a.Name] = true
	}

	return nil
}

func validateNonEmptyStringField(field string, err string) error {
	if len(strings.TrimSpace(field)) == 0 {
		return errors.New(err)
	}

	return nil
}
