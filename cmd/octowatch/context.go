package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"octowatch/internal/api"
	"octowatch/internal/config"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) withClient(fn func(*api.Client) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	client, err := api.NewClient(cfg.APIBaseURL(), cfg.Paths.APIToken)
	if err != nil {
		return err
	}
	return wrapDialError(fn(client), cfg.Paths.APIBind)
}

func wrapDialError(err error, bind string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: %s refused the connection; start it with `octowatch daemon`", bind)
	case api.IsUnauthorized(err):
		return fmt.Errorf("connect to daemon: token rejected; check paths.api_token")
	default:
		return err
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
