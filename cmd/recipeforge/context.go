package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"recipeforge/internal/client"
	"recipeforge/internal/config"
)

type globalFlags struct {
	config string
	api    string
	token  string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// apiClient builds a client from the flags, falling back to the config.
func (c *commandContext) apiClient() *client.Client {
	baseURL := strings.TrimSpace(c.flags.api)
	token := strings.TrimSpace(c.flags.token)
	if cfg := c.configValue(); cfg != nil {
		if baseURL == "" {
			baseURL = cfg.APIBaseURL()
		}
		if token == "" {
			token = cfg.API.Token
		}
	}
	return client.New(baseURL, token)
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
