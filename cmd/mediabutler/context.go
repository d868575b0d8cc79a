package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"mediabutler/internal/config"
	"mediabutler/internal/daemonrun"
	"mediabutler/internal/files"
	"mediabutler/internal/fsx"
	"mediabutler/internal/ipc"
	"mediabutler/internal/logging"
	"mediabutler/internal/paths"
	"mediabutler/internal/store"
)

type commandContext struct {
	socketFlag *string
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(socketFlag, configFlag *string) *commandContext {
	return &commandContext{
		socketFlag: socketFlag,
		configFlag: configFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
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

func (c *commandContext) socketPath() string {
	if c.socketFlag != nil && strings.TrimSpace(*c.socketFlag) != "" {
		return *c.socketFlag
	}
	return daemonrun.SocketPath(c.configValue())
}

// withClient runs fn against the daemon and fails when it is offline.
func (c *commandContext) withClient(fn func(*ipc.Client) error) error {
	client, err := ipc.Dial(c.socketPath())
	if err != nil {
		return wrapDialError(err, c.socketPath())
	}
	defer client.Close()
	return fn(client)
}

// withFiles runs fn against the daemon when it answers on the socket, and
// otherwise against the store directly. Exactly one of client and svc is
// non-nil.
func (c *commandContext) withFiles(fn func(client *ipc.Client, svc *files.Service) error) error {
	client, err := ipc.Dial(c.socketPath())
	if err == nil {
		defer client.Close()
		return fn(client, nil)
	}
	if !isDialRefused(err) {
		return wrapDialError(err, c.socketPath())
	}

	cfg, cfgErr := c.ensureConfig()
	if cfgErr != nil {
		return cfgErr
	}
	st, openErr := store.Open(cfg)
	if openErr != nil {
		return fmt.Errorf("open store: %w", openErr)
	}
	defer st.Close()
	builder := paths.NewBuilder(fsx.OS{}, cfg.Paths.LibraryRoot)
	svc := files.NewService(cfg, st, fsx.OS{}, builder, logging.NewNop())
	return fn(nil, svc)
}

func isDialRefused(err error) bool {
	return errors.Is(err, syscall.ENOENT) ||
		os.IsNotExist(err) ||
		errors.Is(err, syscall.ECONNREFUSED)
}

func wrapDialError(err error, socket string) error {
	switch {
	case errors.Is(err, syscall.ENOENT) || os.IsNotExist(err):
		return fmt.Errorf("connect to daemon: socket %s not found; start the daemon with `mediabutler start`", socket)
	case errors.Is(err, syscall.ECONNREFUSED):
		return fmt.Errorf("connect to daemon: socket %s refused the connection; verify the daemon is running", socket)
	default:
		return fmt.Errorf("connect to daemon: %w", err)
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
