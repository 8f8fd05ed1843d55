package command

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/collabiora/companion/internal/api"
	"github.com/collabiora/companion/internal/config"
	"github.com/collabiora/companion/internal/session"
	"github.com/collabiora/companion/internal/types"
)

// Context carries everything a command needs: config, logger, and the
// session store. Built once per invocation.
type Context struct {
	Config   *config.Config
	Logger   *zap.Logger
	Sessions *session.Store
	JSONMode bool
}

// GetContext assembles the command context from flags, config layers, and
// local state.
func GetContext(cmd *cobra.Command) (*Context, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if dir, _ := cmd.Flags().GetString("state-dir"); dir != "" {
		cfg.StateDir = dir
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Debug = true
	}
	jsonMode, _ := cmd.Flags().GetBool("json")

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return nil, err
	}

	sessions, err := session.Open(cfg.StateDir)
	if err != nil {
		return nil, err
	}

	return &Context{
		Config:   cfg,
		Logger:   logger,
		Sessions: sessions,
		JSONMode: jsonMode,
	}, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zapConfig.Build()
}

// RequireSession returns the active session or a sign-in hint.
func (c *Context) RequireSession() (types.Session, error) {
	sess, err := c.Sessions.Current()
	if err != nil {
		return types.Session{}, fmt.Errorf("not logged in. Run '%s login' first", AppName)
	}
	return sess, nil
}

// APIClient builds a backend client with the session token, or without
// one when no session exists.
func (c *Context) APIClient() (*api.Client, error) {
	token := ""
	if sess, err := c.Sessions.Current(); err == nil {
		token = sess.Token
	}
	return api.NewClient(c.Config.APIBaseURL, token)
}
