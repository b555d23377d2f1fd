package main

import (
	"fmt"

	"github.com/Lin-Jiong-HDU/tadash/internal/core"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/background"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/execution"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/security"
	"github.com/Lin-Jiong-HDU/tadash/internal/core/shell"
	"github.com/Lin-Jiong-HDU/tadash/internal/logger"
	"github.com/Lin-Jiong-HDU/tadash/internal/storage"
)

// app is the execution stack shared by exec, shell and mcp.
type app struct {
	cfg        *storage.Config
	log        *logger.Logger
	session    *storage.Session
	registry   *background.Registry
	controller *execution.Controller
}

// newApp wires executor, registry and controller. With persist set the
// session directory is created and registry snapshots are written to it.
func newApp(cfg *storage.Config, log *logger.Logger, notifier execution.Notifier, persist bool) (*app, error) {
	session, err := storage.NewSession()
	if err != nil {
		return nil, err
	}

	executor := shell.NewExecutor(cfg.Shell.Engine(), log)
	opts := []background.Option{background.WithLogger(log)}
	if persist {
		if err := session.Save(); err != nil {
			return nil, fmt.Errorf("failed to start session: %w", err)
		}
		opts = append(opts, background.WithStore(session.TaskStore()))
	}
	registry := background.NewRegistry(executor.Terminator(), opts...)

	return &app{
		cfg:        cfg,
		log:        log,
		session:    session,
		registry:   registry,
		controller: execution.NewController(executor, registry, notifier, cfg.Shell.Controller(), log),
	}, nil
}

func (a *app) engine(policy *security.SecurityPolicy, approver security.Approver, opts ...core.EngineOption) *core.Engine {
	opts = append([]core.EngineOption{
		core.WithSessionID(a.session.ID),
		core.WithLogger(a.log),
	}, opts...)
	return core.NewEngine(a.controller, policy, approver, opts...)
}
