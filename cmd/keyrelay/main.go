package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/keyrelay/keyrelay/internal/apperr"
	"github.com/keyrelay/keyrelay/internal/command"
	"github.com/keyrelay/keyrelay/internal/config"
	"github.com/urfave/cli/v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newCLI().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", userMessage(err))
		os.Exit(1)
	}
}

// session loads config and opens the store the first time a command needs them.
type session struct {
	app *app
}

func (s *session) open(c *cli.Context) (*app, error) {
	if s.app != nil {
		return s.app, nil
	}
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	a, err := newApp(cfg)
	if err != nil {
		return nil, err
	}
	s.app = a
	return a, nil
}

func (s *session) action(fn func(c *cli.Context, a *app) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := s.open(c)
		if err != nil {
			return err
		}
		return fn(c, a)
	}
}

func (s *session) close() error {
	if s.app == nil {
		return nil
	}
	err := s.app.Close()
	s.app = nil
	return err
}

func newCLI() *cli.App {
	sess := &session{}
	return &cli.App{
		Name:  "keyrelay",
		Usage: "keep device keys sealed under a PIN and send signed commands through a relay",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "path to config file",
				EnvVars: []string{"KEYRELAY_CONFIG"},
			},
		},
		After: func(c *cli.Context) error {
			return sess.close()
		},
		Commands: []*cli.Command{
			deviceCommand(sess),
			sendCommand(sess),
			statusCommand(sess),
			serveCommand(sess),
		},
	}
}

func pinFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "pin",
		Usage:   "6 digit PIN",
		EnvVars: []string{"KEYRELAY_PIN"},
	}
}

// userMessage prints only the user-facing part of service errors.
func userMessage(err error) string {
	var appErr *apperr.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}

func actionNames() []string {
	names := make([]string, 0, len(command.Actions()))
	for _, a := range command.Actions() {
		names = append(names, a.String())
	}
	return names
}
