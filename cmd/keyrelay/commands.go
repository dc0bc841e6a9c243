package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/keyrelay/keyrelay/internal/model"
	"github.com/keyrelay/keyrelay/internal/server"
	"github.com/keyrelay/keyrelay/internal/service"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

func deviceCommand(sess *session) *cli.Command {
	return &cli.Command{
		Name:  "device",
		Usage: "manage registered devices",
		Subcommands: []*cli.Command{
			{
				Name:  "add",
				Usage: "register a device from its private key",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true, Usage: "device name"},
					&cli.StringFlag{Name: "relay", Required: true, Usage: "relay base URL"},
					&cli.StringFlag{Name: "key", Usage: "hex private key", EnvVars: []string{"KEYRELAY_PRIVATE_KEY"}},
					pinFlag(),
				},
				Action: sess.action(func(c *cli.Context, a *app) error {
					device, err := a.devices.Register(c.Context, service.RegisterRequest{
						Name:       c.String("name"),
						RelayURL:   c.String("relay"),
						PrivateKey: c.String("key"),
						PIN:        c.String("pin"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "registered %s\n%s\n", device.DeviceName, device.Pubkey)
					return nil
				}),
			},
			{
				Name:      "edit",
				Usage:     "rename a device or change its relay",
				ArgsUsage: "<pubkey>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Usage: "new device name"},
					&cli.StringFlag{Name: "relay", Usage: "new relay base URL"},
				},
				Action: sess.action(func(c *cli.Context, a *app) error {
					pubkey, err := pubkeyArg(c)
					if err != nil {
						return err
					}
					var req service.EditRequest
					if c.IsSet("name") {
						name := c.String("name")
						req.Name = &name
					}
					if c.IsSet("relay") {
						relay := c.String("relay")
						req.RelayURL = &relay
					}
					device, err := a.devices.Edit(c.Context, pubkey, req)
					if err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "updated %s\n", device.DeviceName)
					return nil
				}),
			},
			{
				Name:      "rm",
				Usage:     "remove a device",
				ArgsUsage: "<pubkey>",
				Action: sess.action(func(c *cli.Context, a *app) error {
					pubkey, err := pubkeyArg(c)
					if err != nil {
						return err
					}
					if err := a.devices.Delete(c.Context, pubkey); err != nil {
						return err
					}
					fmt.Fprintln(c.App.Writer, "removed")
					return nil
				}),
			},
			{
				Name:  "ls",
				Usage: "list devices",
				Action: sess.action(func(c *cli.Context, a *app) error {
					devices, err := a.devices.List(c.Context)
					if err != nil {
						return err
					}
					return printDevices(c.App.Writer, devices)
				}),
			},
		},
	}
}

func sendCommand(sess *session) *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "sign a command and deliver it to the device's relay",
		ArgsUsage: "<pubkey>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "action",
				Aliases:  []string{"a"},
				Required: true,
				Usage:    "one of " + strings.Join(actionNames(), ", "),
			},
			pinFlag(),
			&cli.BoolFlag{Name: "dry-run", Usage: "sign and print without delivering"},
		},
		Action: sess.action(func(c *cli.Context, a *app) error {
			pubkey, err := pubkeyArg(c)
			if err != nil {
				return err
			}
			req := service.SendRequest{
				Pubkey: pubkey,
				PIN:    c.String("pin"),
				Action: c.String("action"),
			}
			svc := a.commands
			var cmd *model.SignedCommand
			if c.Bool("dry-run") {
				cmd, err = svc.Preview(c.Context, req)
			} else {
				cmd, err = svc.Send(c.Context, req)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "command:   %s\nsignature: %s\n", cmd.Command, cmd.Signature)
			return nil
		}),
	}
}

func statusCommand(sess *session) *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "show which devices polled their relay recently",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "keep polling until interrupted"},
		},
		Action: sess.action(func(c *cli.Context, a *app) error {
			svc := a.status
			if !c.Bool("watch") {
				statuses, err := svc.Check(c.Context)
				if err != nil {
					return err
				}
				return printStatuses(c.App.Writer, statuses)
			}
			err := svc.Watch(c.Context, func(statuses []model.DeviceStatus) {
				fmt.Fprintf(c.App.Writer, "-- %s\n", time.Now().Format(time.TimeOnly))
				_ = printStatuses(c.App.Writer, statuses)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}),
	}
}

func serveCommand(sess *session) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the admin HTTP API",
		Action: sess.action(func(c *cli.Context, a *app) error {
			srv := server.New(a.cfg, server.Deps{
				Devices:  a.devices,
				Commands: a.commands,
				Status:   a.status,
				Auth:     a.auth,
				Metrics:  a.metrics,
				Log:      a.log,
			})

			g, ctx := errgroup.WithContext(c.Context)
			g.Go(func() error {
				a.log.Info("admin api listening", "addr", a.cfg.HTTP.Addr, "storage", a.cfg.Storage.Driver)
				return srv.Start()
			})
			g.Go(func() error {
				// keeps the online gauges current for /metrics
				err := a.status.Watch(ctx, func([]model.DeviceStatus) {})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
			g.Go(func() error {
				<-ctx.Done()
				a.log.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.WriteTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
			return g.Wait()
		}),
	}
}

func pubkeyArg(c *cli.Context) (string, error) {
	pubkey := strings.TrimSpace(c.Args().First())
	if pubkey == "" {
		return "", errors.New("missing <pubkey> argument")
	}
	return pubkey, nil
}

func printDevices(w io.Writer, devices []*model.Device) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tRELAY\tPUBKEY")
	for _, d := range devices {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", d.DeviceName, d.RelayURL, d.Pubkey)
	}
	return tw.Flush()
}

func printStatuses(w io.Writer, statuses []model.DeviceStatus) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATUS\tLAST ACTIVE\tERROR")
	for _, s := range statuses {
		last := "-"
		if s.LastActive != nil {
			last = s.LastActive.UTC().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.DeviceName, s.Status, last, s.Error)
	}
	return tw.Flush()
}
