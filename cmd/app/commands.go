package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "output raw JSON"}
}

func transportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "transport", Value: "uds", Usage: "uds or http"},
		&cli.StringFlag{Name: "server", Value: "http://127.0.0.1:8080"},
		&cli.StringFlag{Name: "socket", Value: "./data/accessdesk.sock"},
	}
}

func requireToken(cfg cliConfig) error {
	if strings.TrimSpace(cfg.Token) == "" {
		return errors.New("not logged in; run `accessdesk auth login` first")
	}
	return nil
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authentication commands",
		Commands: []*cli.Command{
			{
				Name:  "signup",
				Usage: "Create an account",
				Flags: append(transportFlags(),
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
					&cli.StringFlag{Name: "role", Value: "Employee", Usage: "Employee, Manager or Admin"},
					jsonFlag(),
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Transport: c.String("transport"), Server: c.String("server"), Socket: c.String("socket")}
					out, err := doSignup(ctx, cfg, c.String("username"), c.String("password"), c.String("role"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printUser(out)
					return nil
				},
			},
			{
				Name:  "login",
				Usage: "Login and store CLI token",
				Flags: append(transportFlags(),
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "password", Required: true},
				),
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg := cliConfig{Transport: c.String("transport"), Server: c.String("server"), Socket: c.String("socket")}
					out, err := doLogin(ctx, cfg, c.String("username"), c.String("password"))
					if err != nil {
						return err
					}
					cfg.Token = out.Token
					cfg.Username = c.String("username")
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Printf("logged in as %s (%s)\n", cfg.Username, out.Role)
					return nil
				},
			},
			{
				Name:  "whoami",
				Usage: "Show current authenticated user",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := requireToken(cfg); err != nil {
						return err
					}
					out, err := doWhoAmI(ctx, cfg)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printUser(out)
					return nil
				},
			},
			{
				Name:  "logout",
				Usage: "Clear local CLI auth token",
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					cfg.Token = ""
					cfg.Username = ""
					if err := saveConfig(cfg); err != nil {
						return err
					}
					fmt.Println("logged out")
					return nil
				},
			},
		},
	}
}

func softwareCommand() *cli.Command {
	return &cli.Command{
		Name:  "software",
		Usage: "Software catalog commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List catalog entries",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					out, err := doSoftwareList(ctx, cfg)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printSoftware(out)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Add a catalog entry",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
					&cli.StringFlag{Name: "description"},
					&cli.StringSliceFlag{Name: "access-level", Usage: "repeatable or comma separated"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					fields := map[string]any{"name": c.String("name"), "description": c.String("description")}
					if levels := c.StringSlice("access-level"); len(levels) > 0 {
						fields["accessLevels"] = levels
					}
					out, err := doSoftwareSave(ctx, cfg, 0, fields)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printSoftwareItem(out)
					return nil
				},
			},
			{
				Name:  "update",
				Usage: "Change fields of a catalog entry",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "name"},
					&cli.StringFlag{Name: "description"},
					&cli.StringSliceFlag{Name: "access-level", Usage: "replaces the stored list"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					fields := map[string]any{}
					if c.IsSet("name") {
						fields["name"] = c.String("name")
					}
					if c.IsSet("description") {
						fields["description"] = c.String("description")
					}
					if c.IsSet("access-level") {
						fields["accessLevels"] = c.StringSlice("access-level")
					}
					if len(fields) == 0 {
						return errors.New("nothing to update; pass --name, --description or --access-level")
					}
					out, err := doSoftwareSave(ctx, cfg, c.Uint("id"), fields)
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printSoftwareItem(out)
					return nil
				},
			},
			{
				Name:  "delete",
				Usage: "Remove a catalog entry and its requests",
				Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := doSoftwareDelete(ctx, cfg, c.Uint("id")); err != nil {
						return err
					}
					fmt.Printf("deleted software %d\n", c.Uint("id"))
					return nil
				},
			},
		},
	}
}

func requestCommand() *cli.Command {
	decide := func(name, status string) *cli.Command {
		return &cli.Command{
			Name:  name,
			Usage: "Mark a request " + strings.ToLower(status),
			Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}, jsonFlag()},
			Action: func(ctx context.Context, c *cli.Command) error {
				return runRequestStatus(ctx, c, status)
			},
		}
	}
	return &cli.Command{
		Name:  "request",
		Usage: "Access request commands",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Submit an access request",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "software-id", Required: true},
					&cli.StringFlag{Name: "access-type", Value: "Read", Usage: "Read, Write or Admin"},
					&cli.StringFlag{Name: "reason", Required: true},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := requireToken(cfg); err != nil {
						return err
					}
					out, err := doRequestCreate(ctx, cfg, c.Uint("software-id"), c.String("access-type"), c.String("reason"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRequest(out)
					return nil
				},
			},
			{
				Name:  "mine",
				Usage: "List your requests",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runRequestList(ctx, c, false)
				},
			},
			{
				Name:  "all",
				Usage: "List every request",
				Flags: []cli.Flag{jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runRequestList(ctx, c, true)
				},
			},
			{
				Name:  "get",
				Usage: "Show one request",
				Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}, jsonFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := requireToken(cfg); err != nil {
						return err
					}
					out, err := doRequestGet(ctx, cfg, c.Uint("id"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printRequest(out)
					return nil
				},
			},
			decide("approve", "Approved"),
			decide("reject", "Rejected"),
			{
				Name:  "status",
				Usage: "Set a request status",
				Flags: []cli.Flag{
					&cli.UintFlag{Name: "id", Required: true},
					&cli.StringFlag{Name: "status", Required: true, Usage: "Pending, Approved or Rejected"},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runRequestStatus(ctx, c, c.String("status"))
				},
			},
			{
				Name:  "delete",
				Usage: "Delete a request",
				Flags: []cli.Flag{&cli.UintFlag{Name: "id", Required: true}},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := requireToken(cfg); err != nil {
						return err
					}
					if err := doRequestDelete(ctx, cfg, c.Uint("id")); err != nil {
						return err
					}
					fmt.Printf("deleted request %d\n", c.Uint("id"))
					return nil
				},
			},
		},
	}
}

func runRequestList(ctx context.Context, c *cli.Command, all bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireToken(cfg); err != nil {
		return err
	}
	out, err := doRequestList(ctx, cfg, all)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(out)
	}
	printRequests(out, all)
	return nil
}

func runRequestStatus(ctx context.Context, c *cli.Command, status string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := requireToken(cfg); err != nil {
		return err
	}
	out, err := doRequestStatus(ctx, cfg, c.Uint("id"), status)
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return printJSON(out)
	}
	printRequest(out)
	return nil
}

func auditCommand() *cli.Command {
	return &cli.Command{
		Name:  "audit",
		Usage: "Audit log commands",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent audit entries",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Value: 100},
					jsonFlag(),
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := loadConfig()
					if err != nil {
						return err
					}
					if err := requireToken(cfg); err != nil {
						return err
					}
					out, err := doAuditList(ctx, cfg, c.Int("limit"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return printJSON(out)
					}
					printAuditRecords(out)
					return nil
				},
			},
		},
	}
}
