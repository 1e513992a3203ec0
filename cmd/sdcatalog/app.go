// Copyright 2025 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v2"
	"sigs.k8s.io/release-utils/version"

	"github.com/ianlewis/sdcatalog/internal/cache"
	"github.com/ianlewis/sdcatalog/internal/catalog"
	"github.com/ianlewis/sdcatalog/internal/config"
	"github.com/ianlewis/sdcatalog/internal/ctxlog"
	"github.com/ianlewis/sdcatalog/internal/indexer"
	"github.com/ianlewis/sdcatalog/internal/lifecycle"
	"github.com/ianlewis/sdcatalog/internal/registry"
	"github.com/ianlewis/sdcatalog/internal/sqlite"
	"github.com/ianlewis/sdcatalog/internal/userdata"
)

const (
	// ExitCodeSuccess is successful error code.
	ExitCodeSuccess int = iota

	// ExitCodeFlagParseError is the exit code for a flag parsing error.
	ExitCodeFlagParseError

	// ExitCodeUnknownError is the exit code for an unknown error.
	ExitCodeUnknownError
)

// ErrSdcatalog is the parent error for all sdcatalog errors.
var ErrSdcatalog = errors.New("sdcatalog")

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = fmt.Errorf("%w: parsing flags", ErrSdcatalog)

// ErrPartial indicates that some, but not all, items of a command failed.
var ErrPartial = fmt.Errorf("%w: some operations failed", ErrSdcatalog)

var copyrightNames = []string{
	"2026 Ian Lewis",
}

func newSdcatalogApp() *cli.App {
	return &cli.App{
		Name:  filepath.Base(os.Args[0]),
		Usage: "Catalog and serve Stardict dictionaries.",
		Description: strings.Join([]string{
			"Stardict dictionary catalog and HTTP server written in Go.",
			"http://github.com/ianlewis/sdcatalog",
		}, "\n"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "read configuration from `FILE`",
				Aliases: []string{"c"},
				EnvVars: []string{config.EnvPrefix + "_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "data-dir",
				Usage:   "store databases in `DIR`",
				Aliases: []string{"d"},
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log `LEVEL` (debug, info, warn, error)",
			},

			// Special flags are shown at the end.
			&cli.BoolFlag{
				Name:               "help",
				Usage:              "print this help text and exit",
				Aliases:            []string{"h"},
				DisableDefaultText: true,
			},
			&cli.BoolFlag{
				Name:               "version",
				Usage:              "print version information and exit",
				Aliases:            []string{"V"},
				DisableDefaultText: true,
			},
		},
		Copyright:       strings.Join(copyrightNames, "\n"),
		HideHelp:        true,
		HideHelpCommand: true,
		OnUsageError: func(_ *cli.Context, err error, _ bool) error {
			return fmt.Errorf("%w: %w", ErrFlagParse, err)
		},
		Action: func(c *cli.Context) error {
			if c.Bool("version") {
				return printVersion(c)
			}
			return cli.ShowAppHelp(c)
		},
		Commands: []*cli.Command{
			serveCommand,
			addCommand,
			deleteCommand,
			listCommand,
			queryCommand,
		},
	}
}

func printVersion(c *cli.Context) error {
	versionInfo := version.GetVersionInfo()
	_, err := fmt.Fprintf(c.App.Writer, `%s %s
Copyright (c) %s

Licensed under the Apache License, Version 2.0.

%s
`, c.App.Name, versionInfo.GitVersion, c.App.Copyright, versionInfo.String())
	if err != nil {
		return fmt.Errorf("%w: printing version: %w", ErrSdcatalog, err)
	}
	return nil
}

// env holds the components shared by commands.
type env struct {
	cfg        *config.Config
	configFile string
	logger     *slog.Logger
	ctx        context.Context //nolint:containedctx // command scoped.

	appDB  *sql.DB
	userDB *sql.DB
	store  *catalog.SQLStore
	ctrl   *lifecycle.Controller
}

// setup loads the configuration and opens the databases. Values in overrides
// take precedence over the configuration file.
func setup(c *cli.Context, overrides map[string]any) (*env, error) {
	if overrides == nil {
		overrides = map[string]any{}
	}
	if dir := c.String("data-dir"); dir != "" {
		overrides["data_dir"] = dir
	}
	if level := c.String("log-level"); level != "" {
		overrides["log.level"] = level
	}

	cfg, used, err := config.Load(c.String("config"), overrides)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSdcatalog, err)
	}

	logger := ctxlog.New(cfg.Log.Level, cfg.Log.Format, c.App.ErrWriter)
	slog.SetDefault(logger)
	ctx := ctxlog.WithLogger(c.Context, logger)
	if used != "" {
		logger.Debug("loaded configuration", "file", used)
	}

	e := &env{
		cfg:        cfg,
		configFile: used,
		logger:     logger,
		ctx:        ctx,
	}
	if err := e.open(); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *env) open() error {
	var err error
	e.appDB, err = sqlite.OpenApp(e.ctx, e.cfg.AppDBPath())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSdcatalog, err)
	}
	e.userDB, err = sqlite.OpenUser(e.ctx, e.cfg.UserDBPath())
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSdcatalog, err)
	}

	e.store = catalog.NewSQLStore(e.appDB)
	e.ctrl = lifecycle.New(registry.New(), e.store, indexer.NewStardict(nil), lifecycle.Options{
		Concurrency:  e.cfg.Indexer.Concurrency,
		BuildTimeout: e.cfg.Indexer.BuildTimeout,
		Cache:        cache.New[[]*indexer.Entry](e.cfg.Cache.Expiration, e.cfg.Cache.CleanupInterval),
	})
	return nil
}

func (e *env) favorites() *userdata.Favorites {
	return userdata.NewFavorites(e.userDB)
}

func (e *env) settings() *userdata.Settings {
	return userdata.NewSettings(e.appDB)
}

// Close closes the controller and the databases.
func (e *env) Close() error {
	var errs []error
	if e.ctrl != nil {
		errs = append(errs, e.ctrl.Close())
	}
	if e.userDB != nil {
		errs = append(errs, e.userDB.Close())
	}
	if e.appDB != nil {
		errs = append(errs, e.appDB.Close())
	}
	return errors.Join(errs...)
}

// load registers every dictionary in the catalog and logs failures.
func (e *env) load() {
	results, err := e.ctrl.Load(e.ctx)
	if err != nil {
		e.logger.Error("loading catalog", "error", err)
		return
	}
	for _, r := range results {
		if r.Err != nil {
			e.logger.Warn("dictionary not loaded", "id", r.ID, "path", r.Path, "error", r.Err)
		}
	}
}
