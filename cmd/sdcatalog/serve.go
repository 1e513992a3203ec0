// Copyright 2026 Ian Lewis
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/release-utils/version"

	"github.com/ianlewis/sdcatalog/internal/config"
	"github.com/ianlewis/sdcatalog/internal/gateway"
	"github.com/ianlewis/sdcatalog/internal/tracing"
	"github.com/ianlewis/sdcatalog/internal/watcher"
)

const shutdownTimeout = 10 * time.Second

var serveCommand = &cli.Command{
	Name:      "serve",
	Usage:     "Serve the dictionary catalog over HTTP",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "listen",
			Usage:   "listen on `ADDR`",
			Aliases: []string{"l"},
		},
		&cli.BoolFlag{
			Name:  "scan",
			Usage: "add dictionaries found in dictionary directories on start",
		},
		&cli.BoolFlag{
			Name:  "no-scan",
			Usage: "do not scan dictionary directories on start",
		},
		&cli.BoolFlag{
			Name:  "watch",
			Usage: "add dictionaries that appear in dictionary directories",
		},
		&cli.BoolFlag{
			Name:  "write-config",
			Usage: "write a default configuration file if none exists",
		},
	},
	Action: runServe,
}

func runServe(c *cli.Context) error {
	if c.Bool("write-config") && c.String("config") == "" {
		if p := config.DefaultPath(); p != "" && !config.Exists(p) {
			if err := config.WriteDefault(p); err != nil {
				return fmt.Errorf("%w: %w", ErrSdcatalog, err)
			}
		}
	}

	overrides := map[string]any{}
	if listen := c.String("listen"); listen != "" {
		overrides["listen"] = listen
	}
	if c.Bool("scan") {
		overrides["scan_on_start"] = true
	}
	if c.Bool("no-scan") {
		overrides["scan_on_start"] = false
	}
	if c.Bool("watch") {
		overrides["watch"] = true
	}

	e, err := setup(c, overrides)
	if err != nil {
		return err
	}
	defer e.Close()

	tp, err := tracing.NewProvider(tracing.Config{Stdout: e.cfg.Tracing.Stdout})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSdcatalog, err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			e.logger.Warn("shutting down tracing", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(e.ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	start(ctx, e)

	if e.cfg.Watch {
		w, err := watcher.New(e.ctrl, watcher.Config{Roots: e.cfg.DictionaryDirs})
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSdcatalog, err)
		}
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrSdcatalog, err)
		}
		defer w.Stop()
	}

	srv, err := gateway.NewServer(gateway.ServerConfig{
		HandlerConfig: gateway.HandlerConfig{
			Dictionaries: e.ctrl,
			Favorites:    e.favorites(),
			Settings:     e.settings(),
			Logger:       e.logger,
			Version:      version.GetVersionInfo().GitVersion,
		},
		Addr: e.cfg.Listen,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSdcatalog, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(sctx)
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("%w: %w", ErrSdcatalog, err)
	}
	return nil
}

// start registers the dictionaries in the catalog and, if configured, scans
// the dictionary directories.
func start(ctx context.Context, e *env) {
	e.load()
	if e.cfg.ScanOnStart {
		scan(ctx, e)
	}
}

// scan discovers dictionaries in the configured directories. Missing
// directories are skipped.
func scan(ctx context.Context, e *env) {
	for _, dir := range e.cfg.DictionaryDirs {
		if _, err := os.Stat(dir); err != nil {
			e.logger.Debug("skipping dictionary directory", "dir", dir, "error", err)
			continue
		}
		results, err := e.ctrl.Discover(ctx, dir, false)
		if err != nil {
			e.logger.Warn("scanning dictionary directory", "dir", dir, "error", err)
			continue
		}
		for _, r := range results {
			if r.Err != nil {
				e.logger.Warn("dictionary not added", "path", r.Path, "error", r.Err)
			}
		}
	}
}
