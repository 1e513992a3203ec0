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
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/ianlewis/sdcatalog/internal/lifecycle"
)

var addCommand = &cli.Command{
	Name:      "add",
	Usage:     "Add dictionaries to the catalog",
	ArgsUsage: "PATH...",
	Description: "Adds the .ifo file at each PATH, or every .ifo file under each\n" +
		"directory PATH, and builds its index.",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "rebuild",
			Usage: "rebuild indexes of dictionaries that are already added",
		},
	},
	Action: runAdd,
}

func runAdd(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("%w: missing PATH", ErrFlagParse)
	}

	e, err := setup(c, nil)
	if err != nil {
		return err
	}
	defer e.Close()
	e.load()

	rebuild := c.Bool("rebuild")
	var results []lifecycle.Result
	for _, path := range c.Args().Slice() {
		info, err := os.Stat(path)
		if err != nil {
			results = append(results, lifecycle.Result{Path: path, Err: err})
			continue
		}
		if info.IsDir() {
			rs, err := e.ctrl.Discover(e.ctx, path, rebuild)
			if err != nil {
				results = append(results, lifecycle.Result{Path: path, Err: err})
			}
			results = append(results, rs...)
			continue
		}
		res, _ := e.ctrl.Add(e.ctx, path, rebuild)
		results = append(results, res)
	}

	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", r.Path, r.Err)
		case r.Skipped:
			fmt.Fprintf(c.App.Writer, "exists  %s  %s\n", r.ID, r.Path)
		default:
			fmt.Fprintf(c.App.Writer, "added   %s  %s\n", r.ID, r.Path)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d failed", ErrPartial, failed, len(results))
	}
	return nil
}
