// Copyright 2021 Google LLC
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
	"fmt"

	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"
)

var listCommand = &cli.Command{
	Name:      "list",
	Usage:     "List dictionaries in the catalog",
	ArgsUsage: " ",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:    "all",
			Usage:   "include inactive dictionaries",
			Aliases: []string{"a"},
		},
	},
	Action: runList,
}

func runList(c *cli.Context) error {
	e, err := setup(c, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	rows, err := e.store.All(e.ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSdcatalog, err)
	}

	tbl := table.New("ID", "Name", "Active", "Path").WithWriter(c.App.Writer)
	for _, row := range rows {
		if !row.Active && !c.Bool("all") {
			continue
		}
		tbl.AddRow(row.ID, row.Name, row.Active, row.Path)
	}
	tbl.Print()
	return nil
}
