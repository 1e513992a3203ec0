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

	"github.com/urfave/cli/v2"

	"github.com/ianlewis/sdcatalog/internal/identity"
)

var deleteCommand = &cli.Command{
	Name:      "delete",
	Usage:     "Remove dictionaries from the catalog",
	ArgsUsage: "ID...",
	Action:    runDelete,
}

func runDelete(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("%w: missing ID", ErrFlagParse)
	}
	var ids []identity.ID
	for _, arg := range c.Args().Slice() {
		id, err := identity.Parse(arg)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrFlagParse, err)
		}
		ids = append(ids, id)
	}

	e, err := setup(c, nil)
	if err != nil {
		return err
	}
	defer e.Close()
	e.load()

	failed := 0
	for _, id := range ids {
		if err := e.ctrl.Delete(e.ctx, id); err != nil {
			failed++
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", id, err)
			continue
		}
		fmt.Fprintf(c.App.Writer, "deleted %s\n", id)
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d failed", ErrPartial, failed, len(ids))
	}
	return nil
}
