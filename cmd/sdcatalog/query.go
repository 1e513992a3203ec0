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
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ianlewis/sdcatalog/internal/identity"
	"github.com/ianlewis/sdcatalog/internal/indexer"
	"github.com/ianlewis/sdcatalog/internal/render"
)

var queryCommand = &cli.Command{
	Name:      "query",
	Usage:     "Look up a word",
	ArgsUsage: "WORD",
	Description: "Looks up WORD in every active dictionary, or only in the\n" +
		"dictionary given with --dict.",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "dict",
			Usage: "query only the dictionary with `ID`",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "output `FORMAT` (text or html)",
			Value: "text",
		},
	},
	Action: runQuery,
}

func runQuery(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("%w: expected one WORD", ErrFlagParse)
	}
	word := c.Args().First()

	format, err := render.ParseFormat(c.String("format"))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFlagParse, err)
	}

	var ids []identity.ID
	if d := c.String("dict"); d != "" {
		id, err := identity.Parse(d)
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

	if ids == nil {
		for _, s := range e.ctrl.List() {
			ids = append(ids, s.ID)
		}
	}

	found := false
	for _, id := range ids {
		h, err := e.ctrl.Get(id)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrSdcatalog, err)
		}
		entries, err := e.ctrl.Lookup(e.ctx, id, word)
		if errors.Is(err, indexer.ErrNotFoundInIndex) {
			continue
		}
		if err != nil {
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", h.Name, err)
			continue
		}
		found = true

		if format == render.Text {
			fmt.Fprintf(c.App.Writer, "%s\n\n", bookName(h.Index.Info(), h.Name))
		}
		if err := render.Entries(c.App.Writer, entries, render.Options{Format: format}); err != nil {
			return fmt.Errorf("%w: %w", ErrSdcatalog, err)
		}
		fmt.Fprintln(c.App.Writer)
	}

	if !found {
		return fmt.Errorf("%w: %q: %w", ErrSdcatalog, word, indexer.ErrNotFoundInIndex)
	}
	return nil
}

func bookName(info indexer.Info, fallback string) string {
	if info.BookName != "" {
		return info.BookName
	}
	return fallback
}
