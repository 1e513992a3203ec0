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

// Package render formats dictionary entries as HTML or plain text.
package render

import (
	"errors"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/k3a/html2text"

	"github.com/ianlewis/sdcatalog/internal/indexer"
	"github.com/ianlewis/sdcatalog/internal/stardict"
)

// ErrUnknownFormat is returned by ParseFormat.
var ErrUnknownFormat = errors.New("unknown format")

// Format is an output format.
type Format int

const (
	// HTML renders an HTML document.
	HTML Format = iota

	// Text renders plain text.
	Text
)

// ParseFormat parses a format name. The empty string is HTML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "html":
		return HTML, nil
	case "text", "txt":
		return Text, nil
	default:
		return HTML, fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == Text {
		return "text/plain; charset=utf-8"
	}
	return "text/html; charset=utf-8"
}

// Options control rendering.
type Options struct {
	// Format is the output format.
	Format Format

	// ResourceBase is the URL that relative resource references in HTML
	// output resolve against.
	ResourceBase string
}

// Entries writes entries to w.
func Entries(w io.Writer, entries []*indexer.Entry, opts Options) error {
	var b strings.Builder
	if opts.Format == Text {
		for i, e := range entries {
			if i > 0 {
				b.WriteString("\n")
			}
			writeText(&b, e)
		}
	} else {
		b.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\">")
		if opts.ResourceBase != "" {
			fmt.Fprintf(&b, "<base href=\"%s\">", html.EscapeString(opts.ResourceBase))
		}
		b.WriteString("</head><body>\n")
		for _, e := range entries {
			writeHTML(&b, e)
		}
		b.WriteString("</body></html>\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func isMarkup(t stardict.DataType) bool {
	switch t {
	case stardict.HTMLType, stardict.PangoTextType, stardict.XDXFType:
		return true
	default:
		return false
	}
}

func writeHTML(b *strings.Builder, e *indexer.Entry) {
	fmt.Fprintf(b, "<div class=\"entry\"><h2 class=\"word\">%s</h2>\n", html.EscapeString(e.Word))
	for _, d := range e.Data {
		switch {
		case isMarkup(d.Type):
			fmt.Fprintf(b, "<div class=\"article\">%s</div>\n", d.Data)
		case d.Type == stardict.PhoneticType:
			fmt.Fprintf(b, "<div class=\"phonetic\">/%s/</div>\n", html.EscapeString(string(d.Data)))
		case d.Type == stardict.ResourceFileListType:
			for _, res := range resourceList(d.Data) {
				if res.kind == "img" {
					fmt.Fprintf(b, "<img src=\"%s\">\n", html.EscapeString(res.name))
				} else {
					fmt.Fprintf(b, "<a href=\"%[1]s\">%[1]s</a>\n", html.EscapeString(res.name))
				}
			}
		case d.Type.IsText():
			text := html.EscapeString(strings.TrimRight(string(d.Data), "\n"))
			fmt.Fprintf(b, "<div class=\"article\">%s</div>\n", strings.ReplaceAll(text, "\n", "<br>"))
		}
	}
	b.WriteString("</div>\n")
}

func writeText(b *strings.Builder, e *indexer.Entry) {
	b.WriteString(e.Word)
	b.WriteString("\n")
	for _, d := range e.Data {
		switch {
		case isMarkup(d.Type):
			b.WriteString(strings.TrimSpace(html2text.HTML2Text(string(d.Data))))
			b.WriteString("\n")
		case d.Type == stardict.PhoneticType:
			fmt.Fprintf(b, "/%s/\n", d.Data)
		case d.Type == stardict.ResourceFileListType:
			for _, res := range resourceList(d.Data) {
				fmt.Fprintf(b, "[%s]\n", res.name)
			}
		case d.Type.IsText():
			b.WriteString(strings.TrimRight(string(d.Data), "\n"))
			b.WriteString("\n")
		}
	}
}

type resource struct {
	kind string
	name string
}

// resourceList parses a resource file list article. Each line has the form
// "type:name".
func resourceList(data []byte) []resource {
	var out []resource
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		kind, name, ok := strings.Cut(line, ":")
		if !ok {
			kind, name = "", line
		}
		out = append(out, resource{kind: kind, name: name})
	}
	return out
}
