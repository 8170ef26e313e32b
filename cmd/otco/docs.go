// Copyright 2025 SirSeer, LLC
//
// Licensed under the Business Source License 1.1 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://mariadb.com/bsl11
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

func newDocsCommand(a *app) *cobra.Command {
	md := &cobra.Command{
		Use:   "md",
		Short: "Print a Markdown table of every command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return writeMarkdown(a.stdout, cmd.Root())
		},
	}
	return newGroupCommand("docs", "Generate documentation", md)
}

func writeMarkdown(w io.Writer, root *cobra.Command) error {
	var b strings.Builder
	b.WriteString("| Command | Description |\n")
	b.WriteString("|---|---|\n")

	var walk func(*cobra.Command)
	walk = func(c *cobra.Command) {
		for _, sub := range c.Commands() {
			if !sub.IsAvailableCommand() || sub.Name() == "help" || sub.Name() == "completion" {
				continue
			}
			if sub.Runnable() {
				fmt.Fprintf(&b, "| `%s` | %s |\n", commandLine(sub), escapeCell(sub.Short))
			}
			walk(sub)
		}
	}
	walk(root)

	_, err := io.WriteString(w, b.String())
	return err
}

// commandLine is the full command path with its argument placeholders.
func commandLine(c *cobra.Command) string {
	line := c.CommandPath()
	if _, args, ok := strings.Cut(c.Use, " "); ok {
		line += " " + args
	}
	return line
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
