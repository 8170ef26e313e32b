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

	"github.com/spf13/cobra"

	"github.com/sirseerhq/sirseer-otco/internal/config"
)

// defaultConfigFile is created by config init and config set when no file
// exists yet.
const defaultConfigFile = "otco.yaml"

func newConfigCommand(a *app) *cobra.Command {
	var (
		initPath string
		force    bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with every default",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path := initPath
			if path == "" {
				path = defaultConfigFile
			}
			if err := config.WriteDefaults(path, force); err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "Wrote %s\n", path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&initPath, "path", "", "File to write; the extension picks the format (default "+defaultConfigFile+")")
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	getCmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			v, err := a.src.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, v)
			return nil
		},
	}

	setCmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a key in the config file",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			path := a.configFile()
			if err := config.Set(path, args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(a.stderr, "Set %s in %s\n", args[0], path)
			return nil
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print every key with its effective value",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			for _, key := range config.Keys() {
				v, err := a.src.Get(key)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.stdout, "%s=%v\n", key, v)
			}
			return nil
		},
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Print the config file in use",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if a.src.File() == "" {
				fmt.Fprintln(a.stderr, "No config file found; using defaults")
				return nil
			}
			fmt.Fprintln(a.stdout, a.src.File())
			return nil
		},
	}

	return newGroupCommand("config", "Inspect and edit configuration", initCmd, getCmd, setCmd, listCmd, pathCmd)
}

// configFile is the file config set edits.
func (a *app) configFile() string {
	switch {
	case a.flags.configPath != "":
		return a.flags.configPath
	case a.src.File() != "":
		return a.src.File()
	}
	return defaultConfigFile
}
