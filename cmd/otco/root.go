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
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sirseerhq/sirseer-otco/internal/config"
	"github.com/sirseerhq/sirseer-otco/internal/logging"
	"github.com/sirseerhq/sirseer-otco/internal/metadata"
	"github.com/sirseerhq/sirseer-otco/internal/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath   string
	output       string
	outputFile   string
	apiURL       string
	token        string
	logLevel     string
	all          bool
	fields       string
	sort         string
	limit        int
	perPage      int
	pages        int
	metricsFile  string
	saveMetadata bool
	noCache      bool
}

// app is the state of one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer
	flags  globalFlags

	src     *config.Source
	cfg     *config.Config
	fetchID string
	logger  zerolog.Logger
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout: stdout,
		stderr: stderr,
		logger: zerolog.Nop(),
	}
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "otco",
		Short: "Query GitHub REST list endpoints and render the results",
		Long: `otco fetches paginated GitHub REST listings (repositories, issues, pull
requests, workflow runs, security alerts) and renders them as JSON, YAML,
CSV, PSV or a table.

Authentication uses --token or the environment variable named by
github.token_env (GITHUB_TOKEN by default).`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.flags.configPath, "config", "", "Config file (default: otco.{toml,yaml,yml,json} or ~/.otco.*)")
	f.StringVarP(&a.flags.output, "output", "o", "table", "Output format: json, yaml, csv, psv, table")
	f.StringVar(&a.flags.outputFile, "output-file", "", "Write output to this file instead of stdout")
	f.StringVar(&a.flags.apiURL, "api-url", "", "GitHub API base URL (for GitHub Enterprise Server)")
	f.StringVar(&a.flags.token, "token", "", "GitHub token (overrides the token environment variable)")
	f.StringVar(&a.flags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	f.BoolVar(&a.flags.all, "all", false, "Fetch every page instead of stopping at the page cap")
	f.StringVar(&a.flags.fields, "fields", "", "Comma separated fields to output, in order")
	f.StringVar(&a.flags.sort, "sort", "", "Field to sort by; prefix with - for descending")
	f.IntVar(&a.flags.limit, "limit", 0, "Maximum number of rows to output (0 = no limit)")
	f.IntVar(&a.flags.perPage, "per-page", 30, "Records requested per page (1-100)")
	f.IntVar(&a.flags.pages, "pages", 10, "Page cap when --all is not set")
	f.StringVar(&a.flags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	f.BoolVar(&a.flags.saveMetadata, "save-metadata", false, "Save fetch metadata next to the incremental state")
	f.BoolVar(&a.flags.noCache, "no-cache", false, "Bypass the Redis response cache")

	root.AddCommand(
		newOrgCommand(a),
		newRepoCommand(a),
		newIssuesCommand(a),
		newPRsCommand(a),
		newActionsCommand(a),
		newSecurityCommand(a),
		newAuthCommand(a),
		newMetaCommand(a),
		newConfigCommand(a),
		newDocsCommand(a),
	)
	return root
}

// flagBindings maps config keys to the persistent flags that override them.
func flagBindings(f *pflag.FlagSet) map[string]*pflag.Flag {
	return map[string]*pflag.Flag{
		"output.format":       f.Lookup("output"),
		"github.api_url":      f.Lookup("api-url"),
		"log.level":           f.Lookup("log-level"),
		"pagination.per_page": f.Lookup("per-page"),
		"pagination.page_cap": f.Lookup("pages"),
	}
}

// init loads configuration and sets up logging. The decoded configuration
// is validated lazily by config(), so that config subcommands still work
// with an invalid file.
func (a *app) init(cmd *cobra.Command) error {
	src, err := config.Load(config.Options{
		Path:  a.flags.configPath,
		Flags: flagBindings(cmd.Root().PersistentFlags()),
	})
	if err != nil {
		return err
	}
	a.src = src

	level, err := src.Get("log.level")
	if err != nil {
		return err
	}
	levelName, _ := level.(string)

	pretty := false
	if f, ok := a.stderr.(*os.File); ok {
		pretty = logging.IsTerminal(f)
	}
	if _, err := logging.Setup(logging.Config{Level: levelName, Pretty: pretty, Output: a.stderr}); err != nil {
		return err
	}

	a.fetchID = metadata.NewFetchID()
	a.logger = logging.NewLogger("otco").With().Str("fetch_id", a.fetchID).Logger()
	return nil
}

// config returns the validated configuration.
func (a *app) config() (*config.Config, error) {
	if a.cfg != nil {
		return a.cfg, nil
	}
	cfg, err := a.src.Config()
	if err != nil {
		return nil, err
	}
	a.cfg = cfg
	return cfg, nil
}
