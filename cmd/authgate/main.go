// Command authgate serves the signup, login, token refresh and logout API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/kbukum/authgate/app"
	"github.com/kbukum/authgate/config"
	"github.com/kbukum/authgate/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authgate: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  string
		envFile     string
		envPrefix   string
		showVersion bool
	)
	flags := pflag.NewFlagSet("authgate", pflag.ContinueOnError)
	flags.StringVarP(&configFile, "config", "c", "", "path to config.yml (default: search ./cmd/authgate and ./)")
	flags.StringVar(&envFile, "env-file", "", "path to a .env file loaded before environment overrides")
	flags.StringVar(&envPrefix, "env-prefix", "", "only bind environment variables starting with PREFIX_")
	flags.BoolVarP(&showVersion, "version", "v", false, "print the version and exit")
	if err := flags.Parse(os.Args[1:]); err != nil {
		return err
	}

	if showVersion {
		fmt.Println(version.Get().String())
		return nil
	}

	var opts []config.LoaderOption
	if configFile != "" {
		opts = append(opts, config.WithConfigFile(configFile))
	}
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	if envPrefix != "" {
		opts = append(opts, config.WithEnvPrefix(envPrefix))
	}

	var cfg app.Config
	if err := config.LoadConfig("authgate", &cfg, opts...); err != nil {
		return err
	}

	a, err := app.New(&cfg)
	if err != nil {
		return err
	}
	return a.Run(context.Background())
}
