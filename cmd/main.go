/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"log"
	"os"

	"github.com/blnkfinance/ledgerd"
	"github.com/blnkfinance/ledgerd/config"
	"github.com/blnkfinance/ledgerd/internal/notification"
	"github.com/joho/godotenv"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Ledgerd is the CLI application wrapping the root command.
type Ledgerd struct {
	cmd *cobra.Command
}

// ledgerdInstance carries the loaded configuration to subcommands. The engine
// itself is built on demand so commands like config and migrate never need redis.
type ledgerdInstance struct {
	ledgerd *ledgerd.Ledgerd
	cnf     *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

func preRun(app *ledgerdInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		// a missing .env is normal outside local development
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			log.Printf("Warning: could not read .env: %v", err)
		}

		if err := config.InitConfig(*configFile); err != nil {
			return pkgerrors.Wrap(err, "loading config")
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf
		return nil
	}
}

// bootstrap builds the engine from the loaded configuration.
func (app *ledgerdInstance) bootstrap() *ledgerd.Ledgerd {
	if app.ledgerd != nil {
		return app.ledgerd
	}
	l, err := ledgerd.Bootstrap(app.cnf)
	if err != nil {
		err = pkgerrors.Wrap(err, "starting ledgerd")
		notification.NotifyError(err)
		log.Fatal(err)
	}
	app.ledgerd = l
	return l
}

func NewCLI() *Ledgerd {
	var configFile string
	app := &ledgerdInstance{}

	rootCmd := &cobra.Command{
		Use:   "ledgerd",
		Short: "Append-only account ledger",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./ledgerd.json", "Configuration file for ledgerd")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))
	rootCmd.AddCommand(configCommands(app))

	return &Ledgerd{cmd: rootCmd}
}

func (w Ledgerd) executeCLI() {
	if err := w.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
