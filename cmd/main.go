/*
Copyright 2025 Finboard Authors.

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

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/finboardhq/finboard"
	"github.com/finboardhq/finboard/config"
	"github.com/finboardhq/finboard/database"
	"github.com/finboardhq/finboard/internal/notification"
)

// Finboard represents the CLI application, encapsulating the root Cobra command.
type Finboard struct {
	cmd *cobra.Command
}

// finboardInstance holds the running service instance and its configuration,
// shared by the server, worker and migrate subcommands.
type finboardInstance struct {
	finboard *finboard.Finboard
	cnf      *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads configuration and initializes the service instance before any
// subcommand executes.
func preRun(app *finboardInstance) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig("finboard.json")
		if err != nil {
			log.Fatal("error loading config", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}

		newFinboard, err := setupFinboard(cnf)
		if err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}

		app.finboard = newFinboard
		app.cnf = cnf

		return nil
	}
}

// setupFinboard connects the datasource and builds the service from it.
func setupFinboard(cfg *config.Configuration) (*finboard.Finboard, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	newFinboard, err := finboard.NewFinboard(db)
	if err != nil {
		return nil, fmt.Errorf("error creating finboard: %v", err)
	}
	return newFinboard, nil
}

// NewCLI creates the command-line interface for the Finboard application.
func NewCLI() *Finboard {
	var configFile string
	f := &finboardInstance{}

	var rootCmd = &cobra.Command{
		Use:   "finboard",
		Short: "Credit-card to bank statement reconciliation",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./finboard.json", "Configuration file for finboard")

	rootCmd.PersistentPreRunE = preRun(f)

	rootCmd.AddCommand(serverCommands(f))
	rootCmd.AddCommand(workerCommands(f))
	rootCmd.AddCommand(migrateCommands(f))

	return &Finboard{cmd: rootCmd}
}

func (w Finboard) executeCLI() {
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
