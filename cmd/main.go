/*
Copyright 2024 TitanForge Authors.

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

	"github.com/titanforge/titanforge"
	"github.com/titanforge/titanforge/config"
	"github.com/titanforge/titanforge/database"
	"github.com/titanforge/titanforge/internal/notification"
)

// skipSetup marks commands that only need configuration, not a running coordinator.
const skipSetup = "skip-setup"

type TitanForgeCLI struct {
	cmd *cobra.Command
}

// titanforgeInstance carries the coordinator and configuration shared by all commands.
type titanforgeInstance struct {
	titanforge *titanforge.TitanForge
	cnf        *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

func preRun(app *titanforgeInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := config.InitConfig(*configFile); err != nil {
			log.Fatal("error loading config: ", err)
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf

		if cmd.Annotations[skipSetup] == "true" {
			return nil
		}

		tf, err := setupTitanForge(cnf)
		if err != nil {
			notification.NotifyError("cli", err)
			log.Fatal(err)
		}
		app.titanforge = tf
		return nil
	}
}

func setupTitanForge(cfg *config.Configuration) (*titanforge.TitanForge, error) {
	db, err := database.NewDataSource(cfg)
	if err != nil {
		return nil, fmt.Errorf("error getting datasource: %v", err)
	}

	tf, err := titanforge.NewTitanForge(db)
	if err != nil {
		return nil, fmt.Errorf("error creating titanforge: %v", err)
	}
	return tf, nil
}

func NewCLI() *TitanForgeCLI {
	var configFile string
	app := &titanforgeInstance{}

	var rootCmd = &cobra.Command{
		Use:   "titanforge",
		Short: "TitanForge master control program",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./titanforge.json", "Configuration file for TitanForge")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(workerCommands(app))
	rootCmd.AddCommand(migrateCommands(app))
	rootCmd.AddCommand(configCommands(app))

	return &TitanForgeCLI{cmd: rootCmd}
}

func (w TitanForgeCLI) executeCLI() {
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
