/*
Copyright 2024 The Shelfline Authors.

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
	"os"

	"github.com/spf13/cobra"
)

var (
	// Build-time variables
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "shelfline",
	Short: "Library discovery service layer",
	Long: `Shelfline wires the services behind a library discovery interface:
search backends, login strategies, recommendation modules, translation,
tagging and the WorldCat helper.

Configuration is read from the file given with --config and then from
SHELFLINE_* environment variables.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Shelfline\nVersion: %s\nCommit: %s\nBuild Date: %s\n", version, commit, buildDate)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the YAML configuration file")
	rootCmd.AddCommand(serveCmd, servicesCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
