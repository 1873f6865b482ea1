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
	"io"

	"github.com/spf13/cobra"

	"github.com/ahoma/shelfline/pkg/app"
	"github.com/ahoma/shelfline/pkg/auth"
	"github.com/ahoma/shelfline/pkg/di"
	"github.com/ahoma/shelfline/pkg/recommend"
)

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List the registered services and plugins",
	Long: `List the top-level service identifiers, the login strategies and the
recommendation modules.

Examples:
  # List identifiers only
  shelfline services

  # Construct every service and report the ones that fail
  shelfline services --resolve`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		resolve, _ := cmd.Flags().GetBool("resolve")

		application, err := app.NewApplicationWithConfig(cmd.Context(), configFile)
		if err != nil {
			return err
		}
		defer func() { _ = application.Stop(cmd.Context()) }()

		out := cmd.OutOrStdout()
		failed := printServices(out, application.Services, resolve)

		authPlugins, err := di.Get[*auth.PluginManager](application.Services, app.ServiceAuthPluginManager)
		if err != nil {
			return err
		}
		printSection(out, "Login strategies", authPlugins.Names())

		modules, err := di.Get[*recommend.PluginManager](application.Services, app.ServiceRecommendManager)
		if err != nil {
			return err
		}
		printSection(out, "Recommendation modules", modules.Names())

		if failed > 0 {
			return fmt.Errorf("%d service(s) failed to resolve", failed)
		}
		return nil
	},
}

func init() {
	servicesCmd.Flags().Bool("resolve", false, "Construct each service and report errors")
}

// printServices lists the locator's identifiers, resolving each when asked,
// and returns the number of failures
func printServices(out io.Writer, services *di.Locator, resolve bool) int {
	fmt.Fprintln(out, "Services:")
	failed := 0
	for _, id := range services.IDs() {
		if !resolve {
			fmt.Fprintf(out, "  %s\n", id)
			continue
		}
		instance, err := services.Get(id)
		if err != nil {
			failed++
			fmt.Fprintf(out, "  %-24s FAILED: %v\n", id, err)
			continue
		}
		fmt.Fprintf(out, "  %-24s %T\n", id, instance)
	}
	return failed
}

func printSection(out io.Writer, title string, names []string) {
	fmt.Fprintf(out, "%s:\n", title)
	for _, name := range names {
		fmt.Fprintf(out, "  %s\n", name)
	}
}
