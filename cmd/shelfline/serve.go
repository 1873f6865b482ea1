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
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ahoma/shelfline/pkg/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the admin server until interrupted",
	Long: `Build the service graph, run the startup steps and serve the admin API.

The admin API exposes /healthz, /readyz, /metrics and the JSON endpoints
under /api/v1. SIGINT or SIGTERM starts a graceful shutdown.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		application, err := app.NewApplicationWithConfig(ctx, configFile)
		if err != nil {
			return err
		}
		application.Logger.Info("Starting Shelfline",
			"version", version,
			"commit", commit,
			"buildDate", buildDate,
			"environment", application.Config.Environment,
			"serverEnabled", application.Config.Observability.Server.Enabled,
		)

		startErr := application.Start(ctx)
		if err := application.Stop(context.WithoutCancel(ctx)); err != nil {
			application.Logger.Error(err, "Shutdown incomplete")
		}
		if startErr != nil {
			return fmt.Errorf("shelfline stopped with error: %w", startErr)
		}
		application.Logger.Info("Shelfline stopped")
		return nil
	},
}
