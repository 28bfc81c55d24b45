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
	"encoding/json"
	"fmt"
	"log"

	"github.com/blnkfinance/ledgerd/config"
	"github.com/spf13/cobra"
)

const redacted = "********"

// redact returns a copy of cfg that is safe to print.
func redact(cfg config.Configuration) config.Configuration {
	if cfg.Server.SecretKey != "" {
		cfg.Server.SecretKey = redacted
	}
	if cfg.TelemetryKey != "" {
		cfg.TelemetryKey = redacted
	}
	if len(cfg.Notification.Webhook.Headers) > 0 {
		headers := make(map[string]string, len(cfg.Notification.Webhook.Headers))
		for k := range cfg.Notification.Webhook.Headers {
			headers[k] = redacted
		}
		cfg.Notification.Webhook.Headers = headers
	}
	return cfg
}

func configCommands(app *ledgerdInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "print the effective configuration",
		Run: func(cmd *cobra.Command, args []string) {
			data, err := json.MarshalIndent(redact(*app.cnf), "", "    ")
			if err != nil {
				log.Fatalf("Error printing config: %v\n", err)
			}
			fmt.Println(string(data))
		},
	}
	return cmd
}
