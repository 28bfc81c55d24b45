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
	"database/sql"
	"fmt"
	"log"

	"github.com/blnkfinance/ledgerd"
	"github.com/blnkfinance/ledgerd/config"
	"github.com/blnkfinance/ledgerd/database"
	pkgerrors "github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/spf13/cobra"
)

const schemaName = "ledgerd"

func migrationSource() migrate.EmbedFileSystemMigrationSource {
	return migrate.EmbedFileSystemMigrationSource{
		FileSystem: ledgerd.SQLFiles,
		Root:       "sql",
	}
}

// openForMigration connects and makes sure the schema holding the migration
// bookkeeping table exists.
func openForMigration(cnf *config.Configuration) (*sql.DB, error) {
	if cnf.DataSource.Dns == database.MemoryDSN {
		return nil, fmt.Errorf("the in-memory store has no schema to migrate")
	}
	db, err := database.ConnectDB(cnf.DataSource)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + schemaName); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "creating schema")
	}
	migrate.SetSchema(schemaName)
	return db, nil
}

func migrateCommands(app *ledgerdInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "run ledgerd database migrations",
	}

	cmd.AddCommand(migrateUpCommands(app))
	cmd.AddCommand(migrateDownCommands(app))

	return cmd
}

func migrateUpCommands(app *ledgerdInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use: "up",
		Run: func(cmd *cobra.Command, args []string) {
			db, err := openForMigration(app.cnf)
			if err != nil {
				log.Fatalf("Error connecting to database: %v", err)
			}
			defer db.Close()

			n, err := migrate.Exec(db, "postgres", migrationSource(), migrate.Up)
			if err != nil {
				log.Fatalf("Error migrating up: %v", err)
			}
			fmt.Printf("Applied %d migrations!\n", n)
		},
	}

	return cmd
}

func migrateDownCommands(app *ledgerdInstance) *cobra.Command {
	var steps int
	cmd := &cobra.Command{
		Use: "down",
		Run: func(cmd *cobra.Command, args []string) {
			db, err := openForMigration(app.cnf)
			if err != nil {
				log.Fatalf("Error connecting to database: %v", err)
			}
			defer db.Close()

			n, err := migrate.ExecMax(db, "postgres", migrationSource(), migrate.Down, steps)
			if err != nil {
				log.Fatalf("Error migrating down: %v", err)
			}
			fmt.Printf("Rolled back %d migrations!\n", n)
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back, 0 for all")

	return cmd
}
