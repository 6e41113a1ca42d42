package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/trezcool/pgmanager/storage/database/gormrepo"
)

var migrateFunc = gormrepo.Migrate // mockable

func (cli *commandLine) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update every table and index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.migrate(cmd, migrateFunc)
		},
	}
}

func (cli *commandLine) migrate(cmd *cobra.Command, fn func(*gorm.DB) error) error {
	if err := fn(cli.db); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Database migrated.")
	return nil
}
