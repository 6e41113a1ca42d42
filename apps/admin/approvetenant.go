package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (cli *commandLine) approveTenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "approvetenant",
		Short: "Approve a tenant waiting for approval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, err := requireFlag(cmd, "email")
			if err != nil {
				return err
			}
			tenant, err := cli.usrSvc.GetByEmail(cmd.Context(), email)
			if err != nil {
				return err
			}
			if _, err = cli.usrSvc.ApproveTenant(cmd.Context(), tenant.ID); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Tenant %s approved.\n", tenant.Email)
			return nil
		},
	}
	cmd.Flags().String("email", "", "The tenant's email")
	return cmd
}
