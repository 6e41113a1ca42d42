package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trezcool/pgmanager/core/user"
)

var errInvalidRole = fmt.Errorf("role must be one of %q, %q", user.RoleAdmin, user.RoleOwner)

func (cli *commandLine) addUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "adduser",
		Short: "Update or create an approved admin user. The password will be prompted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			email, err := requireFlag(cmd, "email")
			if err != nil {
				return err
			}
			name, _ := cmd.Flags().GetString("name")
			role, _ := cmd.Flags().GetString("role")
			if role != user.RoleAdmin && role != user.RoleOwner {
				return errInvalidRole
			}

			pwd, err := cli.promptPassword(cmd)
			if err != nil {
				return err
			}
			return cli.addUser(cmd, name, email, pwd, role)
		},
	}
	cmd.Flags().String("email", "", "The user's email")
	cmd.Flags().String("name", "", "The user's name")
	cmd.Flags().String("role", user.RoleAdmin, "The user's role (admin|owner)")
	return cmd
}

// addUser updates or creates an approved user.User
func (cli *commandLine) addUser(cmd *cobra.Command, name, email, pwd, role string) error {
	usr, err := cli.usrSvc.UpdateOrCreate(cmd.Context(), name, email, pwd, role)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "User %s saved as %s.\n", usr.Email, usr.Role)
	return nil
}
