package main

import (
	"fmt"

	"github.com/braincreator/flow-masters/internal/agency/repository"
	"github.com/braincreator/flow-masters/internal/agency/service"
	"github.com/spf13/cobra"
)

var userInput service.CreateUserInput

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage accounts",
}

var userCreateCmd = &cobra.Command{
	Use:     "create",
	Short:   "Create an account",
	Example: `  agencyctl user create --email pm@example.com --name "Anna" --password s3cret-pass --role manager`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		auth := service.NewAuthService(repository.NewRepositories(db).User, cfg.JWT)
		user, err := auth.CreateUser(cmd.Context(), userInput)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", user.Role, user.Email, user.ID)
		return nil
	},
}

func init() {
	f := userCreateCmd.Flags()
	f.StringVar(&userInput.Email, "email", "", "Login email")
	f.StringVar(&userInput.Name, "name", "", "Display name")
	f.StringVar(&userInput.Password, "password", "", "Initial password")
	f.StringVar(&userInput.Role, "role", "customer", "customer, specialist, manager or admin")
	f.StringVar(&userInput.Locale, "locale", "ru", "Preferred locale")
	_ = userCreateCmd.MarkFlagRequired("email")
	_ = userCreateCmd.MarkFlagRequired("password")

	userCmd.AddCommand(userCreateCmd)
}
