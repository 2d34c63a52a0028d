package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"wechat_sync/internal/domain"
	"wechat_sync/internal/storage/postgres"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage WeChat official accounts",
}

var accountAdd struct {
	name      string
	appID     string
	appSecret string
}

var accountAddCmd = &cobra.Command{
	Use:   "add <account-id>",
	Short: "Register or update an account and its app credentials",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if accountAdd.appID == "" || accountAdd.appSecret == "" {
			return fmt.Errorf("--app-id and --app-secret are required")
		}

		db, err := connectDB()
		if err != nil {
			return err
		}
		defer db.Close()

		account := &domain.Account{
			ID:        args[0],
			Name:      accountAdd.name,
			AppID:     accountAdd.appID,
			AppSecret: accountAdd.appSecret,
		}
		if err := postgres.NewAccountStore(db).Save(cmd.Context(), account); err != nil {
			return fmt.Errorf("save account: %w", err)
		}

		cmd.Printf("Account %s saved.\n", account.ID)
		return nil
	},
}

func init() {
	f := accountAddCmd.Flags()
	f.StringVar(&accountAdd.name, "name", "", "display name")
	f.StringVar(&accountAdd.appID, "app-id", "", "WeChat app id")
	f.StringVar(&accountAdd.appSecret, "app-secret", "", "WeChat app secret")

	accountCmd.AddCommand(accountAddCmd)
	rootCmd.AddCommand(accountCmd)
}
