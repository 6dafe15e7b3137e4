package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhcgn/mail-export/config"
)

var listFoldersCmd = &cobra.Command{
	Use:   "list-folders",
	Short: "List the accounts and folders available in the configured mail store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadStoreConfig(cmd)
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

		store, err := newStore(cfg, logger)
		if err != nil {
			return fmt.Errorf("mail store: %w", err)
		}
		defer func() {
			_ = store.Close()
		}()

		accounts, err := store.ListFolders(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing folders: %w", err)
		}

		for _, acc := range accounts {
			fmt.Fprintf(cmd.OutOrStdout(), "Account: %s\n", acc.Account)
			for _, folder := range acc.Folders {
				fmt.Fprintf(cmd.OutOrStdout(), "  Folder: %s\n", folder)
			}
		}

		return nil
	},
}

func init() {
	config.RegisterStoreFlags(listFoldersCmd)
	rootCmd.AddCommand(listFoldersCmd)
}
