package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Reset user data on this device",
		Long: `Reset all user-scoped state: plans, boats, contacts, gear, tasks, and
any queued unsynced changes. Device settings and cached marine data are
kept. Queued mutations are discarded without delivery — run 'tidewatch
sync' first if they matter.`,
		RunE: runLogout,
	}
}

func runLogout(_ *cobra.Command, _ []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	if pending := a.store.PendingCount(); pending > 0 {
		fmt.Printf("warning: discarding %d undelivered queued mutations\n", pending)
	}

	a.store.Logout()

	fmt.Println("user data reset")

	return nil
}
