package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var apiAddr string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Reseed the demo data of a running service",
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&apiAddr, "addr", "http://localhost:3000", "service address")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	env, err := newAPIClient(apiAddr).do(cmd.Context(), "POST", "/seed")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d users, %d shipments, %d quotes, %d bookings\n",
		env.Message, env.Counts["users"], env.Counts["shipments"], env.Counts["quotes"], env.Counts["bookings"])
	return err
}
