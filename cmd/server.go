/*
Copyright © 2026 Maxwell Melo <maxwell.melo0@gmail.com>
*/
package cmd

import (
	"github.com/maxwellmelo/lighter-backend/internal/bootstrap"
	"github.com/spf13/cobra"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the trading backend HTTP server",
	Long: `The trading backend server receives trading commands over HTTP,
normalizes and quantizes order parameters against the market's decimal
precision, derives slippage-bounded execution prices for market orders, and
hands the resulting order specification to the Lighter signing client.`,
	Run: bootstrap.StartServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
