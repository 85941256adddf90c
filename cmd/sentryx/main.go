// Command sentryx runs the mempool-tap / bus-consumer / cleanup-sweeper /
// HTTP-listing pipeline described in this repository's design notes.
// Wiring mirrors the teacher's cobra root-with-subcommands shape
// (cmd/indexer/main.go): one persistent --config flag, one subcommand per
// long-running process.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "sentryx",
		Short:        "DEX swap opportunity detection pipeline",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("http-rpc-url", "", "HTTP RPC URL(s), comma-separated")
	root.PersistentFlags().String("wss-rpc-url", "", "WebSocket RPC URL for pending-tx subscription")
	root.PersistentFlags().Uint64("chain-id", 1, "chain ID")
	root.PersistentFlags().StringSlice("universal-router", nil, "universal router addresses")
	root.PersistentFlags().StringSlice("v2-router", nil, "canonical V2 router addresses")
	root.PersistentFlags().StringSlice("v3-router", nil, "canonical V3 router addresses")
	root.PersistentFlags().String("quoter-address", "", "V3 quoter contract address")
	root.PersistentFlags().StringSlice("kafka-brokers", nil, "kafka broker addresses")
	root.PersistentFlags().String("kafka-client-id", "", "kafka client id")
	root.PersistentFlags().String("kafka-group-id", "", "kafka consumer group id")
	root.PersistentFlags().String("kafka-transactions-topic", "", "kafka topic for decoded-swap envelopes")
	root.PersistentFlags().String("kafka-opportunities-topic", "", "kafka topic for detected opportunities (unused by this binary, reserved)")
	root.PersistentFlags().String("database-url", "", "Postgres DSN")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().Int("workers", 16, "mempool tap worker pool size")
	root.PersistentFlags().String("listen-addr", ":8080", "HTTP listen address for the serve command")

	root.AddCommand(tapCmd(), consumeCmd(), cleanupCmd(), serveCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
