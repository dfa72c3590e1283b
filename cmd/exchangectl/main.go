// Command exchangectl is the operator CLI for the exchange: replaying
// the durable submission log into a snapshot, inspecting a snapshot
// file, and minting bearer tokens for local testing. Grounded on the
// Cobra command shape used by VictorVVedtion-perp-dex's
// x/orderbook/client/cli/tx.go, cut down to plain local subcommands
// (no blockchain client context).
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/exchangecore/matchkernel/internal/config"
	"github.com/exchangecore/matchkernel/internal/ingress"
	"github.com/exchangecore/matchkernel/internal/persistence"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exchangectl",
		Short: "Operate the matching exchange: replay, snapshot, and auth tooling",
	}
	cmd.AddCommand(replayCmd(), inspectCmd(), issueTokenCmd())
	return cmd
}

func replayCmd() *cobra.Command {
	var dsn, out string
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Reconstruct a snapshot by replaying the durable submission log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			submissionLog, err := persistence.OpenSubmissionLog(ctx, dsn)
			if err != nil {
				return err
			}
			defer submissionLog.Close()

			reg, err := submissionLog.Replay(ctx)
			if err != nil {
				return err
			}
			if err := persistence.SaveToFile(reg, out); err != nil {
				return err
			}
			fmt.Printf("replayed submission log into %s\n", out)
			return nil
		},
	}
	cfg := config.FromEnv()
	cmd.Flags().StringVar(&dsn, "dsn", cfg.PostgresDSN, "postgres DSN for the submission log")
	cmd.Flags().StringVar(&out, "out", cfg.SnapshotPath, "path to write the reconstructed snapshot")
	return cmd
}

func inspectCmd() *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a summary of a snapshot file's markets",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := persistence.LoadFromFile(path)
			if err != nil {
				return err
			}
			for _, market := range reg.Markets() {
				eng, _ := reg.GetMarket(market)
				bids, asks := eng.Book().Depth(0)
				fmt.Printf("%s: sequence=%d bid_levels=%d ask_levels=%d\n",
					market, eng.Sequence(), len(bids), len(asks))
			}
			return nil
		},
	}
	cfg := config.FromEnv()
	cmd.Flags().StringVar(&path, "path", cfg.SnapshotPath, "path to the snapshot file")
	return cmd
}

func issueTokenCmd() *cobra.Command {
	var wallet, secret string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Mint a wallet bearer token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := ingress.NewAuthenticator(secret).IssueToken(wallet, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cfg := config.FromEnv()
	cmd.Flags().StringVar(&wallet, "wallet", "", "wallet id to embed in the token")
	cmd.Flags().StringVar(&secret, "secret", cfg.JWTSecret, "HMAC signing secret")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("wallet")
	return cmd
}
