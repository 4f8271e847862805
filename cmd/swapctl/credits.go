package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/swapbnb/api/internal/credits"
	"github.com/swapbnb/api/internal/database"
)

var creditsCmd = &cobra.Command{
	Use:   "credits",
	Short: "Inspect and grant user credits",
	Long: `Read a user's balance and ledger, or grant the one-time welcome credit.

Examples:
  swapctl credits balance 3f1c...
  swapctl credits history 3f1c... --limit 20
  swapctl credits welcome 3f1c...`,
}

var creditsBalanceCmd = &cobra.Command{
	Use:   "balance <user-id>",
	Short: "Show a user's credit balance",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreditsBalance,
}

var creditsHistoryCmd = &cobra.Command{
	Use:   "history <user-id>",
	Short: "List a user's ledger entries, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreditsHistory,
}

var creditsWelcomeCmd = &cobra.Command{
	Use:   "welcome <user-id>",
	Short: "Grant the welcome credit if the user is eligible",
	Args:  cobra.ExactArgs(1),
	RunE:  runCreditsWelcome,
}

func init() {
	creditsHistoryCmd.Flags().Int("limit", 50, "maximum number of entries")

	creditsCmd.AddCommand(creditsBalanceCmd)
	creditsCmd.AddCommand(creditsHistoryCmd)
	creditsCmd.AddCommand(creditsWelcomeCmd)

	rootCmd.AddCommand(creditsCmd)
}

// withRepository opens the database for the duration of fn
func withRepository(cmd *cobra.Command, fn func(repo *credits.Repository) error) error {
	db, err := database.Open(cmd.Context(), cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(credits.NewRepository(db))
}

func parseUserID(arg string) (uuid.UUID, error) {
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid user id %q", arg)
	}
	return id, nil
}

func runCreditsBalance(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	return withRepository(cmd, func(repo *credits.Repository) error {
		balance, err := repo.Balance(cmd.Context(), userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "credits: %d\nwelcome granted: %t\n", balance.Credits, balance.WelcomeCreditGranted)
		return nil
	})
}

func runCreditsHistory(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	limit, _ := cmd.Flags().GetInt("limit")

	return withRepository(cmd, func(repo *credits.Repository) error {
		txs, err := repo.History(cmd.Context(), userID, limit, 0)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CREATED\tTYPE\tAMOUNT\tDESCRIPTION")
		for _, tx := range txs {
			fmt.Fprintf(w, "%s\t%s\t%+d\t%s\n", tx.CreatedAt.Format("2006-01-02 15:04"), tx.Type, tx.Amount, tx.Description)
		}
		return w.Flush()
	})
}

func runCreditsWelcome(cmd *cobra.Command, args []string) error {
	userID, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	return withRepository(cmd, func(repo *credits.Repository) error {
		res, err := repo.GrantWelcome(cmd.Context(), userID, cfg.Credits.WelcomeAmount)
		if err != nil {
			return err
		}
		if !res.Granted {
			fmt.Fprintf(cmd.OutOrStdout(), "not eligible, balance unchanged at %d\n", res.Balance)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "welcome credit granted, balance now %d\n", res.Balance)
		return nil
	})
}
