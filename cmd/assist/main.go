// Command assist is the attendant's offline view of escalations and the
// manual adjustment audit trail.
package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"selfcheckout/internal/config"
	"selfcheckout/internal/dto"
	"selfcheckout/internal/repository/sqlite"

	"github.com/spf13/cobra"
)

var (
	envFile string
	dbPath  string
	showAll bool
	item    string
	limit   int
)

var rootCmd = &cobra.Command{
	Use:          "assist",
	Short:        "Inspect and resolve self-checkout escalations",
	SilenceUsage: true,
}

var escalationsCmd = &cobra.Command{
	Use:   "escalations",
	Short: "List pending escalations (all with --all)",
	Args:  cobra.NoArgs,
	RunE:  runEscalations,
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <id>",
	Short: "Mark an escalation as resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolve,
}

var adjustmentsCmd = &cobra.Command{
	Use:   "adjustments",
	Short: "List manual quantity adjustments",
	Args:  cobra.NoArgs,
	RunE:  runAdjustments,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Environment file to load")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (overrides DATABASE_PATH)")
	rootCmd.PersistentFlags().IntVar(&limit, "limit", 50, "Maximum rows to show")

	escalationsCmd.Flags().BoolVar(&showAll, "all", false, "Include resolved escalations")
	adjustmentsCmd.Flags().StringVar(&item, "item", "", "Only show adjustments of this item")

	rootCmd.AddCommand(escalationsCmd, resolveCmd, adjustmentsCmd)
}

func openDB() (*sqlite.DB, error) {
	path := dbPath
	if path == "" {
		path = config.Load(envFile).DatabasePath
	}
	db, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return db, nil
}

func runEscalations(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	escalations, err := sqlite.NewEscalationRepository(db).GetAll(&dto.EscalationFilter{PendingOnly: !showAll, Limit: limit})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSTATUS\tREASON\tITEM\tQTY\tAMOUNT")
	for _, e := range escalations {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d -> %d\t%.2f\n",
			e.ID, e.CreatedAt.Local().Format(time.DateTime), e.Status, e.Reason,
			e.ItemName, e.CurrentQuantity, e.RequestedQuantity, e.DecreaseAmount)
	}
	return w.Flush()
}

func runResolve(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := sqlite.NewEscalationRepository(db).Resolve(args[0], time.Now()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Resolved %s\n", args[0])
	return nil
}

func runAdjustments(cmd *cobra.Command, args []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	adjustments, err := sqlite.NewAdjustmentRepository(db).GetAll(&dto.AdjustmentFilter{ItemName: item, Limit: limit})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CREATED\tSESSION\tKIND\tITEM\tQTY\tPRICE")
	for _, a := range adjustments {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d -> %d\t%.2f\n",
			a.CreatedAt.Local().Format(time.DateTime), a.SessionID, a.Kind,
			a.ItemName, a.PreviousQuantity, a.RequestedQuantity, a.UnitPrice)
	}
	return w.Flush()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
