package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/verihub/verihub-cli/internal/history"
	"github.com/verihub/verihub-cli/internal/model"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past verifications",
	Long: `Browse the local record of completed verifications.

Every successful 'verihub verify' stores its result under ~/.verihub/history.
Records stay on this machine; the service keeps nothing for you.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded verifications, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}

		records, err := store.List()
		if err != nil {
			return fmt.Errorf("list history: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("No verifications recorded yet. Run 'verihub verify' first.")
			return nil
		}

		for _, rec := range records {
			verdict := "—"
			if summary, err := model.DecodeSummary(rec.Result); err == nil {
				verdict = summary.Verdict()
			}
			marker := ""
			if rec.Synthesized {
				marker = " ⚠"
			}
			fmt.Printf("%s  %s  %-5s  %-40s  %s%s\n",
				rec.ID[:8],
				rec.CreatedAt.Local().Format("2006-01-02 15:04"),
				rec.InputType,
				truncateClaim(rec.Input),
				verdict,
				marker,
			)
		}

		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one recorded verification in full",
	Long:  `Show a recorded verification. The id may be abbreviated to any unambiguous prefix (the list command prints the first 8 characters).`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}

		rec, err := store.Get(args[0])
		if err != nil {
			return err
		}

		fmt.Printf("ID:         %s\n", rec.ID)
		fmt.Printf("Date:       %s\n", rec.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf("Input type: %s\n", rec.InputType)
		fmt.Printf("Input:      %s\n", rec.Input)
		if rec.Synthesized {
			fmt.Printf("Note:       result assembled from a degraded stream\n")
		}
		fmt.Println()

		var buf bytes.Buffer
		if err := json.Indent(&buf, rec.Result, "", "  "); err != nil {
			buf.Write(rec.Result)
		}
		fmt.Println(buf.String())

		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all recorded verifications",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openHistory()
		if err != nil {
			return err
		}

		if err := store.Clear(); err != nil {
			return err
		}

		fmt.Println("✓ History cleared")
		return nil
	},
}

func openHistory() (*history.Store, error) {
	dir, err := history.DefaultDir()
	if err != nil {
		return nil, err
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "History dir: %s\n", dir)
	}
	return history.NewStore(dir), nil
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyClearCmd)
}
