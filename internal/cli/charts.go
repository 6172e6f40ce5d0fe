package cli

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/sseqchart/pkg/store"
)

// chartsCommand manages snapshots in the configured store.
func (c *CLI) chartsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "charts",
		Short: "Manage stored chart snapshots",
	}

	cmd.AddCommand(c.chartsListCommand())
	cmd.AddCommand(c.chartsSaveCommand())
	cmd.AddCommand(c.chartsExportCommand())
	cmd.AddCommand(c.chartsDeleteCommand())

	return cmd
}

func (c *CLI) chartsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored charts, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			infos, err := st.List(ctx)
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				printInfo("No stored charts")
				return nil
			}
			rows := make([][]string, len(infos))
			for i, info := range infos {
				rows[i] = []string{info.ID, info.Name, strconv.Itoa(info.Size), formatRelativeTime(info.UpdatedAt)}
			}
			fmt.Println(renderTable([]string{"UUID", "Name", "Bytes", "Updated"}, rows))
			return nil
		},
	}
}

func (c *CLI) chartsSaveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "save <snapshot.json>",
		Short: "Store a snapshot under its chart uuid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ch, _, err := loadSnapshot(args[0])
			if err != nil {
				return err
			}
			st, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := store.SaveChart(ctx, st, ch); err != nil {
				return err
			}
			printSuccess("Stored chart %s", StyleHighlight.Render(ch.UUID))
			printNextStep("Serve it", "sseqchart serve --resume "+ch.UUID)
			return nil
		},
	}
}

func (c *CLI) chartsExportCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export <uuid>",
		Short: "Write a stored chart as a snapshot file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			ch, err := store.LoadChart(ctx, st, args[0])
			if err != nil {
				return err
			}
			data, err := encodeSnapshot(ch)
			if err != nil {
				return err
			}
			return writeOutput(output, data)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output snapshot (default: stdout)")
	return cmd
}

func (c *CLI) chartsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <uuid>",
		Short: "Delete a stored chart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := c.newStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(ctx, args[0]); err != nil {
				return err
			}
			printSuccess("Deleted chart %s", args[0])
			return nil
		},
	}
}

// formatRelativeTime renders t relative to now for recent times.
func formatRelativeTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
