package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/mmynk/sususave/internal/models"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups",
}

var groupCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a group with the creator at rotation position 1",
	Args:  cobra.NoArgs,
	RunE:  runGroupCreate,
}

var groupStatusCmd = &cobra.Command{
	Use:   "status [group-id]",
	Short: "Show the current round's contribution progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupStatus,
}

func init() {
	groupCmd.AddCommand(groupCreateCmd)
	groupCmd.AddCommand(groupStatusCmd)

	groupCreateCmd.Flags().String("creator", "", "member ID of the creator")
	groupCreateCmd.Flags().String("name", "", "group name")
	groupCreateCmd.Flags().String("amount", "", "contribution per member per round, e.g. 50.00")
	groupCreateCmd.Flags().Int("cycles", 0, "number of rounds")
	groupCreateCmd.Flags().Bool("cash-only", false, "settle contributions in cash instead of mobile money")
	for _, f := range []string{"creator", "name", "amount", "cycles"} {
		_ = groupCreateCmd.MarkFlagRequired(f)
	}
}

func runGroupCreate(cmd *cobra.Command, args []string) error {
	creator, _ := cmd.Flags().GetString("creator")
	name, _ := cmd.Flags().GetString("name")
	rawAmount, _ := cmd.Flags().GetString("amount")
	cycles, _ := cmd.Flags().GetInt("cycles")
	cashOnly, _ := cmd.Flags().GetBool("cash-only")

	amount, err := decimal.NewFromString(rawAmount)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", rawAmount, err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	group, err := a.groups.Create(cmd.Context(), creator, &models.Group{
		Name:               name,
		ContributionAmount: amount,
		NumCycles:          cycles,
		CashOnly:           cashOnly,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Group %s created, join code %s\n", group.ID, group.Code)
	return nil
}

func runGroupStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	status, err := a.payouts.RoundStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Round %d: %d of %d members paid\n", status.Round, status.Paid, status.Active)
	switch {
	case status.Recipient == nil:
		fmt.Fprintln(out, "No active member holds this round's rotation slot; the payout is skipped.")
	case status.Complete:
		fmt.Fprintf(out, "Complete; payout due to %s\n", status.Recipient.MemberID)
	default:
		fmt.Fprintf(out, "Waiting; payout will go to %s\n", status.Recipient.MemberID)
	}
	return nil
}
