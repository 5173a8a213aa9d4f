package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mmynk/sususave/internal/scheduler"
)

type sweepFunc func(context.Context) (scheduler.Report, error)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one pass of a sweep now",
	Long: `Run a sweep once in the foreground and print what it did. Safe to run
while "susu serve" is up: the ledger constraints keep each member debited
at most once per round and each round paid out at most once.`,
}

func init() {
	sweepCmd.AddCommand(
		newSweepCmd(scheduler.SweepPayments, "Debit every member who has not paid the current round",
			func(s *scheduler.Sweeper) sweepFunc { return s.DuePayments }),
		newSweepCmd(scheduler.SweepRetries, "Retry failed payments whose backoff has elapsed",
			func(s *scheduler.Sweeper) sweepFunc { return s.RetryPayments }),
		newSweepCmd(scheduler.SweepPayouts, "Pay out complete rounds and retry failed payouts",
			func(s *scheduler.Sweeper) sweepFunc { return s.Payouts }),
		&cobra.Command{
			Use:   "all",
			Short: "Run the payment, retry and payout sweeps in order",
			Args:  cobra.NoArgs,
			RunE:  runSweepAll,
		},
	)
}

func newSweepCmd(name, short string, pick func(*scheduler.Sweeper) sweepFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := pick(a.sweeper)(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return err
		},
	}
}

func runSweepAll(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	reports, err := a.sweeper.RunAll(cmd.Context())
	for _, r := range reports {
		fmt.Fprintln(cmd.OutOrStdout(), r)
	}
	return err
}
