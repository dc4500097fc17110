package miningsim

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shreekarashastry/miningsim/internal/report"
	"github.com/shreekarashastry/miningsim/simulation"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		format   string
		progress bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one simulation and print the revenue of every participant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := a.file.Simulation()
			if err != nil {
				return err
			}
			e, err := simulation.NewEngine(cfg, simulation.WithLogger(a.entry()))
			if err != nil {
				return err
			}

			stopMetrics := a.collector.Attach(e)
			stopProgress := func() {}
			var bar *progressbar.ProgressBar
			if progress {
				bar = newBar(a.errOut, int64(cfg.Rounds), "Simulating rounds...")
				stopProgress = trackRounds(e, bar, a.entry())
			}

			res, runErr := e.Run(cmd.Context())
			stopProgress()
			stopMetrics()
			if bar != nil {
				if err := bar.Finish(); err != nil {
					a.logger.WithError(err).Warn("Failed to finish progress bar")
				}
			}
			if res == nil {
				return runErr
			}
			if runErr != nil {
				a.logger.WithFields(logrus.Fields{"rounds": res.Rounds}).Warn("Reporting a partial run")
			}

			if err := report.Run(res).Write(a.out, outFormat); err != nil {
				return err
			}
			power := report.Powers(res)
			for _, ref := range report.ReferencesFor(cfg) {
				if _, err := fmt.Fprintf(a.out, "%s: %.6f\n", ref.Title, ref.Func(power)); err != nil {
					return errors.Wrap(err, "write reference")
				}
			}
			if _, err := fmt.Fprintf(a.out, "chain length %d, fingerprint %s\n", res.ChainLength, res.Fingerprint()); err != nil {
				return errors.Wrap(err, "write fingerprint")
			}
			return runErr
		},
	}

	flags := cmd.Flags()
	flags.Uint64("rounds", 10_000, "number of rounds")
	flags.Int64("seed", 0, "random seed")
	flags.String("randomness", "seeded", "randomness source (seeded, hash or external)")
	flags.StringVar(&format, "format", "table", "output format (table or csv)")
	flags.BoolVar(&progress, "progress", false, "show a progress bar")
	a.bind("rounds", cmd, "rounds")
	a.bind("seed", cmd, "seed")
	a.bind("randomness", cmd, "randomness")
	return cmd
}
