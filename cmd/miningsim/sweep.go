package miningsim

import (
	"github.com/spf13/cobra"

	"github.com/shreekarashastry/miningsim/internal/report"
	"github.com/shreekarashastry/miningsim/simulation"
)

func newSweepCmd(a *app) *cobra.Command {
	var (
		format  string
		average string
	)
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run every configured power distribution repeatedly and aggregate the revenues",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			avg, err := report.ParseAverage(average)
			if err != nil {
				return err
			}
			g, err := a.file.Group()
			if err != nil {
				return err
			}
			g.Logger = a.entry()
			g.Instrument = a.collector.Attach

			bar := newBar(a.errOut, int64(g.Size()), "Running trials...")
			g.OnTrial = func(simulation.Trial) {
				if err := bar.Add(1); err != nil {
					a.logger.WithError(err).Warn("Failed to update progress bar")
				}
			}

			a.logger.WithField("trials", g.Size()).Info("Starting sweep")
			trials, err := g.RunAll(cmd.Context())
			if err != nil {
				return err
			}
			if err := bar.Finish(); err != nil {
				a.logger.WithError(err).Warn("Failed to finish progress bar")
			}

			refs := report.ReferencesFor(g.Base)
			return report.Sweep(trials, avg, refs...).Write(a.out, outFormat)
		},
	}

	flags := cmd.Flags()
	flags.Int("repeat", 1, "runs per power distribution")
	flags.Int("concurrency", 0, "trials run in parallel, 0 for one per CPU")
	flags.StringVar(&format, "format", "table", "output format (table or csv)")
	flags.StringVar(&average, "average", "mean", "how repeated runs are combined (none, mean, median, min or max)")
	a.bind("sweep.repeat", cmd, "repeat")
	a.bind("sweep.concurrency", cmd, "concurrency")
	return cmd
}
