package miningsim

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sirupsen/logrus"

	"github.com/shreekarashastry/miningsim/simulation"
)

const progressThrottle = 100 * time.Millisecond

func newBar(w io.Writer, total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionThrottle(progressThrottle),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "=",
			SaucerHead:    ">",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// trackRounds advances bar for every round e completes. The returned function
// waits for the last delivered round.
func trackRounds(e *simulation.Engine, bar *progressbar.ProgressBar, logger *logrus.Entry) (stop func()) {
	ch := make(chan simulation.RoundRecord, 256)
	sub := e.SubscribeRounds(ch)
	done := make(chan struct{})

	add := func() {
		if err := bar.Add(1); err != nil {
			logger.WithError(err).Warn("Failed to update progress bar")
		}
	}
	go func() {
		defer close(done)
		for {
			select {
			case <-ch:
				add()
			case <-sub.Err():
				for len(ch) > 0 {
					<-ch
					add()
				}
				return
			}
		}
	}()
	return func() {
		sub.Unsubscribe()
		<-done
	}
}
