package infra

import (
	"context"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	checkExecInterval = 5 * time.Second
)

// MonitorExecutable signals once when the running binary is replaced on disk,
// so a supervisor can restart the process with the new build.
func MonitorExecutable(ctx context.Context) <-chan struct{} {
	return monitorFile(ctx, "", checkExecInterval)
}

// monitorFile takes its baseline before returning, so any change made after
// the call is reported.
func monitorFile(ctx context.Context, filename string, interval time.Duration) <-chan struct{} {
	ch := make(chan struct{}, 1)
	if filename == "" {
		exeFilename, err := os.Executable()
		if err != nil {
			log.WithError(err).Warn("cant resolve executable path for monitor")
			close(ch)
			return ch
		}
		filename = exeFilename
	}
	stat, err := os.Stat(filename)
	if err != nil {
		log.WithError(err).Warn("cant stat executable for monitor")
		close(ch)
		return ch
	}
	originalTime := stat.ModTime()

	go func() {
		defer close(ch)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stat, err := os.Stat(filename)
				if err != nil {
					log.WithError(err).Warn("cant stat executable for monitor tick")
					continue
				}
				if !originalTime.Equal(stat.ModTime()) {
					ch <- struct{}{}
					return
				}
			}
		}
	}()
	return ch
}

