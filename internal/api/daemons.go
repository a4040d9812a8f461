package api

import (
	"context"
	"time"
)

const phaseWatchInterval = time.Second

// StartDaemons loads current review phase and starts background tasks.
func (v *View) StartDaemons() error {
	if err := v.phases.Sync(v.core.Context()); err != nil {
		return err
	}
	v.core.StartTask("phase_watch", v.phaseWatchDaemon)
	return nil
}

func (v *View) phaseWatchDaemon(ctx context.Context) {
	v.phases.Watch(ctx, phaseWatchInterval)
}
