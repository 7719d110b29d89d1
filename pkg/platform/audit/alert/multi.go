package alert

import (
	"context"
	"errors"

	"sanctum/pkg/platform/audit"
)

// Fanout delivers each alert to every sink and joins their errors.
type Fanout []audit.Alerter

func (f Fanout) Alert(ctx context.Context, event audit.Event) error {
	var errs []error
	for _, sink := range f {
		if err := sink.Alert(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
