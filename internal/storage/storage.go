package storage

import (
	"context"
	"errors"

	"coverSwap/internal/model"
)

// Storage defines a sink for computed plans.
type Storage interface {
	PutPlan(ctx context.Context, record model.PlanRecord) error
}

// Multi fans a record out to every sink and joins their errors.
type Multi []Storage

func (m Multi) PutPlan(ctx context.Context, record model.PlanRecord) error {
	var errs []error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		if err := sink.PutPlan(ctx, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
