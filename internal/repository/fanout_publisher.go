package repository

import (
	"context"
	"errors"

	"SignalEngine/internal/domain/models"
	domrepo "SignalEngine/internal/domain/repository"
)

// FanoutPublisher forwards each signal to every sink and joins their errors.
// A failing sink does not stop the others.
type FanoutPublisher struct {
	sinks []domrepo.SignalPublisher
}

func NewFanoutPublisher(sinks ...domrepo.SignalPublisher) *FanoutPublisher {
	out := make([]domrepo.SignalPublisher, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return &FanoutPublisher{sinks: out}
}

func (f *FanoutPublisher) Publish(ctx context.Context, sig models.AggregateSignal) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Publish(ctx, sig); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *FanoutPublisher) Close() error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len reports how many sinks are attached.
func (f *FanoutPublisher) Len() int { return len(f.sinks) }

var _ domrepo.SignalPublisher = (*FanoutPublisher)(nil)
