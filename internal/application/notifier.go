package application

import "context"

type Notifier interface {
	Notify(ctx context.Context, result *Result) error
}

type NoopNotifier struct{}

func (n *NoopNotifier) Notify(_ context.Context, _ *Result) error {
	return nil
}

// MultiNotifier hands each result to every notifier, returning the first
// error after all have run.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, result *Result) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, result); err != nil && first == nil {
			first = err
		}
	}
	return first
}
