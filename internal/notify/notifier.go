// Package notify delivers best-effort notifications about task and
// membership changes to an external webhook. Delivery failures never fail
// the triggering request.
package notify

import "context"

type Notifier interface {
	NotifyTaskAssigned(ctx context.Context, e TaskAssignedEvent) error
	NotifyTaskStatusChanged(ctx context.Context, e TaskStatusChangedEvent) error
	NotifyMembersAdded(ctx context.Context, e MembersAddedEvent) error
}

// NoopNotifier is used when notifications are disabled.
type NoopNotifier struct{}

func (NoopNotifier) NotifyTaskAssigned(context.Context, TaskAssignedEvent) error           { return nil }
func (NoopNotifier) NotifyTaskStatusChanged(context.Context, TaskStatusChangedEvent) error { return nil }
func (NoopNotifier) NotifyMembersAdded(context.Context, MembersAddedEvent) error           { return nil }
