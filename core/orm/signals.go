package orm

import (
	"context"

	"github.com/danielafriyie/raccy-orm/config"
	"github.com/danielafriyie/raccy-orm/core/signals"
)

// InstanceReceiver handles an insert or delete signal.
type InstanceReceiver func(ctx context.Context, instance *Instance) error

// UpdateReceiver handles an update signal. updated holds the proposed
// values, old the persisted ones.
type UpdateReceiver func(ctx context.Context, updated, old *Instance) error

// InstanceSignal is a lifecycle signal carrying one instance.
type InstanceSignal struct {
	sig *signals.Signal
}

// Connect appends fn to the receivers of model.
func (s *InstanceSignal) Connect(model *Model, fn InstanceReceiver) signals.ID {
	return s.sig.Connect(model, func(ctx context.Context, args ...any) error {
		return fn(ctx, args[0].(*Instance))
	})
}

// Disconnect removes a receiver of model.
func (s *InstanceSignal) Disconnect(model *Model, id signals.ID) error {
	return s.sig.Disconnect(model, id)
}

// Signal returns the underlying dispatcher.
func (s *InstanceSignal) Signal() *signals.Signal { return s.sig }

func (s *InstanceSignal) notify(ctx context.Context, inst *Instance) error {
	err := s.sig.Notify(ctx, inst.model, inst)
	observeSignal(s.sig.Name(), err)
	return err
}

// UpdateSignal is a lifecycle signal carrying the new and old state of an
// instance.
type UpdateSignal struct {
	sig *signals.Signal
}

// Connect appends fn to the receivers of model.
func (s *UpdateSignal) Connect(model *Model, fn UpdateReceiver) signals.ID {
	return s.sig.Connect(model, func(ctx context.Context, args ...any) error {
		return fn(ctx, args[0].(*Instance), args[1].(*Instance))
	})
}

// Disconnect removes a receiver of model.
func (s *UpdateSignal) Disconnect(model *Model, id signals.ID) error {
	return s.sig.Disconnect(model, id)
}

// Signal returns the underlying dispatcher.
func (s *UpdateSignal) Signal() *signals.Signal { return s.sig }

func (s *UpdateSignal) notify(ctx context.Context, updated, old *Instance) error {
	err := s.sig.Notify(ctx, updated.model, updated, old)
	observeSignal(s.sig.Name(), err)
	return err
}

// Lifecycle signals. Concrete models are registered with all of them when
// they are defined.
var (
	BeforeInsert = &InstanceSignal{sig: signals.New("before_insert")}
	AfterInsert  = &InstanceSignal{sig: signals.New("after_insert")}
	BeforeUpdate = &UpdateSignal{sig: signals.New("before_update")}
	AfterUpdate  = &UpdateSignal{sig: signals.New("after_update")}
	BeforeDelete = &InstanceSignal{sig: signals.New("before_delete")}
	AfterDelete  = &InstanceSignal{sig: signals.New("after_delete")}
)

func allSignals() []*signals.Signal {
	return []*signals.Signal{
		BeforeInsert.sig, AfterInsert.sig,
		BeforeUpdate.sig, AfterUpdate.sig,
		BeforeDelete.sig, AfterDelete.sig,
	}
}

func observeSignal(name string, err error) {
	if o := config.Global().Metrics(); o != nil {
		o.Signal(name, err)
	}
}
