package rabbitmq

import (
	"context"
	"time"

	"github.com/platformed/scimcore/manager"
)

// NotifyingManager wraps a manager.ResourceManager and publishes a
// ResourceEvent to a Notifier after every successful mutation, generalizing
// the teacher's groupsync consumer (which only ever reacted to group
// membership changes funneled through a fixed queue) into a feed any
// resource type's mutations can drive.
type NotifyingManager struct {
	manager.ResourceManager
	notifier *Notifier
}

// NewNotifyingManager returns a NotifyingManager delegating storage to inner
// and publishing to notifier.
func NewNotifyingManager(inner manager.ResourceManager, notifier *Notifier) *NotifyingManager {
	return &NotifyingManager{ResourceManager: inner, notifier: notifier}
}

func (m *NotifyingManager) Create(ctx context.Context, resource map[string]interface{}) (string, error) {
	id, err := m.ResourceManager.Create(ctx, resource)
	if err != nil {
		return "", err
	}
	m.publish(ctx, EventCreated, id, resource)
	return id, nil
}

func (m *NotifyingManager) Update(ctx context.Context, args manager.UpdateArgs) (map[string]interface{}, error) {
	resource, err := m.ResourceManager.Update(ctx, args)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, EventUpdated, args.ID, resource)
	return resource, nil
}

func (m *NotifyingManager) Replace(ctx context.Context, id string, resource map[string]interface{}) (map[string]interface{}, error) {
	out, err := m.ResourceManager.Replace(ctx, id, resource)
	if err != nil {
		return nil, err
	}
	m.publish(ctx, EventUpdated, id, out)
	return out, nil
}

func (m *NotifyingManager) Delete(ctx context.Context, id string) error {
	if err := m.ResourceManager.Delete(ctx, id); err != nil {
		return err
	}
	m.publish(ctx, EventDeleted, id, nil)
	return nil
}

func (m *NotifyingManager) publish(ctx context.Context, eventType EventType, id string, resource map[string]interface{}) {
	_ = m.notifier.Publish(ctx, ResourceEvent{
		Type:         eventType,
		ResourceType: m.ResourceType().Name,
		ID:           id,
		Resource:     resource,
		At:           time.Now().UTC(),
	})
}

var _ manager.ResourceManager = (*NotifyingManager)(nil)
var _ manager.Pinger = (*NotifyingManager)(nil)

// Ping delegates to the wrapped manager if it implements manager.Pinger, so
// wrapping never hides a store's own reachability check from /health.
func (m *NotifyingManager) Ping(ctx context.Context) error {
	if pinger, ok := m.ResourceManager.(manager.Pinger); ok {
		return pinger.Ping(ctx)
	}
	return nil
}
