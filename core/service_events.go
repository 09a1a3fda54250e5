package core

import "context"

// Typed wrappers for the school-domain events. Each is a pure
// argument-shaping adapter over DispatchAsync with a fixed
// (eventType, entityType) pair.

func (s *Service) SyncActivityEvent(ctx context.Context, entityID string, payload map[string]any) (DispatchReceipt, error) {
	return s.DispatchAsync(ctx, SyncEvent{
		EventType:  EventTypeActivityCreated,
		EntityType: EntityTypeActivity,
		EntityID:   entityID,
		Payload:    payload,
	})
}

func (s *Service) SyncMealEvent(ctx context.Context, entityID string, payload map[string]any) (DispatchReceipt, error) {
	return s.DispatchAsync(ctx, SyncEvent{
		EventType:  EventTypeMealRecorded,
		EntityType: EntityTypeMeal,
		EntityID:   entityID,
		Payload:    payload,
	})
}

func (s *Service) SyncNapEvent(ctx context.Context, entityID string, payload map[string]any) (DispatchReceipt, error) {
	return s.DispatchAsync(ctx, SyncEvent{
		EventType:  EventTypeNapRecorded,
		EntityType: EntityTypeNap,
		EntityID:   entityID,
		Payload:    payload,
	})
}

func (s *Service) SyncCheckInEvent(ctx context.Context, entityID string, payload map[string]any) (DispatchReceipt, error) {
	return s.DispatchAsync(ctx, SyncEvent{
		EventType:  EventTypeCheckIn,
		EntityType: EntityTypeAttendance,
		EntityID:   entityID,
		Payload:    payload,
	})
}

func (s *Service) SyncCheckOutEvent(ctx context.Context, entityID string, payload map[string]any) (DispatchReceipt, error) {
	return s.DispatchAsync(ctx, SyncEvent{
		EventType:  EventTypeCheckOut,
		EntityType: EntityTypeAttendance,
		EntityID:   entityID,
		Payload:    payload,
	})
}

func (s *Service) SyncPhotoEvent(ctx context.Context, entityID string, payload map[string]any) (DispatchReceipt, error) {
	return s.DispatchAsync(ctx, SyncEvent{
		EventType:  EventTypePhotoUploaded,
		EntityType: EntityTypePhoto,
		EntityID:   entityID,
		Payload:    payload,
	})
}
