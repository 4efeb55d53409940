package service

import (
	"unlock-relay/internal/domain"
	"unlock-relay/internal/repository"
)

type EventService struct {
	events repository.EventRepository
}

func NewEventService(events repository.EventRepository) *EventService {
	return &EventService{
		events: events,
	}
}

// List returns up to limit of the most recent events, oldest first.
func (s *EventService) List(limit int) *domain.EventListResponse {
	events := s.events.Tail(limit)
	return &domain.EventListResponse{
		Events: events,
		Count:  len(events),
	}
}

// Subscribe registers fn for every future event. fn must not block.
func (s *EventService) Subscribe(fn func(domain.Event)) {
	s.events.Subscribe(fn)
}
