package screen

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/beacon/internal/model"
)

// ScheduleContent applies slides at the given time. A time that has already
// passed applies the content right away. Pending schedules are dropped when
// the screen is reset.
func (s *State) ScheduleContent(ctx context.Context, screenID string, slides []model.Slide, at time.Time) error {
	if screenID == "" || at.IsZero() {
		return model.ErrMissingFields
	}

	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotLoaded
	}
	if screenID != s.screen.ScreenID {
		s.mu.Unlock()
		return model.ErrInvalidScreenID
	}

	delay := at.Sub(s.clock.Now())
	if delay <= 0 {
		s.mu.Unlock()
		_, _, err := s.ApplyContent(ctx, screenID, slides)
		return err
	}

	slides = model.CloneSlides(slides)
	var timer clockwork.Timer
	timer = s.clock.AfterFunc(delay, func() {
		s.mu.Lock()
		_, pending := s.scheduled[timer]
		delete(s.scheduled, timer)
		s.mu.Unlock()
		if !pending {
			return
		}
		if _, _, err := s.ApplyContent(context.Background(), screenID, slides); err != nil {
			log.Error().Err(err).Str("screen_id", screenID).Msg("failed to apply scheduled content")
		}
	})
	s.scheduled[timer] = struct{}{}
	s.mu.Unlock()

	log.Info().Str("screen_id", screenID).Time("at", at).Msg("content scheduled")
	return nil
}

// Pending returns the number of schedules that have not fired yet.
func (s *State) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.scheduled)
}

// Close stops every pending schedule.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelScheduledLocked()
}

func (s *State) cancelScheduledLocked() {
	for timer := range s.scheduled {
		timer.Stop()
		delete(s.scheduled, timer)
	}
}
