package service

import (
	"context"
	"fmt"

	"github.com/okian/pacer/internal/adapters/repository"
	"github.com/okian/pacer/internal/domain/model"
	"github.com/okian/pacer/internal/domain/review"
	"github.com/okian/pacer/pkg/metrics"
)

// SubmitEventReview creates or replaces the jogger's review of a finished
// event they were registered for.
func (s *Service) SubmitEventReview(ctx context.Context, eventID int64, email string, rating int, comment string) (model.Review, error) {
	store, _, err := s.deps()
	if err != nil {
		return model.Review{}, err
	}
	if err := review.ValidateRating(rating); err != nil {
		return model.Review{}, err
	}
	event, err := store.GetEvent(ctx, eventID)
	if err != nil {
		return model.Review{}, err
	}
	if _, err := store.GetJogger(ctx, email); err != nil {
		return model.Review{}, err
	}
	registered, err := store.IsRegistered(ctx, eventID, email)
	if err != nil {
		return model.Review{}, err
	}
	if err := review.CheckEventEligibility(event, registered, s.now()); err != nil {
		return model.Review{}, err
	}
	return s.upsertReview(ctx, store, model.Review{
		Target: model.ReviewTargetEvent, TargetID: eventID, JoggerEmail: email, Rating: rating, Comment: comment,
	})
}

// SubmitRouteReview creates or replaces the jogger's review of a route.
func (s *Service) SubmitRouteReview(ctx context.Context, routeID int64, email string, rating int, comment string) (model.Review, error) {
	store, _, err := s.deps()
	if err != nil {
		return model.Review{}, err
	}
	if err := review.ValidateRating(rating); err != nil {
		return model.Review{}, err
	}
	if _, err := store.GetRoute(ctx, routeID); err != nil {
		return model.Review{}, err
	}
	if _, err := store.GetJogger(ctx, email); err != nil {
		return model.Review{}, err
	}
	return s.upsertReview(ctx, store, model.Review{
		Target: model.ReviewTargetRoute, TargetID: routeID, JoggerEmail: email, Rating: rating, Comment: comment,
	})
}

func (s *Service) upsertReview(ctx context.Context, store repository.Store, r model.Review) (model.Review, error) {
	if err := store.UpsertReview(ctx, &r); err != nil {
		return model.Review{}, fmt.Errorf("save review: %w", err)
	}
	metrics.RecordReviewSubmitted(string(r.Target))
	return r, nil
}

// DeleteEventReview removes the jogger's own review of an event.
func (s *Service) DeleteEventReview(ctx context.Context, eventID, reviewID int64, email string) error {
	return s.deleteReview(ctx, model.ReviewTargetEvent, eventID, reviewID, email)
}

// DeleteRouteReview removes the jogger's own review of a route.
func (s *Service) DeleteRouteReview(ctx context.Context, routeID, reviewID int64, email string) error {
	return s.deleteReview(ctx, model.ReviewTargetRoute, routeID, reviewID, email)
}

func (s *Service) deleteReview(ctx context.Context, target model.ReviewTarget, targetID, reviewID int64, email string) error {
	store, _, err := s.deps()
	if err != nil {
		return err
	}
	r, err := store.GetReview(ctx, target, reviewID)
	if err != nil {
		return err
	}
	if r.TargetID != targetID {
		return repository.ErrReviewNotFound
	}
	if r.JoggerEmail != email {
		return ErrForbidden
	}
	return store.DeleteReview(ctx, target, reviewID)
}

// EventReviews lists an event's reviews with their summary.
func (s *Service) EventReviews(ctx context.Context, eventID int64) ([]model.Review, model.ReviewSummary, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, model.ReviewSummary{}, err
	}
	if _, err := store.GetEvent(ctx, eventID); err != nil {
		return nil, model.ReviewSummary{}, err
	}
	return listReviews(ctx, store, model.ReviewTargetEvent, eventID)
}

// RouteReviews lists a route's reviews with their summary.
func (s *Service) RouteReviews(ctx context.Context, routeID int64) ([]model.Review, model.ReviewSummary, error) {
	store, _, err := s.deps()
	if err != nil {
		return nil, model.ReviewSummary{}, err
	}
	if _, err := store.GetRoute(ctx, routeID); err != nil {
		return nil, model.ReviewSummary{}, err
	}
	return listReviews(ctx, store, model.ReviewTargetRoute, routeID)
}

func listReviews(ctx context.Context, store repository.Store, target model.ReviewTarget, id int64) ([]model.Review, model.ReviewSummary, error) {
	rs, err := store.Reviews(ctx, target, id)
	if err != nil {
		return nil, model.ReviewSummary{}, err
	}
	return rs, review.Summarize(rs), nil
}
