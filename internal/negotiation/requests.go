package negotiation

import (
	"context"
	"errors"

	"skillswap/backend/internal/errs"
	"skillswap/backend/internal/lifecycle"
	"skillswap/backend/internal/metrics"
	"skillswap/backend/internal/models"
	"skillswap/backend/internal/storage"
)

func (s *Service) Create(ctx context.Context, ownerID string, d lifecycle.Draft) (*models.ServiceRequest, error) {
	r, err := lifecycle.Validate(d, ownerID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateRequest(ctx, r); err != nil {
		s.log.Error("create request failed", "owner_id", ownerID, "error", err)
		return nil, err
	}
	metrics.RequestsCreated.Inc()
	s.log.Info("request created", "request_id", r.ID, "owner_id", ownerID)
	return r, s.resolve(ctx, r)
}

// List returns every request, or only those owned by ownerID when it is set.
func (s *Service) List(ctx context.Context, ownerID string) ([]models.ServiceRequest, error) {
	items, err := s.store.ListRequests(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(items)*2)
	for _, r := range items {
		ids = append(ids, r.OwnerID)
		if r.AssignedTo != nil {
			ids = append(ids, *r.AssignedTo)
		}
	}
	users, err := s.summaries(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for i := range items {
		attach(&items[i], users)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.ServiceRequest, error) {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	return r, s.resolve(ctx, r)
}

// UpdateStatus moves a request to desired by dispatching to Claim, Cancel or Complete.
func (s *Service) UpdateStatus(ctx context.Context, id string, desired models.RequestStatus, actorID string) (*Result, error) {
	a, err := lifecycle.ActionFor(desired)
	if err != nil {
		return nil, err
	}
	switch a {
	case lifecycle.ActionClaim:
		return s.Claim(ctx, id, actorID)
	case lifecycle.ActionCancel:
		r, err := s.Cancel(ctx, id, actorID)
		if err != nil {
			return nil, err
		}
		return &Result{Request: r}, nil
	default:
		r, err := s.Complete(ctx, id, actorID)
		if err != nil {
			return nil, err
		}
		return &Result{Request: r}, nil
	}
}

// Claim assigns an open request to actorID and opens its chat channel. Claiming a request
// the caller already holds returns the existing channel. If the channel cannot be created
// right away the claim still stands; GetOrCreateChannel creates it later.
func (s *Service) Claim(ctx context.Context, id, actorID string) (*Result, error) {
	r, err := s.transition(ctx, lifecycle.ActionClaim, id, actorID)
	switch {
	case errors.Is(err, lifecycle.ErrAlreadyClaimed):
		metrics.Transitions.WithLabelValues("claim", "noop").Inc()
	case err != nil:
		return nil, err
	default:
		s.notify.RequestClaimed(ctx, r)
	}

	res := &Result{Request: r}
	ch, err := s.store.EnsureChannel(ctx, r)
	if err != nil {
		s.log.Warn("channel creation deferred", "request_id", id, "error", err)
		return res, nil
	}
	res.Channel = ch
	return res, nil
}

func (s *Service) Cancel(ctx context.Context, id, actorID string) (*models.ServiceRequest, error) {
	return s.transition(ctx, lifecycle.ActionCancel, id, actorID)
}

func (s *Service) Complete(ctx context.Context, id, actorID string) (*models.ServiceRequest, error) {
	r, err := s.transition(ctx, lifecycle.ActionComplete, id, actorID)
	if err != nil {
		return nil, err
	}
	s.notify.RequestCompleted(ctx, r)
	return r, nil
}

// Delete removes an owner's request that has no negotiation history.
func (s *Service) Delete(ctx context.Context, id, actorID string) error {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return err
	}
	if err := lifecycle.CheckDelete(r, actorID); err != nil {
		return err
	}
	if err := s.store.DeleteRequest(ctx, id); err != nil {
		return err
	}
	s.log.Info("request deleted", "request_id", id, "owner_id", actorID)
	return nil
}

// transition checks a against the stored record and applies it as a conditional update.
// When the update matches no row someone else changed the request in between; the record
// is re-read so the caller gets the error that matches its current state.
// ErrAlreadyClaimed comes back together with the current record.
func (s *Service) transition(ctx context.Context, a lifecycle.Action, id, actorID string) (*models.ServiceRequest, error) {
	r, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Check(a, r, actorID); err != nil {
		return s.rejected(ctx, a, r, err)
	}

	change := storage.StatusChange{ID: id, From: a.From(), To: a.To()}
	switch a {
	case lifecycle.ActionClaim:
		change.AssignTo = actorID
	case lifecycle.ActionComplete:
		change.RequireAssignee = actorID
	}

	applied, err := s.store.ChangeRequestStatus(ctx, change)
	if err != nil {
		return nil, err
	}
	if !applied {
		metrics.Transitions.WithLabelValues(a.String(), "lost_race").Inc()
		if r, err = s.store.GetRequest(ctx, id); err != nil {
			return nil, err
		}
		if err := lifecycle.Check(a, r, actorID); err != nil {
			return s.rejected(ctx, a, r, err)
		}
		return nil, errs.Conflict("request %s was changed concurrently", id)
	}

	metrics.Transitions.WithLabelValues(a.String(), "applied").Inc()
	s.log.Info("request transition", "action", a, "request_id", id, "actor_id", actorID, "to", a.To())

	if r, err = s.store.GetRequest(ctx, id); err != nil {
		return nil, err
	}
	return r, s.resolve(ctx, r)
}

func (s *Service) rejected(ctx context.Context, a lifecycle.Action, r *models.ServiceRequest, err error) (*models.ServiceRequest, error) {
	if errors.Is(err, lifecycle.ErrAlreadyClaimed) {
		if rerr := s.resolve(ctx, r); rerr != nil {
			return nil, rerr
		}
		return r, err
	}
	metrics.Transitions.WithLabelValues(a.String(), "rejected").Inc()
	s.log.Debug("transition rejected", "what", lifecycle.Describe(a, r), "error", err)
	return nil, err
}

func (s *Service) resolve(ctx context.Context, r *models.ServiceRequest) error {
	ids := []string{r.OwnerID}
	if r.AssignedTo != nil {
		ids = append(ids, *r.AssignedTo)
	}
	users, err := s.summaries(ctx, ids...)
	if err != nil {
		return err
	}
	attach(r, users)
	return nil
}

func attach(r *models.ServiceRequest, users map[string]models.UserSummary) {
	if u, ok := users[r.OwnerID]; ok {
		r.Owner = &u
	}
	if r.AssignedTo != nil {
		if u, ok := users[*r.AssignedTo]; ok {
			r.Assignee = &u
		}
	}
}
