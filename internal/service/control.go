package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/reqid"
)

// ControlResult reports what Control did. Launch is set for retries.
type ControlResult struct {
	Ref           *data.DownloadRef   `json:"ref"`
	Action        data.Action         `json:"action"`
	PreviousState data.LifecycleState `json:"previousState"`
	Launch        *LaunchResult       `json:"launch,omitempty"`
}

func (s *download) Control(ctx context.Context, refID int64, action data.Action) (*ControlResult, error) {
	ref, err := s.repo.Get(ctx, refID)
	if err != nil {
		return nil, err
	}
	views, err := s.StatusFor(ctx, []string{ref.GID})
	if err != nil {
		return nil, err
	}
	state := views[0].State
	if !state.CanTake(action) {
		return nil, fmt.Errorf("%w: cannot %s a download in state %s", data.ErrActionNotAllowed, action, state)
	}
	log := reqid.Logger(ctx, s.log).With("gid", ref.GID, "ref_id", ref.ID, "action", action, "state", state)
	res := &ControlResult{Ref: ref, Action: action, PreviousState: state}

	switch action {
	case data.ActionPause:
		err = s.dlr.Pause(ctx, ref.GID)
	case data.ActionResume:
		err = s.dlr.Resume(ctx, ref.GID)
	case data.ActionCancel:
		err = s.dlr.Cancel(ctx, ref.GID)
	case data.ActionRemove:
		err = s.forget(ctx, ref)
	case data.ActionRetry:
		if s.resolver == nil {
			return nil, errors.New("retry unavailable: no metadata resolver configured")
		}
		// Resolve first so a metadata failure leaves the ref in place.
		item, rerr := s.resolver.FromRef(ctx, ref)
		if rerr != nil {
			return nil, rerr
		}
		if err = s.forget(ctx, ref); err != nil {
			break
		}
		res.Launch, err = s.Launch(ctx, item, nil)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", data.ErrInvalidArgument, action)
	}
	if err != nil {
		log.Warn("control failed", "err", err)
		return nil, err
	}
	log.Info("control applied")
	return res, nil
}

// forget purges the daemon's result entry and deletes the ref.
func (s *download) forget(ctx context.Context, ref *data.DownloadRef) error {
	if err := s.dlr.Purge(ctx, ref.GID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, ref.ID)
}

func (s *download) Delete(ctx context.Context, refID int64) error {
	ref, err := s.repo.Get(ctx, refID)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, ref.ID); err != nil {
		return err
	}
	log := reqid.Logger(ctx, s.log).With("gid", ref.GID, "ref_id", ref.ID)
	if err := s.dlr.Purge(ctx, ref.GID); err != nil {
		log.Warn("daemon purge failed after ref delete", "err", err)
	}
	log.Info("download ref deleted")
	return nil
}
