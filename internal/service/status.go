package service

import (
	"context"
	"errors"

	"github.com/lionzhd/lionz/internal/aria2"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/reqid"
)

func (s *download) StatusFor(ctx context.Context, gids []string) ([]data.StatusView, error) {
	if len(gids) == 0 {
		return []data.StatusView{}, nil
	}
	res, err := s.dlr.Status(ctx, gids)
	if err != nil {
		return nil, err
	}
	out := make([]data.StatusView, len(res))
	for i, r := range res {
		v := r.Value
		if v.GID == "" {
			v.GID = gids[i]
		}
		if !r.OK() {
			v.State = data.StateUnknown
			if v.Err == "" {
				v.Err = r.Err.Error()
			}
		}
		out[i] = v
	}
	return out, nil
}

func (s *download) Downloads(ctx context.Context, limit, offset int) ([]data.RefWithStatus, error) {
	refs, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]data.RefWithStatus, len(refs))
	if len(refs) == 0 {
		return out, nil
	}
	views, err := s.StatusFor(ctx, refs.GIDs())
	var te *aria2.TransportError
	switch {
	case errors.As(err, &te):
		// Daemon unreachable: refs still render, without live state.
		reqid.Logger(ctx, s.log).Warn("status lookup failed; rendering persisted refs only", "err", err)
		views = nil
	case err != nil:
		return nil, err
	}
	byGID := make(map[string]data.StatusView, len(views))
	for _, v := range views {
		byGID[v.GID] = v
	}
	for i, ref := range refs {
		v, ok := byGID[ref.GID]
		if !ok {
			v = data.StatusView{GID: ref.GID, State: data.StateUnknown}
			if err != nil {
				v.Err = err.Error()
			}
		}
		out[i] = data.RefWithStatus{DownloadRef: ref, Status: v}
	}
	return out, nil
}
