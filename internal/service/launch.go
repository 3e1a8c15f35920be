package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/lionzhd/lionz/internal/catalog"
	"github.com/lionzhd/lionz/internal/data"
	"github.com/lionzhd/lionz/internal/downloadcfg"
	"github.com/lionzhd/lionz/internal/downloader"
	"github.com/lionzhd/lionz/internal/fp"
	"github.com/lionzhd/lionz/internal/metrics"
	"github.com/lionzhd/lionz/internal/reqid"
	"golang.org/x/sync/singleflight"
)

// LaunchResult describes the outcome of one successful launch.
type LaunchResult struct {
	GID           string            `json:"gid"`
	AlreadyActive bool              `json:"alreadyActive"`
	Path          string            `json:"path"`
	Identity      string            `json:"identity"`
	Ref           *data.DownloadRef `json:"ref,omitempty"`
}

// LaunchOutcome is one entry of a batch launch. Exactly one of Result and
// Err is set.
type LaunchOutcome struct {
	Index  int
	Result *LaunchResult
	Err    error
}

func (o LaunchOutcome) OK() bool { return o.Err == nil }

// plan is everything needed to submit one item.
type plan struct {
	item     catalog.Item
	id       catalog.Identity
	identity string
	path     string
	sub      downloader.Submission
}

func (s *download) plan(item catalog.Item, overrides map[string]any) (*plan, error) {
	id, err := catalog.IdentityOf(item)
	if err != nil {
		return nil, err
	}
	identity, err := fp.Fingerprint(id.Kind, id.DownloadableID)
	if err != nil {
		return nil, err
	}
	out, err := catalog.OutputPath(item)
	if err != nil {
		return nil, err
	}
	uri, err := catalog.DownloadURL(s.cfg.Credentials, item)
	if err != nil {
		return nil, err
	}
	opts := downloadcfg.Merge(downloadcfg.Baseline(s.cfg.Policy), map[string]any{"out": out}, overrides)
	return &plan{
		item:     item,
		id:       id,
		identity: identity,
		path:     out,
		sub:      downloader.Submission{URIs: []string{uri}, Options: opts},
	}, nil
}

func (p *plan) ref(gid string) *data.DownloadRef {
	return &data.DownloadRef{
		GID:            gid,
		MediaKind:      p.id.Kind,
		MediaID:        p.id.MediaID,
		DownloadableID: p.id.DownloadableID,
		Episode:        p.id.Episode,
	}
}

func (s *download) Launch(ctx context.Context, item catalog.Item, overrides map[string]any) (*LaunchResult, error) {
	p, err := s.plan(item, overrides)
	if err != nil {
		return nil, err
	}
	// Concurrent launches of the same identity share one check-and-submit.
	// The shared work outlives any single caller; each caller still stops
	// waiting when its own context ends.
	var ran bool
	ch := s.launches.DoChan(p.identity, func() (any, error) {
		ran = true
		return s.launch(context.WithoutCancel(ctx), p)
	})
	var r singleflight.Result
	select {
	case r = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.Err != nil {
		return nil, r.Err
	}
	res := *r.Val.(*LaunchResult)
	if !ran && !res.AlreadyActive {
		// Joined a launch another caller started: the download is active.
		res.AlreadyActive = true
		metrics.Launches.WithLabelValues(metrics.OutcomeAlreadyActive).Inc()
		reqid.Logger(ctx, s.log).Debug("launch collapsed", "identity", p.identity, "gid", res.GID)
	}
	return &res, nil
}

func (s *download) launch(ctx context.Context, p *plan) (*LaunchResult, error) {
	log := reqid.Logger(ctx, s.log).With("identity", p.identity, "media_kind", p.id.Kind, "media_id", p.id.MediaID)

	active, err := s.findActive(ctx, []*plan{p})
	if err != nil {
		metrics.Launches.WithLabelValues(metrics.OutcomeFailed).Inc()
		return nil, err
	}
	if ref := active[0]; ref != nil {
		metrics.Launches.WithLabelValues(metrics.OutcomeAlreadyActive).Inc()
		log.Info("download already active", "gid", ref.GID)
		return &LaunchResult{GID: ref.GID, AlreadyActive: true, Path: p.path, Identity: p.identity, Ref: ref}, nil
	}

	gid, err := s.dlr.Add(ctx, p.sub)
	if err != nil {
		metrics.Launches.WithLabelValues(metrics.OutcomeFailed).Inc()
		log.Warn("launch failed", "err", err)
		return nil, err
	}
	ref, err := s.persist(ctx, p, gid)
	if err != nil {
		log.Error("download started but not persisted", "gid", gid, "err", err)
		return nil, err
	}
	metrics.Launches.WithLabelValues(metrics.OutcomeStarted).Inc()
	log.Info("download launched", "gid", gid, "path", p.path)
	return &LaunchResult{GID: gid, Path: p.path, Identity: p.identity, Ref: ref}, nil
}

// persist saves the ref for an accepted download. The daemon side is left
// running on failure.
func (s *download) persist(ctx context.Context, p *plan, gid string) (*data.DownloadRef, error) {
	ref, err := s.repo.Create(ctx, p.ref(gid))
	if err != nil {
		metrics.Launches.WithLabelValues(metrics.OutcomeUnpersisted).Inc()
		return nil, &data.PersistenceError{GID: gid, Err: err}
	}
	return ref, nil
}

// findActive returns, per plan, the newest ref whose live state counts as
// downloaded or downloading. All candidate GIDs go out in one status batch.
func (s *download) findActive(ctx context.Context, plans []*plan) ([]*data.DownloadRef, error) {
	out := make([]*data.DownloadRef, len(plans))
	candidates := make([]data.DownloadRefs, len(plans))
	var gids []string
	for i, p := range plans {
		if p == nil {
			continue
		}
		refs, err := s.repo.Find(ctx, p.id.Filter())
		if err != nil {
			return nil, err
		}
		candidates[i] = refs
		gids = append(gids, refs.GIDs()...)
	}
	if len(gids) == 0 {
		return out, nil
	}
	res, err := s.dlr.Status(ctx, gids)
	if err != nil {
		return nil, err
	}
	live := make(map[string]data.LifecycleState, len(res))
	for _, r := range res {
		if r.OK() {
			live[r.Value.GID] = r.Value.State
		}
	}
	for i, refs := range candidates {
		for _, ref := range refs {
			if live[ref.GID].DownloadedOrDownloading() {
				out[i] = ref
				break
			}
		}
	}
	return out, nil
}

func (s *download) LaunchBatch(ctx context.Context, items []catalog.Item, overrides map[string]any) ([]LaunchOutcome, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty batch", data.ErrInvalidArgument)
	}
	log := reqid.Logger(ctx, s.log).With("batch_size", len(items))
	out := make([]LaunchOutcome, len(items))
	plans := make([]*plan, len(items))
	seen := make(map[string]int, len(items))
	for i, item := range items {
		out[i].Index = i
		p, err := s.plan(item, overrides)
		if err != nil {
			out[i].Err = err
			continue
		}
		if first, dup := seen[p.identity]; dup {
			out[i].Err = &duplicateError{first: first}
			continue
		}
		seen[p.identity] = i
		plans[i] = p
	}

	active, err := s.findActive(ctx, plans)
	if err != nil {
		return nil, err
	}
	var (
		subs  []downloader.Submission
		slots []int
	)
	for i, p := range plans {
		if p == nil {
			continue
		}
		if ref := active[i]; ref != nil {
			metrics.Launches.WithLabelValues(metrics.OutcomeAlreadyActive).Inc()
			out[i].Result = &LaunchResult{GID: ref.GID, AlreadyActive: true, Path: p.path, Identity: p.identity, Ref: ref}
			continue
		}
		subs = append(subs, p.sub)
		slots = append(slots, i)
	}

	if len(subs) > 0 {
		res, err := s.dlr.AddBatch(ctx, subs)
		if err != nil {
			metrics.Launches.WithLabelValues(metrics.OutcomeFailed).Add(float64(len(subs)))
			log.Warn("batch launch failed", "err", err)
			return nil, err
		}
		for k, r := range res {
			i := slots[k]
			p := plans[i]
			if !r.OK() {
				metrics.Launches.WithLabelValues(metrics.OutcomeFailed).Inc()
				out[i].Err = r.Err
				log.Warn("batch entry rejected", "index", i, "identity", p.identity, "err", r.Err)
				continue
			}
			ref, err := s.persist(ctx, p, r.Value)
			if err != nil {
				out[i].Err = err
				log.Error("batch entry started but not persisted", "index", i, "gid", r.Value, "err", err)
				continue
			}
			metrics.Launches.WithLabelValues(metrics.OutcomeStarted).Inc()
			out[i].Result = &LaunchResult{GID: r.Value, Path: p.path, Identity: p.identity, Ref: ref}
		}
	}

	failed := 0
	for _, o := range out {
		if !o.OK() {
			failed++
		}
	}
	log.Info("batch launch done", "submitted", len(subs), "failed", failed)
	return out, nil
}

// IsPartial reports whether err means the daemon accepted the download but
// the ref was not saved.
func IsPartial(err error) bool {
	var pe *data.PersistenceError
	return errors.As(err, &pe)
}

// LaunchResolved launches the items that resolved and merges resolution
// failures back in at their original positions. resolveErrs[i] non-nil marks
// items[i] as unresolved; it is reported as that entry's error and never
// reaches the daemon.
func LaunchResolved(ctx context.Context, svc Download, items []catalog.Item, resolveErrs []error, overrides map[string]any) ([]LaunchOutcome, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty batch", data.ErrInvalidArgument)
	}
	out := make([]LaunchOutcome, len(items))
	var (
		batch []catalog.Item
		slots []int
	)
	for i, item := range items {
		out[i].Index = i
		if i < len(resolveErrs) && resolveErrs[i] != nil {
			out[i].Err = resolveErrs[i]
			continue
		}
		batch = append(batch, item)
		slots = append(slots, i)
	}
	if len(batch) == 0 {
		return out, nil
	}
	res, err := svc.LaunchBatch(ctx, batch, overrides)
	if err != nil {
		return nil, err
	}
	for k, o := range res {
		i := slots[k]
		o.Index = i
		if o.Err != nil {
			// Duplicate errors name batch positions; report caller positions.
			var dup *duplicateError
			if errors.As(o.Err, &dup) {
				o.Err = &duplicateError{first: slots[dup.first]}
			}
		}
		out[i] = o
	}
	return out, nil
}

// duplicateError marks a batch entry whose identity already appears at an
// earlier position.
type duplicateError struct {
	first int
}

func (e *duplicateError) Error() string {
	return fmt.Sprintf("%v: duplicate of entry %d", data.ErrInvalidArgument, e.first)
}

func (e *duplicateError) Unwrap() error { return data.ErrInvalidArgument }
