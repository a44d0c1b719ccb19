package session_store

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"diffusion_session_bot/entities"
	"diffusion_session_bot/repositories"
)

const (
	// historyScrollback is the extra retained capacity beyond the display
	// limit, so a recently-evicted entry can still scroll back into view
	// before it is gone for good.
	historyScrollback = 2

	defaultLimit = 4
)

type storeImpl struct {
	mu           sync.Mutex
	state        entities.SessionSnapshot
	serverParams entities.ServerParams
}

type Config struct {
	ServerParams *entities.ServerParams
	Limit        int
}

func New(cfg Config) (Store, error) {
	if cfg.ServerParams == nil {
		return nil, errors.New("missing server params")
	}

	limit := cfg.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	return &storeImpl{
		state:        defaultSnapshot(*cfg.ServerParams, limit),
		serverParams: *cfg.ServerParams,
	}, nil
}

// apply runs one pure snapshot transition under the single-writer lock.
// Every mutation goes from the previous full state to the next full state;
// observers never see anything in between, which is all the serialization
// interleaved completion events need.
func (s *storeImpl) apply(mutate func(entities.SessionSnapshot) entities.SessionSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = mutate(s.state)
}

// PushLoading prepends a loading entry with its readiness unknown. There is
// deliberately no uniqueness check: duplicate submissions of the same key
// coexist until one of them resolves.
func (s *storeImpl) PushLoading(item entities.LoadingItem) {
	item.Status = nil

	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		loading := make([]entities.LoadingItem, 0, len(prev.Loading)+1)
		loading = append(loading, item)
		loading = append(loading, prev.Loading...)

		prev.Loading = loading

		return prev
	})
}

// SetReady replaces the readiness status of the loading entry matching the
// key. A completion for a job the session does not know about is reported,
// not dropped, so lost completions stay observable.
func (s *storeImpl) SetReady(key string, status entities.ReadyStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	index := slices.IndexFunc(s.state.Loading, func(item entities.LoadingItem) bool {
		return item.Response.Key() == key
	})
	if index < 0 {
		return repositories.NewNotFoundError(fmt.Sprintf("loading item %q", key))
	}

	loading := slices.Clone(s.state.Loading)
	loading[index].Status = &status

	s.state.Loading = loading

	return nil
}

// PushHistory archives a completed job: prepend, trim to limit plus
// scrollback, and drop any loading entries sharing the job's key. This is
// the only operation that moves an item out of loading, so a key can never
// sit in both queues at once.
func (s *storeImpl) PushHistory(entry entities.HistoryEntry) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		history := make([]entities.HistoryEntry, 0, len(prev.History)+1)
		history = append(history, entry)
		history = append(history, prev.History...)

		if max := prev.Limit + historyScrollback; len(history) > max {
			history = history[:max:max]
		}

		prev.History = history

		key := entry.Response.Key()

		prev.Loading = slices.DeleteFunc(slices.Clone(prev.Loading), func(item entities.LoadingItem) bool {
			return item.Response.Key() == key
		})

		return prev
	})
}

// RemoveHistory filters out entries matching the full output descriptor
// set, not just the key, so one of several same-key duplicates can be
// removed on its own.
func (s *storeImpl) RemoveHistory(entry entities.HistoryEntry) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.History = slices.DeleteFunc(slices.Clone(prev.History), func(existing entities.HistoryEntry) bool {
			return existing.Response.Equal(entry.Response)
		})

		return prev
	})
}

// RemoveLoading abandons an in-flight job before it resolves.
func (s *storeImpl) RemoveLoading(key string) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Loading = slices.DeleteFunc(slices.Clone(prev.Loading), func(item entities.LoadingItem) bool {
			return item.Response.Key() == key
		})

		return prev
	})
}

// SetLimit updates the capacity bound. Existing history is not retroactively
// truncated; the bound applies on the next push.
func (s *storeImpl) SetLimit(limit int) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Limit = limit

		return prev
	})
}

func (s *storeImpl) SetTxt2Img(patch entities.ParamsPatch) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Txt2Img.Params = patch.Apply(prev.Txt2Img.Params)

		return prev
	})
}

func (s *storeImpl) SetImg2Img(patch entities.ParamsPatch) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Img2Img.Params = patch.Apply(prev.Img2Img.Params)

		return prev
	})
}

func (s *storeImpl) SetImg2ImgSource(source string) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Img2Img.Source = source

		return prev
	})
}

func (s *storeImpl) SetImg2ImgStrength(strength float64) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Img2Img.Strength = strength

		return prev
	})
}

func (s *storeImpl) SetInpaint(patch entities.ParamsPatch) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Inpaint.Params = patch.Apply(prev.Inpaint.Params)

		return prev
	})
}

func (s *storeImpl) SetInpaintSource(source string, mask string) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Inpaint.Source = source
		prev.Inpaint.Mask = mask

		return prev
	})
}

func (s *storeImpl) SetUpscale(patch entities.ParamsPatch) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Upscale.Params = patch.Apply(prev.Upscale.Params)

		return prev
	})
}

func (s *storeImpl) SetUpscaleSource(source string) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Upscale.Source = source

		return prev
	})
}

func (s *storeImpl) SetBlend(sources []string, mask string) {
	sources = slices.Clone(sources)

	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Blend.Sources = sources
		prev.Blend.Mask = mask

		return prev
	})
}

func (s *storeImpl) SetModel(model entities.ModelSlice) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Model = model

		return prev
	})
}

func (s *storeImpl) SetBrush(brush entities.Brush) {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev.Brush = brush

		return prev
	})
}

func (s *storeImpl) resetTxt2Img(prev entities.SessionSnapshot) entities.SessionSnapshot {
	prev.Txt2Img = defaultTxt2Img(s.serverParams)

	return prev
}

func (s *storeImpl) resetImg2Img(prev entities.SessionSnapshot) entities.SessionSnapshot {
	prev.Img2Img = defaultImg2Img(s.serverParams)

	return prev
}

func (s *storeImpl) resetInpaint(prev entities.SessionSnapshot) entities.SessionSnapshot {
	prev.Inpaint = defaultInpaint(s.serverParams)

	return prev
}

func (s *storeImpl) resetUpscale(prev entities.SessionSnapshot) entities.SessionSnapshot {
	prev.Upscale = defaultUpscale(s.serverParams)

	return prev
}

func (s *storeImpl) resetBlend(prev entities.SessionSnapshot) entities.SessionSnapshot {
	prev.Blend = defaultBlend()

	return prev
}

func (s *storeImpl) ResetTxt2Img() { s.apply(s.resetTxt2Img) }
func (s *storeImpl) ResetImg2Img() { s.apply(s.resetImg2Img) }
func (s *storeImpl) ResetInpaint() { s.apply(s.resetInpaint) }
func (s *storeImpl) ResetUpscale() { s.apply(s.resetUpscale) }
func (s *storeImpl) ResetBlend()   { s.apply(s.resetBlend) }

// ResetAll runs every slice reset in a fixed order inside one snapshot
// transition, so observers see either the old session or the fully reset
// one.
func (s *storeImpl) ResetAll() {
	s.apply(func(prev entities.SessionSnapshot) entities.SessionSnapshot {
		prev = s.resetTxt2Img(prev)
		prev = s.resetImg2Img(prev)
		prev = s.resetInpaint(prev)
		prev = s.resetUpscale(prev)
		prev = s.resetBlend(prev)

		return prev
	})
}

// Snapshot returns a copy safe to hand to renderers and the persistence
// middleware.
func (s *storeImpl) Snapshot() entities.SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state
	snapshot.History = slices.Clone(s.state.History)
	snapshot.Loading = slices.Clone(s.state.Loading)
	snapshot.Blend.Sources = slices.Clone(s.state.Blend.Sources)

	return snapshot
}

// Restore replaces the whole session with a persisted snapshot. A snapshot
// written under a different schema version is refused; migrating old blobs
// is the persistence middleware's problem.
func (s *storeImpl) Restore(snapshot entities.SessionSnapshot) error {
	if snapshot.Version != entities.SnapshotVersion {
		return fmt.Errorf("snapshot version %d does not match supported version %d",
			snapshot.Version, entities.SnapshotVersion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = snapshot

	return nil
}
