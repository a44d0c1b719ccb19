package profile_registry

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sync"

	"diffusion_session_bot/entities"
	"diffusion_session_bot/repositories"
	"diffusion_session_bot/repositories/profiles"
)

type registryImpl struct {
	mu          sync.Mutex
	profiles    []entities.Profile // insertion order
	byName      map[string]int
	profileRepo profiles.Repository
}

type Config struct {
	// ProfileRepo is optional; without it the registry lives in memory only.
	ProfileRepo profiles.Repository
}

func New(ctx context.Context, cfg Config) (Registry, error) {
	registry := &registryImpl{
		byName:      make(map[string]int),
		profileRepo: cfg.ProfileRepo,
	}

	if cfg.ProfileRepo != nil {
		stored, err := cfg.ProfileRepo.ListAll(ctx)
		if err != nil {
			return nil, err
		}

		for _, profile := range stored {
			registry.byName[profile.Name] = len(registry.profiles)
			registry.profiles = append(registry.profiles, profile)
		}
	}

	return registry, nil
}

// Save inserts the profile, or replaces the one already stored under the
// same name in place. Saving with an empty name is a no-op.
func (r *registryImpl) Save(ctx context.Context, profile entities.Profile) error {
	if profile.Name == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if index, exists := r.byName[profile.Name]; exists {
		r.profiles[index] = profile
	} else {
		r.byName[profile.Name] = len(r.profiles)
		r.profiles = append(r.profiles, profile)
	}

	if r.profileRepo != nil {
		if _, err := r.profileRepo.Upsert(ctx, &profile); err != nil {
			return err
		}
	}

	return nil
}

// Remove deletes the named profile; removing an unknown name is a no-op.
func (r *registryImpl) Remove(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, exists := r.byName[name]
	if !exists {
		return nil
	}

	r.profiles = slices.Delete(r.profiles, index, index+1)
	delete(r.byName, name)

	for followerName, followerIndex := range r.byName {
		if followerIndex > index {
			r.byName[followerName] = followerIndex - 1
		}
	}

	if r.profileRepo != nil {
		return r.profileRepo.Delete(ctx, name)
	}

	return nil
}

// List yields the stored profiles in insertion order. The sequence is
// restartable; each range starts from a snapshot taken at the time List was
// called.
func (r *registryImpl) List() iter.Seq[entities.Profile] {
	r.mu.Lock()
	snapshot := slices.Clone(r.profiles)
	r.mu.Unlock()

	return func(yield func(entities.Profile) bool) {
		for _, profile := range snapshot {
			if !yield(profile) {
				return
			}
		}
	}
}

// Apply returns the stored profile for the caller to merge into the active
// slice. The registry itself has no side effects on session state.
func (r *registryImpl) Apply(name string) (*entities.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index, exists := r.byName[name]
	if !exists {
		return nil, repositories.NewNotFoundError(fmt.Sprintf("profile %q", name))
	}

	profile := r.profiles[index]

	return &profile, nil
}
