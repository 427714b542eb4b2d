package app

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"irecStatApp/internal/domain/model"
	"irecStatApp/internal/domain/repository"
	"irecStatApp/internal/domain/service"
)

// ProjectRegistry is the in-memory set of known projects, keyed by id.
type ProjectRegistry struct {
	mu       sync.RWMutex
	projects map[string]model.ProjectRecord
}

var _ repository.ProjectSource = (*ProjectRegistry)(nil)

func NewProjectRegistry() *ProjectRegistry {
	return &ProjectRegistry{projects: make(map[string]model.ProjectRecord)}
}

// Upsert stores p and reports whether anything changed.
func (r *ProjectRegistry) Upsert(p model.ProjectRecord) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if prev, ok := r.projects[p.ID]; ok && prev == p {
		return false
	}
	r.projects[p.ID] = p
	return true
}

func (r *ProjectRegistry) GetProject(_ context.Context, id string) (model.ProjectRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return model.ProjectRecord{}, fmt.Errorf("%w: %s", service.ErrProjectNotFound, id)
	}
	return p, nil
}

// ListProjects returns every project ordered by id.
func (r *ProjectRegistry) ListProjects(context.Context) ([]model.ProjectRecord, error) {
	r.mu.RLock()
	out := make([]model.ProjectRecord, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *ProjectRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.projects)
}
