package toggl

import (
	"sync"
	"time"
)

// ProjectCache keeps the project list of each workspace for a limited time.
type ProjectCache struct {
	mu      sync.RWMutex
	entries map[int64]cachedProjects
	ttl     time.Duration
}

type cachedProjects struct {
	projects  []Project
	fetchedAt time.Time
}

func NewProjectCache(ttl time.Duration) *ProjectCache {
	return &ProjectCache{
		entries: make(map[int64]cachedProjects),
		ttl:     ttl,
	}
}

func (c *ProjectCache) Get(workspaceID int64) []Project {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cached, ok := c.entries[workspaceID]
	if !ok || time.Since(cached.fetchedAt) > c.ttl {
		return nil
	}

	result := make([]Project, len(cached.projects))
	copy(result, cached.projects)
	return result
}

func (c *ProjectCache) Set(workspaceID int64, projects []Project) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored := make([]Project, len(projects))
	copy(stored, projects)
	c.entries[workspaceID] = cachedProjects{projects: stored, fetchedAt: time.Now()}
}
