package toggl

import "time"

type Workspace struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Project struct {
	ID          int64  `json:"id"`
	WorkspaceID int64  `json:"workspace_id"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
}

// TimeEntry is a logged entry. ProjectID is nil for entries without a
// project; a negative Duration marks an entry that is still running.
type TimeEntry struct {
	ID          int64      `json:"id"`
	WorkspaceID int64      `json:"workspace_id"`
	ProjectID   *int64     `json:"project_id"`
	Description string     `json:"description"`
	Duration    int64      `json:"duration"`
	Start       time.Time  `json:"start"`
	Stop        *time.Time `json:"stop"`
	Tags        []string   `json:"tags"`
}

func (e TimeEntry) Running() bool {
	return e.Duration < 0
}

// Elapsed is the tracked time of a finished entry.
func (e TimeEntry) Elapsed() time.Duration {
	return time.Duration(e.Duration) * time.Second
}

// InProject reports whether the entry is booked on the given project.
func (e TimeEntry) InProject(projectID int64) bool {
	return e.ProjectID != nil && *e.ProjectID == projectID
}

type TagsUpdate struct {
	Tags        []string `json:"tags"`
	CreatedWith string   `json:"created_with"`
}
