// Package jobs tracks extraction jobs in memory. A job carries the
// uploaded datasheet images through extraction, confirmation, and
// script generation. Jobs expire after an hour; clients are expected
// to download their output well before that.
package jobs

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/footprintai/backend/internal/models"
)

// MaxJobs limits concurrent jobs to prevent memory exhaustion.
const MaxJobs = 100

// JobMaxAge is how long a job is kept before cleanup.
const JobMaxAge = 1 * time.Hour

// KeepAliveWindow protects recently accessed jobs from cleanup.
const KeepAliveWindow = 5 * time.Minute

// Job is the state of one extraction workflow.
type Job struct {
	ID        string
	CreatedAt time.Time

	// Images are references into the image store, in upload order.
	Images []models.FileInfo

	// Extraction state, populated after a successful extract call.
	Extracted    bool
	Extraction   *models.ExtractionResult
	Footprint    *models.Footprint
	ModelUsed    string
	InputTokens  int
	OutputTokens int

	// Confirmation state, populated after the user accepts the result.
	Confirmed          bool
	ConfirmedFootprint *models.Footprint
	Pin1Index          *int

	Status       models.JobStatus
	ErrorMessage string
	LastAccessed time.Time
}

// Filename returns the first image filename, or empty when no images
// have been uploaded yet.
func (j *Job) Filename() string {
	if len(j.Images) == 0 {
		return ""
	}
	return j.Images[0].Name
}

// ImageCount returns the number of uploaded images.
func (j *Job) ImageCount() int {
	return len(j.Images)
}

// Manager handles active extraction jobs.
type Manager struct {
	jobs map[string]*Job
	mu   sync.RWMutex
}

// NewManager creates a new job manager.
func NewManager() *Manager {
	return &Manager{
		jobs: make(map[string]*Job),
	}
}

// Create registers a new empty job.
func (m *Manager) Create() *Job {
	m.cleanupIfAtCapacity()

	job := &Job{
		ID:           uuid.New().String(),
		CreatedAt:    time.Now(),
		Status:       models.JobStatusPending,
		LastAccessed: time.Now(),
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return job
}

// Get returns a snapshot of a job by ID. Expired jobs are treated as
// missing. The snapshot is detached from the stored job: concurrent
// Set calls never write into it, and mutating it has no effect on the
// manager. Callers wanting post-mutation state call Get again.
func (m *Manager) Get(id string) (*Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return nil, false
	}
	if time.Since(job.CreatedAt) > JobMaxAge {
		return nil, false
	}

	snap := *job
	snap.Images = append([]models.FileInfo(nil), job.Images...)
	return &snap, true
}

// Touch updates the LastAccessed timestamp so an active job is not
// swept by capacity cleanup.
func (m *Manager) Touch(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return false
	}
	job.LastAccessed = time.Now()
	return true
}

// AddImages appends uploaded images to a job. Adding images to an
// already-extracted job resets the extraction so the next extract call
// sees the full image set.
func (m *Manager) AddImages(id string, images ...models.FileInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}

	job.Images = append(job.Images, images...)
	if job.Extracted {
		job.Extracted = false
		job.Extraction = nil
		job.Footprint = nil
		job.Confirmed = false
		job.ConfirmedFootprint = nil
		job.Pin1Index = nil
		job.Status = models.JobStatusPending
	}
	job.LastAccessed = time.Now()
	return nil
}

// SetExtracting marks a job as running extraction.
func (m *Manager) SetExtracting(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, ok := m.jobs[id]; ok {
		job.Status = models.JobStatusExtracting
		job.LastAccessed = time.Now()
	}
}

// SetExtraction stores a successful extraction on a job.
func (m *Manager) SetExtraction(id string, result *models.ExtractionResult, footprint *models.Footprint, modelUsed string, inputTokens, outputTokens int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}

	job.Extracted = true
	job.Extraction = result
	job.Footprint = footprint
	job.ModelUsed = modelUsed
	job.InputTokens = inputTokens
	job.OutputTokens = outputTokens
	job.Status = models.JobStatusExtracted
	job.ErrorMessage = ""
	job.LastAccessed = time.Now()
	return nil
}

// SetError records an extraction failure on a job.
func (m *Manager) SetError(id, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return
	}
	job.Status = models.JobStatusError
	job.ErrorMessage = message
	job.LastAccessed = time.Now()
}

// Confirm accepts the extraction, optionally overriding the pin 1
// index, and freezes the footprint for generation.
func (m *Manager) Confirm(id string, pin1Index *int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return fmt.Errorf("job not found: %s", id)
	}
	if !job.Extracted || job.Extraction == nil {
		return fmt.Errorf("job %s has no extraction to confirm", id)
	}

	job.Confirmed = true
	job.ConfirmedFootprint = job.Footprint
	job.Pin1Index = pin1Index
	job.Status = models.JobStatusConfirmed
	job.LastAccessed = time.Now()
	return nil
}

// SetGenerated marks a job as having produced output files.
func (m *Manager) SetGenerated(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, ok := m.jobs[id]; ok {
		job.Status = models.JobStatusGenerated
		job.LastAccessed = time.Now()
	}
}

// Delete removes a job. Returns false if the job does not exist.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.jobs[id]; !ok {
		return false
	}
	delete(m.jobs, id)
	return true
}

// Count returns the number of live jobs.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.jobs)
}

// CleanupExpired removes jobs older than maxAge. Called periodically
// from the server loop.
func (m *Manager) CleanupExpired(maxAge time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for id, job := range m.jobs {
		if job.CreatedAt.Before(cutoff) {
			delete(m.jobs, id)
			removed++
		}
	}
	return removed
}

// cleanupIfAtCapacity evicts the least recently accessed jobs when the
// manager is full. Jobs touched within KeepAliveWindow survive unless
// everything is recent.
func (m *Manager) cleanupIfAtCapacity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.jobs) < MaxJobs {
		return
	}

	keepAliveCutoff := time.Now().Add(-KeepAliveWindow)
	toFree := len(m.jobs) - MaxJobs + 1
	for id, job := range m.jobs {
		if toFree == 0 {
			break
		}
		if job.LastAccessed.After(keepAliveCutoff) {
			continue
		}
		delete(m.jobs, id)
		toFree--
	}

	// Everything is recent; evict arbitrarily to stay under the cap.
	for id := range m.jobs {
		if toFree == 0 {
			break
		}
		delete(m.jobs, id)
		toFree--
	}
}
