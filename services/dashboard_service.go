package services

import (
	"context"
	"sync"
	"time"

	"pet-dashboard/metrics"
	"pet-dashboard/models"

	"github.com/apex/log"
)

// reportsFetchError is the user-facing message for a failed reports fetch.
const reportsFetchError = "Failed to load data. Please try again."

// Repository is the read-only store the dashboard refreshes from.
type Repository interface {
	GetPetReports(ctx context.Context) ([]models.PetReport, error)
	GetAlerts(ctx context.Context) ([]models.Alert, error)
	GetActiveActivities(ctx context.Context) ([]models.CommunityActivity, error)
}

// Broadcaster pushes a fresh snapshot to connected clients.
type Broadcaster interface {
	BroadcastSnapshot(snapshot models.DashboardSnapshot)
}

// DashboardService owns the dashboard view-model state and the periodic
// refresh loop. All state mutation goes through applyRefreshResult; the
// presentation layer only reads.
type DashboardService struct {
	repo     Repository
	pipeline *PipelineService
	hub      Broadcaster

	mu         sync.RWMutex
	lost       []models.LostPetView
	found      []models.FoundPetView
	alerts     []models.AlertView
	activities []models.CommunityActivityView
	refresh    models.RefreshState

	// Refresh loop control. At most one loop is active; rescheduling
	// cancels the previous one before starting a new one.
	loopMu   sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup

	now func() time.Time
}

// NewDashboardService creates a new dashboard service. The broadcaster is
// optional.
func NewDashboardService(repo Repository, pipeline *PipelineService, hub Broadcaster) *DashboardService {
	return &DashboardService{
		repo:     repo,
		pipeline: pipeline,
		hub:      hub,
		now:      time.Now,
	}
}

// Start begins the periodic refresh loop. A non-positive interval disables
// the loop; manual refresh stays available either way.
func (s *DashboardService) Start(interval time.Duration) {
	s.Reschedule(interval)
}

// Reschedule replaces the refresh interval, cancelling the previous loop
// before establishing the new one.
func (s *DashboardService) Reschedule(interval time.Duration) {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()

	s.stopLocked()
	if interval <= 0 {
		log.Info("periodic refresh disabled")
		return
	}

	s.stopChan = make(chan struct{})
	s.wg.Add(1)
	go s.refreshLoop(interval, s.stopChan)
	log.Infof("periodic refresh every %v", interval)
}

// Stop cancels the refresh loop. Safe to call when no loop is running.
func (s *DashboardService) Stop() {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	s.stopLocked()
}

func (s *DashboardService) stopLocked() {
	if s.stopChan == nil {
		return
	}
	close(s.stopChan)
	s.stopChan = nil
	s.wg.Wait()
}

func (s *DashboardService) refreshLoop(interval time.Duration, stop chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Refresh(context.Background(), false)
		}
	}
}

// TriggerRefresh runs one user-initiated refresh out of band. It does not
// reset the interval timer.
func (s *DashboardService) TriggerRefresh() {
	go s.Refresh(context.Background(), true)
}

// Refresh fetches all data sources and rebuilds the view-model state. Safe
// to call concurrently: overlapping refreshes interleave and the last applied
// result wins, matching the read-mostly display semantics. A reports fetch
// failure preserves the previously rendered lost/found lists; an alerts fetch
// failure is independent and non-fatal; an activities failure yields an empty
// list.
func (s *DashboardService) Refresh(ctx context.Context, userInitiated bool) {
	started := s.now()
	s.setInFlight(true, userInitiated)
	defer s.setInFlight(false, userInitiated)

	result := refreshResult{fetchedAt: started}

	reports, err := s.repo.GetPetReports(ctx)
	if err != nil {
		log.WithError(err).Error("pet reports fetch failed")
		msg := reportsFetchError
		result.reportsErr = &msg
	} else {
		result.lost, result.found = s.pipeline.BuildPetViews(reports)
		result.reportsOK = true
	}

	alerts, err := s.repo.GetAlerts(ctx)
	if err != nil {
		log.WithError(err).Warn("alerts fetch failed")
		msg := err.Error()
		result.alertsErr = &msg
	} else {
		result.alerts = s.pipeline.BuildAlertViews(alerts)
		result.alertsOK = true
	}

	activities, err := s.repo.GetActiveActivities(ctx)
	if err != nil {
		log.WithError(err).Warn("community activities fetch failed")
		result.activities = []models.CommunityActivityView{}
	} else {
		result.activities = s.pipeline.BuildActivityViews(ctx, activities)
	}

	s.applyRefreshResult(result)

	outcome := "ok"
	if !result.reportsOK {
		outcome = "error"
	}
	metrics.RefreshTotal.WithLabelValues(outcome).Inc()
	metrics.RefreshDurationSeconds.Observe(s.now().Sub(started).Seconds())

	if s.hub != nil {
		s.hub.BroadcastSnapshot(s.Snapshot())
	}
}

type refreshResult struct {
	fetchedAt  time.Time
	reportsOK  bool
	reportsErr *string
	lost       []models.LostPetView
	found      []models.FoundPetView
	alertsOK   bool
	alertsErr  *string
	alerts     []models.AlertView
	activities []models.CommunityActivityView
}

// applyRefreshResult is the single mutation entry point for view-model state.
func (s *DashboardService) applyRefreshResult(result refreshResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if result.reportsOK {
		s.lost = result.lost
		s.found = result.found
		s.refresh.Error = nil
		ts := result.fetchedAt
		s.refresh.LastRefresh = &ts
		metrics.LastRefreshTimestamp.Set(float64(ts.Unix()))
	} else {
		// Keep last-known-good lists; never overwrite with empty data.
		s.refresh.Error = result.reportsErr
	}

	if result.alertsOK {
		s.alerts = result.alerts
		s.refresh.AlertsError = nil
	} else {
		s.refresh.AlertsError = result.alertsErr
	}

	s.activities = result.activities
}

func (s *DashboardService) setInFlight(active, userInitiated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if userInitiated {
		s.refresh.Refreshing = active
	} else {
		s.refresh.Loading = active
	}
}

// LostPets returns the current lost list.
func (s *DashboardService) LostPets() []models.LostPetView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LostPetView, len(s.lost))
	copy(out, s.lost)
	return out
}

// FoundPets returns the current found list.
func (s *DashboardService) FoundPets() []models.FoundPetView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FoundPetView, len(s.found))
	copy(out, s.found)
	return out
}

// Alerts returns the current alerts list.
func (s *DashboardService) Alerts() []models.AlertView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AlertView, len(s.alerts))
	copy(out, s.alerts)
	return out
}

// Activities returns the current community activities list.
func (s *DashboardService) Activities() []models.CommunityActivityView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.CommunityActivityView, len(s.activities))
	copy(out, s.activities)
	return out
}

// RefreshState returns the current refresh lifecycle state.
func (s *DashboardService) RefreshState() models.RefreshState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

// Snapshot returns the full view-model state.
func (s *DashboardService) Snapshot() models.DashboardSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := models.DashboardSnapshot{
		Lost:       make([]models.LostPetView, len(s.lost)),
		Found:      make([]models.FoundPetView, len(s.found)),
		Alerts:     make([]models.AlertView, len(s.alerts)),
		Activities: make([]models.CommunityActivityView, len(s.activities)),
		Refresh:    s.refresh,
	}
	copy(snapshot.Lost, s.lost)
	copy(snapshot.Found, s.found)
	copy(snapshot.Alerts, s.alerts)
	copy(snapshot.Activities, s.activities)
	return snapshot
}
