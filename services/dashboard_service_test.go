package services

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"pet-dashboard/models"
)

type fakeRepo struct {
	mu sync.Mutex

	reports    []models.PetReport
	reportsErr error

	alerts    []models.Alert
	alertsErr error

	activities    []models.CommunityActivity
	activitiesErr error

	reportCalls int
}

func (f *fakeRepo) GetPetReports(ctx context.Context) ([]models.PetReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportCalls++
	if f.reportsErr != nil {
		return nil, f.reportsErr
	}
	return f.reports, nil
}

func (f *fakeRepo) GetAlerts(ctx context.Context) ([]models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.alertsErr != nil {
		return nil, f.alertsErr
	}
	return f.alerts, nil
}

func (f *fakeRepo) GetActiveActivities(ctx context.Context) ([]models.CommunityActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activitiesErr != nil {
		return nil, f.activitiesErr
	}
	return f.activities, nil
}

func (f *fakeRepo) setReportsErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reportsErr = err
}

func (f *fakeRepo) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reportCalls
}

func newTestDashboard(repo *fakeRepo) *DashboardService {
	pipeline := NewPipelineService(nil, &fakeResolver{})
	return NewDashboardService(repo, pipeline, nil)
}

func testRepoData() *fakeRepo {
	ts := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	return &fakeRepo{
		reports: []models.PetReport{
			{ID: "l1", Status: models.StatusLost, PetType: "Dog", CreatedAt: tsPtr(ts)},
			{ID: "f1", Status: models.StatusFound, PetType: "Dog", CreatedAt: tsPtr(ts.Add(time.Minute))},
		},
		alerts: []models.Alert{
			{ID: "a1", Title: "Sighting", Priority: "high", CreatedAt: tsPtr(ts)},
		},
		activities: []models.CommunityActivity{
			{ID: "c1", Status: "active", CreatedAt: tsPtr(ts)},
		},
	}
}

func TestRefresh_PopulatesState(t *testing.T) {
	repo := testRepoData()
	dashboard := newTestDashboard(repo)

	dashboard.Refresh(context.Background(), false)

	if got := dashboard.LostPets(); len(got) != 1 || got[0].ID != "l1" {
		t.Fatalf("unexpected lost list: %+v", got)
	}
	if got := dashboard.FoundPets(); len(got) != 1 || got[0].PotentialMatches != 1 {
		t.Fatalf("unexpected found list: %+v", got)
	}
	if got := dashboard.Alerts(); len(got) != 1 || got[0].Color != "red" {
		t.Fatalf("unexpected alerts list: %+v", got)
	}
	if got := dashboard.Activities(); len(got) != 1 {
		t.Fatalf("unexpected activities list: %+v", got)
	}

	state := dashboard.RefreshState()
	if state.Error != nil {
		t.Errorf("unexpected error state: %v", *state.Error)
	}
	if state.LastRefresh == nil {
		t.Error("expected last refresh timestamp to be set")
	}
	if state.Loading || state.Refreshing {
		t.Error("expected in-flight flags to be cleared")
	}
}

func TestRefresh_ReportsFailureKeepsLastKnownLists(t *testing.T) {
	repo := testRepoData()
	dashboard := newTestDashboard(repo)

	dashboard.Refresh(context.Background(), false)
	lostBefore := dashboard.LostPets()
	foundBefore := dashboard.FoundPets()
	lastRefreshBefore := dashboard.RefreshState().LastRefresh

	repo.setReportsErr(errors.New("connection refused"))
	dashboard.Refresh(context.Background(), false)

	state := dashboard.RefreshState()
	if state.Error == nil || *state.Error != "Failed to load data. Please try again." {
		t.Fatalf("unexpected error state: %+v", state.Error)
	}
	if !reflect.DeepEqual(dashboard.LostPets(), lostBefore) {
		t.Error("lost list was overwritten on fetch failure")
	}
	if !reflect.DeepEqual(dashboard.FoundPets(), foundBefore) {
		t.Error("found list was overwritten on fetch failure")
	}
	if !state.LastRefresh.Equal(*lastRefreshBefore) {
		t.Error("last refresh timestamp moved despite failed fetch")
	}

	// A later successful refresh clears the error
	repo.setReportsErr(nil)
	dashboard.Refresh(context.Background(), false)
	if dashboard.RefreshState().Error != nil {
		t.Error("expected error to clear after successful refresh")
	}
}

func TestRefresh_AlertsFailureIsIndependent(t *testing.T) {
	repo := testRepoData()
	dashboard := newTestDashboard(repo)

	dashboard.Refresh(context.Background(), false)
	alertsBefore := dashboard.Alerts()

	repo.mu.Lock()
	repo.alertsErr = errors.New("alerts table unavailable")
	repo.mu.Unlock()
	dashboard.Refresh(context.Background(), false)

	state := dashboard.RefreshState()
	if state.AlertsError == nil {
		t.Fatal("expected alerts error to be set")
	}
	if state.Error != nil {
		t.Errorf("alerts failure leaked into the reports error channel: %v", *state.Error)
	}
	if !reflect.DeepEqual(dashboard.Alerts(), alertsBefore) {
		t.Error("alerts list was overwritten on alerts fetch failure")
	}
	if len(dashboard.LostPets()) == 0 {
		t.Error("lost list should still refresh when alerts fail")
	}
}

func TestRefresh_ActivitiesFailureYieldsEmptyList(t *testing.T) {
	repo := testRepoData()
	repo.activitiesErr = errors.New("activities query failed")
	dashboard := newTestDashboard(repo)

	dashboard.Refresh(context.Background(), false)

	if got := dashboard.Activities(); len(got) != 0 {
		t.Errorf("expected empty activities list on failure, got %+v", got)
	}
	if dashboard.RefreshState().Error != nil {
		t.Error("activities failure should not set the blocking error")
	}
}

func TestRefresh_Idempotent(t *testing.T) {
	repo := testRepoData()
	dashboard := newTestDashboard(repo)

	dashboard.Refresh(context.Background(), false)
	first := dashboard.Snapshot()

	dashboard.Refresh(context.Background(), false)
	second := dashboard.Snapshot()

	if !reflect.DeepEqual(first.Lost, second.Lost) {
		t.Error("lost list changed across refreshes with unchanged data")
	}
	if !reflect.DeepEqual(first.Found, second.Found) {
		t.Error("found list changed across refreshes with unchanged data")
	}
	if !reflect.DeepEqual(first.Alerts, second.Alerts) {
		t.Error("alerts list changed across refreshes with unchanged data")
	}
	if !reflect.DeepEqual(first.Activities, second.Activities) {
		t.Error("activities list changed across refreshes with unchanged data")
	}
}

func TestPeriodicRefreshLoop(t *testing.T) {
	repo := testRepoData()
	dashboard := newTestDashboard(repo)

	dashboard.Start(10 * time.Millisecond)
	defer dashboard.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for repo.callCount() < 2 {
		if time.Now().After(deadline) {
			t.Fatal("refresh loop never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRescheduleAndStop(t *testing.T) {
	repo := testRepoData()
	dashboard := newTestDashboard(repo)

	// Non-positive interval disables the loop without disabling manual refresh
	dashboard.Start(0)
	dashboard.Refresh(context.Background(), true)
	if repo.callCount() != 1 {
		t.Fatalf("manual refresh should work with the loop disabled, got %d calls", repo.callCount())
	}

	// Rescheduling replaces any previous registration
	dashboard.Reschedule(10 * time.Millisecond)
	dashboard.Reschedule(10 * time.Millisecond)
	dashboard.Stop()

	// Stop is idempotent
	dashboard.Stop()

	calls := repo.callCount()
	time.Sleep(50 * time.Millisecond)
	if repo.callCount() != calls {
		t.Error("refresh loop still firing after Stop")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	repo := testRepoData()
	dashboard := newTestDashboard(repo)
	dashboard.Refresh(context.Background(), false)

	snapshot := dashboard.Snapshot()
	if len(snapshot.Lost) == 0 {
		t.Fatal("expected lost entries in snapshot")
	}
	snapshot.Lost[0].ID = "mutated"

	if dashboard.LostPets()[0].ID == "mutated" {
		t.Error("snapshot shares backing storage with service state")
	}
}
