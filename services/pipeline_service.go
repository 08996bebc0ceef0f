package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"

	"pet-dashboard/models"

	"github.com/golang/geo/s2"
)

const (
	// maxListEntries caps every derived dashboard list.
	maxListEntries = 5

	// earthRadiusMiles converts s2 angles to miles.
	earthRadiusMiles = 3958.8

	behaviorDog     = "Likely to follow scent trails and seek human contact. May travel 1-3 miles from last location."
	behaviorCat     = "Likely hiding within 3-5 houses from last location. May be in small, dark spaces like under porches."
	behaviorDefault = "May be hiding in sheltered areas nearby."

	unknownDistance = "Unknown"
	unknownTime     = "Unknown time"
)

// PlaceResolver resolves coordinates to a human-readable place name. It never
// fails; unresolvable coordinates yield "Unknown Location".
type PlaceResolver interface {
	ResolvePlaceName(ctx context.Context, lat, lng float64) string
}

// PipelineService transforms raw repository records into ranked, enriched
// view-models.
type PipelineService struct {
	viewpoint *models.GeoPoint
	resolver  PlaceResolver
	now       func() time.Time
}

// NewPipelineService creates a new aggregation pipeline. The viewpoint is
// optional; without it distances fall back to a deterministic placeholder
// derived from the record id.
func NewPipelineService(viewpoint *models.GeoPoint, resolver PlaceResolver) *PipelineService {
	return &PipelineService{
		viewpoint: viewpoint,
		resolver:  resolver,
		now:       time.Now,
	}
}

// BuildPetViews partitions reports into lost and found lists, most recent
// first, and enriches each entry with its derived display fields. The found
// list's potential-match counts are computed against the lost set from this
// same pass.
func (s *PipelineService) BuildPetViews(reports []models.PetReport) ([]models.LostPetView, []models.FoundPetView) {
	sorted := make([]models.PetReport, len(reports))
	copy(sorted, reports)
	sort.SliceStable(sorted, func(i, j int) bool {
		return moreRecent(sorted[i].CreatedAt, sorted[j].CreatedAt)
	})

	var lost []models.LostPetView
	var found []models.FoundPetView

	for _, report := range sorted {
		switch report.Status {
		case models.StatusLost:
			if len(lost) >= maxListEntries {
				continue
			}
			lost = append(lost, models.LostPetView{
				PetReport:          report,
				BehaviorPrediction: BehaviorPrediction(report.PetType),
				Distance:           s.distanceLabel(report.Location, report.ID),
				SearchProbability:  derivedProbability(report.ID),
			})
		case models.StatusFound:
			if len(found) >= maxListEntries {
				continue
			}
			found = append(found, models.FoundPetView{
				PetReport:        report,
				Distance:         s.distanceLabel(report.Location, report.ID),
				MatchProbability: derivedProbability(report.ID),
			})
		}
	}

	// Lost-list computation strictly precedes match counting; the found
	// views read a stable snapshot of this pass's lost set.
	for i := range found {
		found[i].PotentialMatches = countPotentialMatches(lost, found[i].PetType)
	}

	return lost, found
}

// BuildAlertViews sorts alerts most recent first, caps the list, and enriches
// each with its humanized age, distance and display color.
func (s *PipelineService) BuildAlertViews(alerts []models.Alert) []models.AlertView {
	sorted := make([]models.Alert, len(alerts))
	copy(sorted, alerts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return moreRecent(sorted[i].CreatedAt, sorted[j].CreatedAt)
	})

	if len(sorted) > maxListEntries {
		sorted = sorted[:maxListEntries]
	}

	now := s.now()
	views := make([]models.AlertView, 0, len(sorted))
	for _, alert := range sorted {
		if alert.Priority == "" {
			alert.Priority = "medium"
		}
		views = append(views, models.AlertView{
			Alert:    alert,
			TimeAgo:  HumanizeAge(alert.CreatedAt, now),
			Distance: s.distanceLabel(alert.Location, alert.ID),
			Color:    PriorityColor(alert.Priority),
		})
	}

	return views
}

// BuildActivityViews resolves a place name for every activity carrying a
// geolocation. Lookups run concurrently and independently; each result is
// keyed to its own activity, so completion order cannot affect another
// activity's name.
func (s *PipelineService) BuildActivityViews(ctx context.Context, activities []models.CommunityActivity) []models.CommunityActivityView {
	views := make([]models.CommunityActivityView, len(activities))
	var wg sync.WaitGroup

	for i, activity := range activities {
		views[i] = models.CommunityActivityView{CommunityActivity: activity}
		if activity.Location == nil {
			views[i].PlaceName = "Unknown Location"
			continue
		}

		wg.Add(1)
		go func(i int, loc models.GeoPoint) {
			defer wg.Done()
			views[i].PlaceName = s.resolver.ResolvePlaceName(ctx, loc.Latitude, loc.Longitude)
		}(i, *activity.Location)
	}

	wg.Wait()
	return views
}

// BehaviorPrediction returns the canned search heuristic for a pet type.
// Matching is case-insensitive; unknown or missing types get the default text.
func BehaviorPrediction(petType string) string {
	switch strings.ToLower(petType) {
	case "dog":
		return behaviorDog
	case "cat":
		return behaviorCat
	default:
		return behaviorDefault
	}
}

// HumanizeAge renders a creation timestamp relative to now: "N min ago" under
// an hour, "N hour(s) ago" under a day, a calendar date beyond that.
func HumanizeAge(createdAt *time.Time, now time.Time) string {
	if createdAt == nil {
		return unknownTime
	}

	minutes := int(now.Sub(*createdAt).Minutes())
	if minutes < 0 {
		minutes = 0
	}

	switch {
	case minutes < 60:
		return fmt.Sprintf("%d min ago", minutes)
	case minutes < 1440:
		hours := minutes / 60
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		return createdAt.Format("Jan 2, 2006")
	}
}

// PriorityColor maps an alert priority to its display color. Unknown
// priorities are treated as low.
func PriorityColor(priority string) string {
	switch strings.ToLower(priority) {
	case "high":
		return "red"
	case "medium":
		return "amber"
	default:
		return "blue"
	}
}

func countPotentialMatches(lost []models.LostPetView, petType string) int {
	count := 0
	for _, l := range lost {
		if strings.EqualFold(l.PetType, petType) {
			count++
		}
	}
	return count
}

// distanceLabel computes the display distance for a record. With a configured
// viewpoint and a geolocation it is the geodesic distance; without a
// viewpoint a stable placeholder in [0.1, 2.0] miles is derived from the
// record id so repeated refreshes stay idempotent. Records without a
// geolocation render as "Unknown".
func (s *PipelineService) distanceLabel(loc *models.GeoPoint, id string) string {
	if loc == nil {
		return unknownDistance
	}
	if s.viewpoint != nil {
		miles := geodesicMiles(*s.viewpoint, *loc)
		return fmt.Sprintf("%.1f miles away", miles)
	}
	miles := 0.1 + float64(idHash(id+":distance")%20)/10.0
	return fmt.Sprintf("%.1f miles away", miles)
}

func geodesicMiles(a, b models.GeoPoint) float64 {
	from := s2.LatLngFromDegrees(a.Latitude, a.Longitude)
	to := s2.LatLngFromDegrees(b.Latitude, b.Longitude)
	return from.Distance(to).Radians() * earthRadiusMiles
}

// derivedProbability maps a record id to a stable value in [70, 99].
func derivedProbability(id string) int {
	return 70 + int(idHash(id+":probability")%30)
}

func idHash(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

// moreRecent orders timestamps most recent first; a missing timestamp sorts
// as earliest possible. Used with a stable sort so ties keep input order.
func moreRecent(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}
