package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"pet-dashboard/config"
	"pet-dashboard/models"

	_ "github.com/go-sql-driver/mysql"
)

// DatabaseService manages database connections and queries for pet reports,
// alerts and community activities.
type DatabaseService struct {
	db *sql.DB
}

// NewDatabaseService creates a new database service
func NewDatabaseService(cfg *config.Config) (*DatabaseService, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection with exponential backoff retry
	var waitInterval time.Duration = 1 * time.Second
	for {
		if err := db.Ping(); err == nil {
			break
		} else {
			log.Printf("Database connection failed, retrying in %v: %v", waitInterval, err)
		}
		time.Sleep(waitInterval)
		waitInterval *= 2
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Printf("Database connection established to %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)

	return &DatabaseService{db: db}, nil
}

// DB returns the underlying connection pool for collaborators that maintain
// their own tables (geocode cache).
func (s *DatabaseService) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *DatabaseService) Close() error {
	return s.db.Close()
}

// GetPetReports fetches the full pet report collection. Partitioning by
// status happens client-side in the aggregation pipeline.
func (s *DatabaseService) GetPetReports(ctx context.Context) ([]models.PetReport, error) {
	query := `
		SELECT id, status, pet_type, pet_breed, pet_name, image_url, latitude, longitude, user_id, created_at
		FROM pet_reports
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query pet reports: %w", err)
	}
	defer rows.Close()

	var reports []models.PetReport
	for rows.Next() {
		report, err := scanPetReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pet reports: %w", err)
	}

	return reports, nil
}

// GetReportsByUser fetches the reports owned by a single user, most recent
// first.
func (s *DatabaseService) GetReportsByUser(ctx context.Context, userID string) ([]models.PetReport, error) {
	query := `
		SELECT id, status, pet_type, pet_breed, pet_name, image_url, latitude, longitude, user_id, created_at
		FROM pet_reports
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user reports: %w", err)
	}
	defer rows.Close()

	var reports []models.PetReport
	for rows.Next() {
		report, err := scanPetReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating user reports: %w", err)
	}

	return reports, nil
}

// GetAlerts fetches the five most recent alerts.
func (s *DatabaseService) GetAlerts(ctx context.Context) ([]models.Alert, error) {
	query := `
		SELECT id, title, description, priority, latitude, longitude, created_at
		FROM alerts
		ORDER BY created_at DESC
		LIMIT 5
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var alert models.Alert
		var priority sql.NullString
		var lat, lng sql.NullFloat64
		var createdAt sql.NullTime

		err := rows.Scan(
			&alert.ID,
			&alert.Title,
			&alert.Description,
			&priority,
			&lat,
			&lng,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}

		if priority.Valid {
			alert.Priority = priority.String
		}
		if lat.Valid && lng.Valid {
			alert.Location = &models.GeoPoint{Latitude: lat.Float64, Longitude: lng.Float64}
		}
		if createdAt.Valid {
			ts := createdAt.Time
			alert.CreatedAt = &ts
		}

		alerts = append(alerts, alert)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}

	return alerts, nil
}

// GetActiveActivities fetches the five most recent active community search
// activities. Filtering and limiting happen at the query boundary.
func (s *DatabaseService) GetActiveActivities(ctx context.Context) ([]models.CommunityActivity, error) {
	query := `
		SELECT id, status, pet_name, latitude, longitude, details, created_at
		FROM community_activities
		WHERE status = 'active'
		ORDER BY created_at DESC
		LIMIT 5
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query community activities: %w", err)
	}
	defer rows.Close()

	var activities []models.CommunityActivity
	for rows.Next() {
		var activity models.CommunityActivity
		var petName, details sql.NullString
		var lat, lng sql.NullFloat64
		var createdAt sql.NullTime

		err := rows.Scan(
			&activity.ID,
			&activity.Status,
			&petName,
			&lat,
			&lng,
			&details,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan community activity: %w", err)
		}

		if petName.Valid {
			activity.PetName = &petName.String
		}
		if details.Valid {
			activity.Details = &details.String
		}
		if lat.Valid && lng.Valid {
			activity.Location = &models.GeoPoint{Latitude: lat.Float64, Longitude: lng.Float64}
		}
		if createdAt.Valid {
			ts := createdAt.Time
			activity.CreatedAt = &ts
		}

		activities = append(activities, activity)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating community activities: %w", err)
	}

	return activities, nil
}

// GetUserProfile fetches a single user profile by identity.
func (s *DatabaseService) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := `SELECT id, name, email, avatar FROM users WHERE id = ?`

	var user models.UserProfile
	var avatar sql.NullString
	err := s.db.QueryRowContext(ctx, query, userID).Scan(&user.ID, &user.Name, &user.Email, &avatar)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user profile: %w", err)
	}
	if avatar.Valid {
		user.Avatar = avatar.String
	}

	return &user, nil
}

func scanPetReport(rows *sql.Rows) (models.PetReport, error) {
	var report models.PetReport
	var petType, petBreed, petName, imageURL, userID sql.NullString
	var lat, lng sql.NullFloat64
	var createdAt sql.NullTime

	err := rows.Scan(
		&report.ID,
		&report.Status,
		&petType,
		&petBreed,
		&petName,
		&imageURL,
		&lat,
		&lng,
		&userID,
		&createdAt,
	)
	if err != nil {
		return models.PetReport{}, fmt.Errorf("failed to scan pet report: %w", err)
	}

	if petType.Valid {
		report.PetType = petType.String
	}
	if petBreed.Valid {
		report.PetBreed = petBreed.String
	}
	if petName.Valid {
		report.PetName = &petName.String
	}
	if imageURL.Valid {
		report.ImageURL = &imageURL.String
	}
	if userID.Valid {
		report.UserID = &userID.String
	}
	if lat.Valid && lng.Valid {
		report.Location = &models.GeoPoint{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	if createdAt.Valid {
		ts := createdAt.Time
		report.CreatedAt = &ts
	}

	return report, nil
}
