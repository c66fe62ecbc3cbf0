package database

import (
	"github.com/heimgewebe/mitschreiber/internal/models"

	"github.com/pkg/errors"

	"gorm.io/gorm"
)

// Repository handles all journal database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository instance
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// CreateState inserts a new state event
func (r *Repository) CreateState(event *models.StateEvent) error {
	if event.Source == "" {
		event.Source = models.SourceState
	}
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert state event")
	}
	return nil
}

// CreateEmbed inserts a new embed event
func (r *Repository) CreateEmbed(event *models.EmbedEvent) error {
	if event.Source == "" {
		event.Source = models.SourceEmbed
	}
	result := r.db.Create(event)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert embed event")
	}
	return nil
}

// CreateErrorLog inserts a new error log into the database
func (r *Repository) CreateErrorLog(errorLog *models.ErrorLog) error {
	result := r.db.Create(errorLog)
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to insert error log")
	}
	return nil
}

// GetStates retrieves a session's state events in timestamp order.
// limit <= 0 returns all of them.
func (r *Repository) GetStates(sessionID string, limit int) ([]*models.StateEvent, error) {
	var events []*models.StateEvent
	query := r.db.Where("session_id = ?", sessionID).Order("timestamp ASC, id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	if result := query.Find(&events); result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query state events")
	}
	return events, nil
}

// GetEmbeds retrieves a session's embed events in timestamp order
func (r *Repository) GetEmbeds(sessionID string) ([]*models.EmbedEvent, error) {
	var events []*models.EmbedEvent
	result := r.db.Where("session_id = ?", sessionID).Order("timestamp ASC, id ASC").Find(&events)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query embed events")
	}
	return events, nil
}

// GetLatest retrieves the most recent state event, optionally for one session
func (r *Repository) GetLatest(sessionID string) (*models.StateEvent, error) {
	var event models.StateEvent
	query := r.db.Order("timestamp DESC, id DESC")
	if sessionID != "" {
		query = query.Where("session_id = ?", sessionID)
	}

	result := query.First(&event)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(result.Error, "failed to get latest event")
	}
	return &event, nil
}

// GetAppSummary returns per-app sample counts for a session
func (r *Repository) GetAppSummary(sessionID string) ([]models.AppSummary, error) {
	var summaries []models.AppSummary

	result := r.db.Model(&models.StateEvent{}).
		Select("app_name, COUNT(*) as sample_count").
		Where("session_id = ?", sessionID).
		Group("app_name").
		Order("sample_count DESC, app_name ASC").
		Scan(&summaries)

	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to query app summary")
	}

	return summaries, nil
}

// ListSessions returns every recorded session with its sample span
func (r *Repository) ListSessions() ([]models.SessionInfo, error) {
	var sessions []models.SessionInfo

	result := r.db.Model(&models.StateEvent{}).
		Select("session_id, COUNT(*) as sample_count").
		Group("session_id").
		Order("session_id ASC").
		Scan(&sessions)
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to list sessions")
	}

	for i := range sessions {
		var first, last models.StateEvent
		if err := r.db.Where("session_id = ?", sessions[i].SessionID).
			Order("timestamp ASC").First(&first).Error; err != nil {
			return nil, errors.Wrap(err, "failed to get first sample")
		}
		if err := r.db.Where("session_id = ?", sessions[i].SessionID).
			Order("timestamp DESC").First(&last).Error; err != nil {
			return nil, errors.Wrap(err, "failed to get last sample")
		}
		sessions[i].FirstSample = first.Timestamp
		sessions[i].LastSample = last.Timestamp
	}

	return sessions, nil
}

// DeleteSession soft-deletes every event recorded for a session
func (r *Repository) DeleteSession(sessionID string) (int64, error) {
	result := r.db.Where("session_id = ?", sessionID).Delete(&models.StateEvent{})
	if result.Error != nil {
		return 0, errors.Wrap(result.Error, "failed to delete session states")
	}
	if err := r.db.Where("session_id = ?", sessionID).Delete(&models.EmbedEvent{}).Error; err != nil {
		return 0, errors.Wrap(err, "failed to delete session embeds")
	}
	return result.RowsAffected, nil
}

// Clear removes all events from the journal
func (r *Repository) Clear() error {
	for _, table := range []string{"state_events", "embed_events", "error_logs"} {
		if result := r.db.Exec("DELETE FROM " + table); result.Error != nil {
			return errors.Wrapf(result.Error, "failed to clear %s", table)
		}
	}
	return nil
}
