package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/agent-relay/afk/internal/model"
)

// SessionRepository provides data access for sessions.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, instance_id, machine_name, project_name, working_dir,
		notification, notification_type, context_tail, can_inject, status,
		response, created_at, responded_at`

// Create inserts a new session into the database.
func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	query := `
		INSERT INTO sessions (` + sessionColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.InstanceID,
		session.MachineName,
		session.ProjectName,
		session.WorkingDir,
		session.Notification,
		session.NotificationType,
		session.ContextTail,
		session.CanInject,
		session.Status,
		session.Response,
		session.CreatedAt,
		session.RespondedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	return nil
}

// scanSession scans one session row from either *sql.Row or *sql.Rows.
func scanSession(scan func(dest ...any) error) (*model.Session, error) {
	session := &model.Session{}
	var contextTail sql.NullString
	var response sql.NullString
	var respondedAt sql.NullTime

	err := scan(
		&session.ID,
		&session.InstanceID,
		&session.MachineName,
		&session.ProjectName,
		&session.WorkingDir,
		&session.Notification,
		&session.NotificationType,
		&contextTail,
		&session.CanInject,
		&session.Status,
		&response,
		&session.CreatedAt,
		&respondedAt,
	)
	if err != nil {
		return nil, err
	}

	if contextTail.Valid {
		session.ContextTail = contextTail.String
	}
	if response.Valid {
		resp := response.String
		session.Response = &resp
	}
	if respondedAt.Valid {
		at := respondedAt.Time
		session.RespondedAt = &at
	}

	return session, nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`

	row := r.db.QueryRowContext(ctx, query, id)
	session, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, model.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return session, nil
}

// List retrieves sessions ordered newest-first, optionally filtered by status.
func (r *SessionRepository) List(ctx context.Context, status model.SessionStatus) ([]*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*model.Session
	for rows.Next() {
		session, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// UpdateStatus updates the status of a session. When a response is supplied
// the response text and responded_at timestamp are recorded alongside it.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status model.SessionStatus, response *string) error {
	var result sql.Result
	var err error

	if response != nil {
		query := `
			UPDATE sessions
			SET status = ?, response = ?, responded_at = ?
			WHERE id = ?
		`
		result, err = r.db.ExecContext(ctx, query, status, *response, time.Now().UTC(), id)
	} else {
		query := `UPDATE sessions SET status = ? WHERE id = ?`
		result, err = r.db.ExecContext(ctx, query, status, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update session status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return model.ErrSessionNotFound
	}

	return nil
}

// CountsByStatus returns session totals grouped by status.
func (r *SessionRepository) CountsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count sessions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}

	return counts, nil
}

// CountByStatus returns the number of sessions in the given status.
func (r *SessionRepository) CountByStatus(ctx context.Context, status model.SessionStatus) (int, error) {
	query := `SELECT COUNT(*) FROM sessions WHERE status = ?`

	var count int
	err := r.db.QueryRowContext(ctx, query, status).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}

	return count, nil
}
