package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"studygroups/internal/domain"
)

const groupColumns = `id, subject, description, professor_name, location,
	start_time, end_time, student_limit, organizer_name, organizer_email,
	created_at, expires_at`

// StudyGroupRepo persists study groups. Mutations go through the write pool;
// lookups and listings run on the read pool.
type StudyGroupRepo struct {
	write *sql.DB
	read  *sql.DB
}

func NewStudyGroupRepo(write, read *sql.DB) *StudyGroupRepo {
	return &StudyGroupRepo{write: write, read: read}
}

func (r *StudyGroupRepo) Create(ctx context.Context, g *domain.StudyGroup) (*domain.StudyGroup, error) {
	created := *g
	if created.ID == "" {
		created.ID = uuid.NewString()
	}

	_, err := r.write.ExecContext(ctx, `
		INSERT INTO study_groups (`+groupColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.Subject, nullString(created.Description),
		nullString(created.ProfessorName), created.Location,
		created.StartTime.UTC(), created.EndTime.UTC(),
		nullLimit(created.StudentLimit), nullString(created.OrganizerName),
		created.OrganizerEmail, created.CreatedAt.UTC(), created.ExpiresAt.UTC(),
	)
	if err != nil {
		return nil, mapDBError(err)
	}
	return &created, nil
}

func (r *StudyGroupRepo) GetByID(ctx context.Context, id string) (*domain.StudyGroup, error) {
	row := r.read.QueryRowContext(ctx,
		`SELECT `+groupColumns+` FROM study_groups WHERE id = ?`, id)

	g, err := scanGroup(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("study group not found")
		}
		return nil, err
	}
	return g, nil
}

func (r *StudyGroupRepo) ListWithCounts(ctx context.Context, filter domain.GroupFilter) ([]domain.GroupWithCount, error) {
	query := `
		SELECT g.id, g.subject, g.description, g.professor_name, g.location,
		       g.start_time, g.end_time, g.student_limit, g.organizer_name,
		       g.organizer_email, g.created_at, g.expires_at,
		       COUNT(p.id)
		FROM study_groups g
		LEFT JOIN participants p ON p.study_group_id = g.id
		WHERE 1=1`
	var args []any

	if !filter.ActiveAfter.IsZero() {
		query += ` AND g.end_time > ?`
		args = append(args, filter.ActiveAfter.UTC())
	}
	if filter.OrganizerEmail != "" {
		query += ` AND g.organizer_email = ?`
		args = append(args, filter.OrganizerEmail)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		query += ` AND (g.subject LIKE ? OR g.professor_name LIKE ? OR g.location LIKE ?)`
		args = append(args, pattern, pattern, pattern)
	}

	query += ` GROUP BY g.id ORDER BY g.start_time ASC`

	rows, err := r.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GroupWithCount
	for rows.Next() {
		var (
			g                                         domain.StudyGroup
			description, professorName, organizerName sql.NullString
			limit                                     sql.NullInt64
			count                                     int64
		)
		if err := rows.Scan(
			&g.ID, &g.Subject, &description, &professorName, &g.Location,
			&g.StartTime, &g.EndTime, &limit, &organizerName,
			&g.OrganizerEmail, &g.CreatedAt, &g.ExpiresAt, &count,
		); err != nil {
			return nil, err
		}
		g.Description = description.String
		g.ProfessorName = professorName.String
		g.OrganizerName = organizerName.String
		g.StudentLimit = limitFromNull(limit)
		out = append(out, domain.GroupWithCount{Group: g, ParticipantCount: count})
	}
	return out, rows.Err()
}

// Delete removes the group row; participants go with it via the ON DELETE
// CASCADE foreign key, inside the same implicit transaction.
func (r *StudyGroupRepo) Delete(ctx context.Context, id string) error {
	res, err := r.write.ExecContext(ctx, `DELETE FROM study_groups WHERE id = ?`, id)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("study group not found")
	}
	return nil
}

func (r *StudyGroupRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.write.ExecContext(ctx,
		`DELETE FROM study_groups WHERE expires_at <= ? OR end_time <= ?`,
		now.UTC(), now.UTC())
	if err != nil {
		return 0, mapDBError(err)
	}
	return res.RowsAffected()
}

func scanGroup(row *sql.Row) (*domain.StudyGroup, error) {
	var (
		g                                         domain.StudyGroup
		description, professorName, organizerName sql.NullString
		limit                                     sql.NullInt64
	)
	if err := row.Scan(
		&g.ID, &g.Subject, &description, &professorName, &g.Location,
		&g.StartTime, &g.EndTime, &limit, &organizerName,
		&g.OrganizerEmail, &g.CreatedAt, &g.ExpiresAt,
	); err != nil {
		return nil, err
	}
	g.Description = description.String
	g.ProfessorName = professorName.String
	g.OrganizerName = organizerName.String
	g.StudentLimit = limitFromNull(limit)
	return &g, nil
}

// Compile-time check.
var _ domain.StudyGroupRepository = (*StudyGroupRepo)(nil)
