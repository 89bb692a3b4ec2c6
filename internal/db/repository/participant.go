package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"studygroups/internal/domain"
)

// ParticipantRepo persists group membership. Joins run on the write pool:
// its single connection plus BEGIN IMMEDIATE transactions are what make the
// count-then-insert join check safe under concurrency. Listings, counts, and
// membership lookups run on the read pool.
type ParticipantRepo struct {
	write *sql.DB
	read  *sql.DB
}

func NewParticipantRepo(write, read *sql.DB) *ParticipantRepo {
	return &ParticipantRepo{write: write, read: read}
}

// Join inserts a participant inside one transaction that re-verifies the
// group exists, the email is not already a member, and the group has a free
// seat. Check order is fixed: existence, membership, capacity.
func (r *ParticipantRepo) Join(ctx context.Context, p *domain.Participant) (*domain.Participant, error) {
	tx, err := r.write.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin join tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var limit sql.NullInt64
	err = tx.QueryRowContext(ctx,
		`SELECT student_limit FROM study_groups WHERE id = ?`, p.StudyGroupID,
	).Scan(&limit)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("study group not found")
		}
		return nil, err
	}

	var member bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM participants WHERE study_group_id = ? AND email = ?)`,
		p.StudyGroupID, p.Email,
	).Scan(&member)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, domain.ErrConflict("already joined this study group")
	}

	if limit.Valid {
		var count int64
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM participants WHERE study_group_id = ?`, p.StudyGroupID,
		).Scan(&count)
		if err != nil {
			return nil, err
		}
		if count >= limit.Int64 {
			return nil, domain.ErrCapacity("study group is full")
		}
	}

	joined := *p
	if joined.ID == "" {
		joined.ID = uuid.NewString()
	}
	if joined.JoinedAt.IsZero() {
		joined.JoinedAt = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO participants (id, study_group_id, name, email, joined_at)
		VALUES (?, ?, ?, ?, ?)`,
		joined.ID, joined.StudyGroupID, joined.Name, joined.Email, joined.JoinedAt.UTC(),
	)
	if err != nil {
		return nil, mapDBError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit join tx: %w", err)
	}
	return &joined, nil
}

func (r *ParticipantRepo) Leave(ctx context.Context, groupID, email string) error {
	res, err := r.write.ExecContext(ctx,
		`DELETE FROM participants WHERE study_group_id = ? AND email = ?`,
		groupID, email)
	if err != nil {
		return mapDBError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound("not a member of this study group")
	}
	return nil
}

func (r *ParticipantRepo) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	var p domain.Participant
	err := r.read.QueryRowContext(ctx, `
		SELECT id, study_group_id, name, email, joined_at
		FROM participants WHERE id = ?`, id,
	).Scan(&p.ID, &p.StudyGroupID, &p.Name, &p.Email, &p.JoinedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, domain.ErrNotFound("participant not found")
		}
		return nil, err
	}
	return &p, nil
}

func (r *ParticipantRepo) ListForGroup(ctx context.Context, groupID string) ([]domain.Participant, error) {
	rows, err := r.read.QueryContext(ctx, `
		SELECT id, study_group_id, name, email, joined_at
		FROM participants WHERE study_group_id = ?
		ORDER BY joined_at ASC`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.StudyGroupID, &p.Name, &p.Email, &p.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ParticipantRepo) CountForGroup(ctx context.Context, groupID string) (int64, error) {
	var count int64
	err := r.read.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM participants WHERE study_group_id = ?`, groupID,
	).Scan(&count)
	return count, err
}

func (r *ParticipantRepo) IsMember(ctx context.Context, groupID, email string) (bool, error) {
	var member bool
	err := r.read.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM participants WHERE study_group_id = ? AND email = ?)`,
		groupID, email,
	).Scan(&member)
	return member, err
}

// Compile-time check.
var _ domain.ParticipantRepository = (*ParticipantRepo)(nil)
