package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-member-go/internal/member/entity"
)

var (
	ErrNotFound       = errors.New("member not found")
	ErrDuplicateEmail = errors.New("email already registered")
)

// MemberRepo provides data access for the members table using sqlx.
type MemberRepo struct {
	db *sqlx.DB
}

func NewMemberRepo(db *sqlx.DB) *MemberRepo { return &MemberRepo{db: db} }

type memberRow struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	ProfilePic   string    `db:"profile_pic"`
	Tasks        string    `db:"tasks"`
	CreatedAt    time.Time `db:"created_at"`
}

func (r memberRow) toEntity() (*entity.Member, error) {
	var tasks []string
	if r.Tasks != "" {
		if err := json.Unmarshal([]byte(r.Tasks), &tasks); err != nil {
			return nil, fmt.Errorf("decode tasks of %s: %w", r.ID, err)
		}
	}
	return &entity.Member{
		ID:           r.ID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		ProfilePic:   r.ProfilePic,
		Tasks:        tasks,
		CreatedAt:    r.CreatedAt,
	}, nil
}

// Create inserts m. The email unique constraint decides between concurrent
// registrations: the losing insert affects no row and gets ErrDuplicateEmail.
func (r *MemberRepo) Create(ctx context.Context, m *entity.Member) error {
	tasks := m.Tasks
	if tasks == nil {
		tasks = []string{}
	}
	raw, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	q := r.db.Rebind(`INSERT INTO members (id, name, email, password_hash, profile_pic, tasks)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (email) DO NOTHING
		RETURNING id`)
	var id string
	err = r.db.GetContext(ctx, &id, q, m.ID, m.Name, m.Email, m.PasswordHash, m.ProfilePic, string(raw))
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}
	return nil
}

// GetByEmail returns the member with exactly this email or ErrNotFound.
func (r *MemberRepo) GetByEmail(ctx context.Context, email string) (*entity.Member, error) {
	q := r.db.Rebind(`SELECT id, name, email, password_hash, profile_pic, tasks, created_at
		FROM members WHERE email = ?`)
	var row memberRow
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get member: %w", err)
	}
	return row.toEntity()
}

// ExistsByEmail reports whether an account already uses email.
func (r *MemberRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	q := r.db.Rebind(`SELECT EXISTS (SELECT 1 FROM members WHERE email = ?)`)
	var exists bool
	if err := r.db.GetContext(ctx, &exists, q, email); err != nil {
		return false, fmt.Errorf("check member email: %w", err)
	}
	return exists, nil
}
