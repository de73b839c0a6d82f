package social

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/pkg/models"
	"github.com/google/uuid"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

var (
	ErrClubNotFound  = apierr.NotFound("Book club not found")
	ErrAlreadyMember = apierr.Validation("Already a member of this club")
	ErrPrivateClub   = apierr.Validation("This book club is private")
)

const clubColumns = `c.id, c.name, c.description, c.is_public, c.creator_id, c.current_book_id, c.created_at,
	(SELECT COUNT(*) FROM book_club_members m WHERE m.club_id = c.id)`

type Member struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanClub(row rowScanner) (models.BookClub, error) {
	var c models.BookClub
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.IsPublic, &c.CreatorID, &c.CurrentBookID, &c.CreatedAt, &c.MemberCount)
	return c, err
}

// List returns public clubs plus private clubs the viewer belongs to, newest first.
func (r *Repository) List(ctx context.Context, viewerID string, limit, offset int) ([]models.BookClub, int, error) {
	const visible = ` FROM book_clubs c WHERE c.is_public = 1
		OR EXISTS (SELECT 1 FROM book_club_members m WHERE m.club_id = c.id AND m.user_id = ?)`

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*)`+visible, viewerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count clubs: %w", err)
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+clubColumns+visible+` ORDER BY c.created_at DESC, c.id LIMIT ? OFFSET ?`, viewerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list clubs: %w", err)
	}
	defer rows.Close()

	clubs := []models.BookClub{}
	for rows.Next() {
		c, err := scanClub(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan club: %w", err)
		}
		clubs = append(clubs, c)
	}
	return clubs, total, rows.Err()
}

func (r *Repository) Get(ctx context.Context, clubID string) (models.BookClub, error) {
	c, err := scanClub(r.db.QueryRowContext(ctx, `SELECT `+clubColumns+` FROM book_clubs c WHERE c.id = ?`, clubID))
	if errors.Is(err, sql.ErrNoRows) {
		return c, ErrClubNotFound
	}
	if err != nil {
		return c, fmt.Errorf("get club: %w", err)
	}
	return c, nil
}

// Create stores a club with its creator as the first admin member.
func (r *Repository) Create(ctx context.Context, creatorID string, req models.CreateClubRequest, now time.Time) (models.BookClub, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return models.BookClub{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO book_clubs (id, name, description, is_public, creator_id, current_book_id, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, strings.TrimSpace(req.Name), strings.TrimSpace(req.Description), *req.IsPublic, creatorID, req.CurrentBookID, now.UTC())
	if err != nil {
		return models.BookClub{}, fmt.Errorf("insert club: %w", err)
	}
	if err := addMember(ctx, tx, id, creatorID, RoleAdmin, now); err != nil {
		return models.BookClub{}, err
	}
	if err := tx.Commit(); err != nil {
		return models.BookClub{}, fmt.Errorf("commit: %w", err)
	}
	return r.Get(ctx, id)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func addMember(ctx context.Context, q execer, clubID, userID, role string, now time.Time) error {
	res, err := q.ExecContext(ctx,
		`INSERT OR IGNORE INTO book_club_members (club_id, user_id, role, joined_at) VALUES (?, ?, ?, ?)`,
		clubID, userID, role, now.UTC())
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAlreadyMember
	}
	return nil
}

func (r *Repository) AddMember(ctx context.Context, clubID, userID string, now time.Time) error {
	return addMember(ctx, r.db, clubID, userID, RoleMember, now)
}

func (r *Repository) IsMember(ctx context.Context, clubID, userID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM book_club_members WHERE club_id = ? AND user_id = ?`, clubID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("membership: %w", err)
	}
	return true, nil
}

func (r *Repository) Members(ctx context.Context, clubID string) ([]Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.user_id, u.username, m.role, m.joined_at
		FROM book_club_members m JOIN users u ON u.id = m.user_id
		WHERE m.club_id = ? ORDER BY m.joined_at, u.username`, clubID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()
	members := []Member{}
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Username, &m.Role, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
