package social

import (
	"context"
	"errors"
	"time"

	"github.com/binhbb2204/litverse/internal/gamification"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/models"
)

// EventMemberJoined is pushed to a club room when a reader joins.
const EventMemberJoined = "book-club-member-joined"

// ClubPublisher delivers events to a club's real-time room.
type ClubPublisher interface {
	PublishToClub(clubID, event string, data interface{})
}

type Service struct {
	repo      *Repository
	points    *gamification.Service
	publisher ClubPublisher
	now       func() time.Time
}

func NewService(repo *Repository, points *gamification.Service, publisher ClubPublisher) *Service {
	return &Service{repo: repo, points: points, publisher: publisher, now: time.Now}
}

func (s *Service) List(ctx context.Context, viewerID string, page, limit int) ([]models.BookClub, int, error) {
	return s.repo.List(ctx, viewerID, limit, (page-1)*limit)
}

func (s *Service) Create(ctx context.Context, creatorID string, req models.CreateClubRequest) (models.BookClub, error) {
	club, err := s.repo.Create(ctx, creatorID, req, s.now())
	if err != nil {
		return club, err
	}
	logger.Info("book_club_created", "club_id", club.ID, "creator_id", creatorID, "public", club.IsPublic)
	return club, nil
}

// Get hides private clubs from non-members.
func (s *Service) Get(ctx context.Context, clubID, viewerID string) (models.BookClub, []Member, error) {
	club, err := s.repo.Get(ctx, clubID)
	if err != nil {
		return club, nil, err
	}
	if !club.IsPublic {
		ok, err := s.repo.IsMember(ctx, clubID, viewerID)
		if err != nil {
			return club, nil, err
		}
		if !ok {
			return models.BookClub{}, nil, ErrClubNotFound
		}
	}
	members, err := s.repo.Members(ctx, clubID)
	if err != nil {
		return club, nil, err
	}
	return club, members, nil
}

// Join adds the reader to a public club and awards the social bonus.
func (s *Service) Join(ctx context.Context, clubID, userID string) (models.BookClub, *gamification.Outcome, error) {
	club, err := s.repo.Get(ctx, clubID)
	if err != nil {
		return club, nil, err
	}
	if !club.IsPublic {
		return club, nil, ErrPrivateClub
	}
	if err := s.repo.AddMember(ctx, clubID, userID, s.now()); err != nil {
		return club, nil, err
	}
	club.MemberCount++

	var outcome *gamification.Outcome
	if s.points != nil {
		outcome, err = s.points.JoinClub(ctx, userID)
		if err != nil {
			return club, nil, err
		}
	}
	if s.publisher != nil {
		s.publisher.PublishToClub(clubID, EventMemberJoined, map[string]interface{}{"clubId": clubID, "userId": userID})
	}
	logger.Info("book_club_joined", "club_id", clubID, "user_id", userID)
	return club, outcome, nil
}

// CanJoinClub lets readers into a club's chat room when the club is public or they are members.
func (s *Service) CanJoinClub(ctx context.Context, clubID, userID string) (bool, error) {
	club, err := s.repo.Get(ctx, clubID)
	if errors.Is(err, ErrClubNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if club.IsPublic {
		return true, nil
	}
	return s.repo.IsMember(ctx, clubID, userID)
}
