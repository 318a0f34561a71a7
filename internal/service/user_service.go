package service

import (
	"jazzedu_backend/internal/model"
	"jazzedu_backend/internal/repository"
	"jazzedu_backend/internal/util"
)

// UserService 用户档案的聚合读取
type UserService struct {
	UserRepo   *repository.UserRepository
	StatsRepo  *repository.UserStatsRepository
	BadgeRepo  *repository.BadgeRepository
	LedgerRepo *repository.LedgerRepository
}

func NewUserService(
	userRepo *repository.UserRepository,
	statsRepo *repository.UserStatsRepository,
	badgeRepo *repository.BadgeRepository,
	ledgerRepo *repository.LedgerRepository,
) *UserService {
	return &UserService{
		UserRepo:   userRepo,
		StatsRepo:  statsRepo,
		BadgeRepo:  badgeRepo,
		LedgerRepo: ledgerRepo,
	}
}

type UserProfile struct {
	User   *model.User       `json:"user"`
	Stats  *model.UserStats  `json:"stats"`
	Badges []model.UserBadge `json:"badges"`
}

func (s *UserService) GetProfile(userID uint) (*UserProfile, error) {
	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		return nil, util.ErrUserNotFound
	}

	stats, err := s.StatsRepo.GetOrCreate(nil, userID)
	if err != nil {
		return nil, err
	}

	badges, err := s.BadgeRepo.ListUserBadges(userID)
	if err != nil {
		return nil, err
	}

	return &UserProfile{User: user, Stats: stats, Badges: badges}, nil
}

func (s *UserService) GetGemHistory(userID uint, limit, offset int) ([]model.GemTransaction, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.LedgerRepo.ListByUser(userID, limit, offset)
}
