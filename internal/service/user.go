package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/models"
)

type UserService struct {
	db     *gorm.DB
	images *ImageService
}

func NewUserService(db *gorm.DB, images *ImageService) *UserService {
	return &UserService{
		db:     db,
		images: images,
	}
}

func (s *UserService) GetByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List returns a page of user profiles ordered by username.
func (s *UserService) List(limit, offset int) ([]models.User, int64, error) {
	var total int64
	if err := s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := s.db.Order("username").Limit(limit).Offset(offset).Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// UpdateAvatar stores a new avatar image and swaps the reference. The old
// image file is removed best-effort once the row points at the new one.
func (s *UserService) UpdateAvatar(ctx context.Context, userID uuid.UUID, dataURL string) (*models.User, error) {
	user, err := s.GetByID(userID)
	if err != nil {
		return nil, err
	}

	if dataURL == "" {
		vErr := NewValidationError()
		vErr.Add("avatar", "this field is required")
		return nil, vErr
	}

	url, err := s.images.SaveAvatar(ctx, dataURL)
	if err != nil {
		if errors.Is(err, ErrInvalidImage) {
			vErr := NewValidationError()
			vErr.Add("avatar", "submit a valid base64-encoded image")
			return nil, vErr
		}
		return nil, err
	}

	old := user.Avatar
	if err := s.db.Model(user).Update("avatar", url).Error; err != nil {
		return nil, err
	}
	user.Avatar = url

	if old != "" {
		_ = s.images.Delete(ctx, old)
	}

	return user, nil
}

// DeleteAvatar clears the avatar reference and removes the stored file.
func (s *UserService) DeleteAvatar(ctx context.Context, userID uuid.UUID) error {
	user, err := s.GetByID(userID)
	if err != nil {
		return err
	}

	if user.Avatar == "" {
		return nil
	}

	old := user.Avatar
	if err := s.db.Model(user).Update("avatar", "").Error; err != nil {
		return err
	}

	_ = s.images.Delete(ctx, old)
	return nil
}

// SetPassword replaces the password after checking the current one.
func (s *UserService) SetPassword(userID uuid.UUID, currentPassword, newPassword string) error {
	user, err := s.GetByID(userID)
	if err != nil {
		return err
	}

	vErr := NewValidationError()
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)) != nil {
		vErr.Add("current_password", "wrong password")
	}
	if newPassword == "" {
		vErr.Add("new_password", "this field is required")
	} else if len(newPassword) < minPasswordLen {
		vErr.Add("new_password", "must be at least 8 characters")
	}
	if err := vErr.ErrOrNil(); err != nil {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	return s.db.Model(user).Update("password_hash", string(hashed)).Error
}

// Subscribe makes the acting user follow the author and returns the author.
func (s *UserService) Subscribe(userID, authorID uuid.UUID) (*models.User, error) {
	if userID == authorID {
		return nil, ErrSelfSubscription
	}

	author, err := s.GetByID(authorID)
	if err != nil {
		return nil, err
	}

	var existing models.Subscription
	err = s.db.Where("user_id = ? AND author_id = ?", userID, authorID).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadySubscribed
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	sub := models.Subscription{UserID: userID, AuthorID: authorID}
	if err := s.db.Create(&sub).Error; err != nil {
		return nil, err
	}

	return author, nil
}

// Unsubscribe removes the follow relation.
func (s *UserService) Unsubscribe(userID, authorID uuid.UUID) error {
	if _, err := s.GetByID(authorID); err != nil {
		return err
	}

	res := s.db.Where("user_id = ? AND author_id = ?", userID, authorID).Delete(&models.Subscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotSubscribed
	}
	return nil
}

// Subscriptions returns the authors the user follows, oldest follow first.
func (s *UserService) Subscriptions(userID uuid.UUID, limit, offset int) ([]models.User, int64, error) {
	followed := func() *gorm.DB {
		return s.db.Model(&models.User{}).
			Joins("INNER JOIN subscriptions ON subscriptions.author_id = users.id").
			Where("subscriptions.user_id = ?", userID)
	}

	var total int64
	if err := followed().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var authors []models.User
	err := followed().Order("subscriptions.created_at").Limit(limit).Offset(offset).Find(&authors).Error
	if err != nil {
		return nil, 0, err
	}
	return authors, total, nil
}

// IsSubscribed reports whether user follows author.
func (s *UserService) IsSubscribed(userID, authorID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, nil
	}
	var count int64
	err := s.db.Model(&models.Subscription{}).
		Where("user_id = ? AND author_id = ?", userID, authorID).
		Count(&count).Error
	return count > 0, err
}

// SubscribedSet resolves the follow flag for a batch of authors in one query.
func (s *UserService) SubscribedSet(userID uuid.UUID, authorIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	set := make(map[uuid.UUID]bool, len(authorIDs))
	if userID == uuid.Nil || len(authorIDs) == 0 {
		return set, nil
	}

	var rows []models.Subscription
	err := s.db.Where("user_id = ? AND author_id IN ?", userID, authorIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		set[r.AuthorID] = true
	}
	return set, nil
}
