package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/tuitiontrack/internal/app/models"
	"github.com/yigit/tuitiontrack/internal/app/models/dto"
	"github.com/yigit/tuitiontrack/internal/app/repositories"
	"github.com/yigit/tuitiontrack/internal/db"
)

// TutorService handles the tutor profile
type TutorService struct {
	tutors TutorStore
	retry  db.RetryPolicy
	logger zerolog.Logger
}

// NewTutorService creates a new TutorService
func NewTutorService(tutors TutorStore, retry db.RetryPolicy, logger zerolog.Logger) *TutorService {
	return &TutorService{tutors: tutors, retry: retry, logger: logger}
}

// Get returns a tutor by id.
func (s *TutorService) Get(ctx context.Context, id int64) (*models.Tutor, error) {
	t, err := s.tutors.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTutorNotFound) {
			return nil, fail(ErrTutorNotFound, "Account not found")
		}
		return nil, err
	}
	return t, nil
}

// UpdateProfile saves the editable profile fields and returns the fresh row.
func (s *TutorService) UpdateProfile(ctx context.Context, id int64, req dto.ProfileRequest) (*models.Tutor, error) {
	tuitionName := strings.TrimSpace(req.TuitionName)
	if tuitionName == "" {
		return nil, invalid("tuition_name", "Tuition name is required")
	}

	name, address := strings.TrimSpace(req.Name), strings.TrimSpace(req.Address)
	err := s.retry.Do(ctx, "tutors.update_profile", func(ctx context.Context) error {
		return s.tutors.UpdateProfile(ctx, id, name, tuitionName, address)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrTutorNotFound) {
			return nil, fail(ErrTutorNotFound, "Account not found")
		}
		return nil, fmt.Errorf("error updating profile: %w", err)
	}
	return s.Get(ctx, id)
}
