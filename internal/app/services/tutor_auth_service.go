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
	"github.com/yigit/tuitiontrack/internal/pkg/auth"
	"github.com/yigit/tuitiontrack/internal/pkg/metrics"
	"github.com/yigit/tuitiontrack/internal/pkg/validation"
)

// LoginStep tells the controller where the login flow continues.
type LoginStep int

const (
	// StepSignedIn: the tutor is known and the session can be established.
	StepSignedIn LoginStep = iota
	// StepVerifyOTP: a code was issued; the challenge must be kept until /verify.
	StepVerifyOTP
	// StepSignupDetails: the mobile is verified and new; collect the tuition name.
	StepSignupDetails
)

// LoginResult is the outcome of one step of the tutor login flow.
type LoginResult struct {
	Step      LoginStep
	Tutor     *models.Tutor
	Mobile    string
	Challenge string
}

// AuthService handles tutor login, signup and student portal login
type AuthService struct {
	tutors   TutorStore
	students StudentStore
	otp      *auth.OTPService
	bypass   bool
	retry    db.RetryPolicy
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewAuthService creates a new AuthService. With bypass set no code is
// issued and mobile numbers are trusted as entered.
func NewAuthService(tutors TutorStore, students StudentStore, otp *auth.OTPService, bypass bool, retry db.RetryPolicy, m *metrics.Metrics, logger zerolog.Logger) *AuthService {
	return &AuthService{
		tutors:   tutors,
		students: students,
		otp:      otp,
		bypass:   bypass,
		retry:    retry,
		metrics:  m,
		logger:   logger,
	}
}

func (s *AuthService) observe(role, result string) {
	s.metrics.Logins.WithLabelValues(role, result).Inc()
}

// StartLogin begins a login (action "login", the default) or a signup.
func (s *AuthService) StartLogin(ctx context.Context, mobile, action string) (*LoginResult, error) {
	mobile = strings.TrimSpace(mobile)
	if !validation.IsPhone(mobile) {
		return nil, invalid("mobile", "Please enter a valid 10-digit mobile number")
	}

	tutor, err := s.tutors.GetByMobile(ctx, mobile)
	if err != nil && !errors.Is(err, repositories.ErrTutorNotFound) {
		return nil, fmt.Errorf("error looking up tutor: %w", err)
	}

	if action == "signup" {
		if tutor != nil {
			s.observe("tutor", "exists")
			return nil, fail(ErrMobileRegistered, "Mobile number already registered. Please login instead.")
		}
		if s.bypass {
			return &LoginResult{Step: StepSignupDetails, Mobile: mobile}, nil
		}
		return s.issue(mobile, auth.PurposeSignup)
	}

	if tutor == nil {
		s.observe("tutor", "unknown")
		return nil, fail(ErrMobileNotFound, "Mobile number not found. Please sign up first.")
	}
	if s.bypass {
		s.observe("tutor", "ok")
		return &LoginResult{Step: StepSignedIn, Tutor: tutor, Mobile: mobile}, nil
	}
	return s.issue(mobile, auth.PurposeLogin)
}

func (s *AuthService) issue(mobile string, purpose auth.Purpose) (*LoginResult, error) {
	challenge, code, err := s.otp.Issue(mobile, purpose)
	if err != nil {
		return nil, fmt.Errorf("error issuing otp: %w", err)
	}
	// No SMS gateway is wired; the code goes to the log.
	s.logger.Info().
		Str("mobile", mobile).
		Str("purpose", string(purpose)).
		Str("code", code).
		Msg("OTP issued")
	return &LoginResult{Step: StepVerifyOTP, Mobile: mobile, Challenge: challenge}, nil
}

// VerifyOTP checks the code against the challenge issued by StartLogin.
func (s *AuthService) VerifyOTP(ctx context.Context, challenge, code string) (*LoginResult, error) {
	claims, err := s.otp.Verify(challenge, strings.TrimSpace(code))
	if err != nil {
		s.observe("tutor", "bad_otp")
		s.logger.Debug().Err(err).Msg("OTP verification failed")
		if errors.Is(err, auth.ErrExpiredChallenge) {
			return nil, fail(ErrOTPRejected, "OTP expired. Please request a new one.")
		}
		return nil, fail(ErrOTPRejected, "Invalid OTP. Please try again.")
	}

	switch claims.Purpose {
	case auth.PurposeSignup:
		return &LoginResult{Step: StepSignupDetails, Mobile: claims.Mobile}, nil
	default:
		tutor, err := s.tutors.GetByMobile(ctx, claims.Mobile)
		if err != nil {
			if errors.Is(err, repositories.ErrTutorNotFound) {
				return nil, fail(ErrMobileNotFound, "Mobile number not found. Please sign up first.")
			}
			return nil, fmt.Errorf("error looking up tutor: %w", err)
		}
		s.observe("tutor", "ok")
		return &LoginResult{Step: StepSignedIn, Tutor: tutor, Mobile: claims.Mobile}, nil
	}
}

// CompleteSignup creates the tutor account for a verified mobile.
func (s *AuthService) CompleteSignup(ctx context.Context, mobile string, req dto.SignupDetailsRequest) (*models.Tutor, error) {
	if !validation.IsPhone(mobile) {
		return nil, fail(ErrMobileNotFound, "Your signup session expired. Please start again.")
	}
	tuitionName := strings.TrimSpace(req.TuitionName)
	if tuitionName == "" {
		return nil, invalid("tuition_name", "Please enter your tuition name")
	}

	tutor := &models.Tutor{
		Mobile:      mobile,
		Name:        strings.TrimSpace(req.Name),
		TuitionName: tuitionName,
		Address:     strings.TrimSpace(req.Address),
		Role:        models.RoleTutor,
	}
	err := s.retry.Do(ctx, "tutors.create", func(ctx context.Context) error {
		return s.tutors.Create(ctx, tutor)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMobileExists) {
			return nil, fail(ErrMobileRegistered, "Mobile number already registered. Please login instead.")
		}
		return nil, fmt.Errorf("error creating tutor: %w", err)
	}

	s.observe("tutor", "signup")
	s.logger.Info().Int64("tutorID", tutor.ID).Msg("Tutor signed up")
	return tutor, nil
}

// StudentLogin resolves a portal identity from a phone number. It never
// creates records.
func (s *AuthService) StudentLogin(ctx context.Context, phone string) (*models.Student, error) {
	phone = strings.TrimSpace(phone)
	if !validation.IsPhone(phone) {
		return nil, invalid("phone", "Please enter a valid 10-digit phone number")
	}

	student, err := s.students.FindByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, repositories.ErrStudentNotFound) {
			s.observe("student", "unknown")
			return nil, fail(ErrPhoneNotFound, "Phone number not found. Please contact your tutor.")
		}
		return nil, fmt.Errorf("error looking up student: %w", err)
	}

	s.observe("student", "ok")
	return student, nil
}
