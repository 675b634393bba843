// Package user manages account registration, authentication, profile
// maintenance and dementia risk-factor assessment.
package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/cogniguard/cogniguard/internal/platform/auth"
)

// ErrValidation wraps input validation failures so handlers can map them
// to 400 responses.
var ErrValidation = errors.New("validation failed")

// ErrInvalidCredentials is returned when login credentials do not match.
var ErrInvalidCredentials = errors.New("invalid email or password")

var validGenders = map[string]bool{"male": true, "female": true, "other": true}

var validEducationLevels = map[string]bool{
	"low": true, "medium": true, "high": true, "university": true,
}

// RegisterInput carries the fields accepted at registration.
type RegisterInput struct {
	Email          string     `json:"email"`
	Password       string     `json:"password"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	Gender         *string    `json:"gender"`
	PhoneNumber    *string    `json:"phone_number"`
	EducationLevel *string    `json:"education_level"`
	Occupation     *string    `json:"occupation"`
	FamilyHistory  bool       `json:"family_history"`
	MedicalHistory *string    `json:"medical_history"`
}

// UpdateInput carries the mutable profile fields.
type UpdateInput struct {
	FirstName      *string    `json:"first_name"`
	LastName       *string    `json:"last_name"`
	DateOfBirth    *time.Time `json:"date_of_birth"`
	Gender         *string    `json:"gender"`
	PhoneNumber    *string    `json:"phone_number"`
	EducationLevel *string    `json:"education_level"`
	Occupation     *string    `json:"occupation"`
	FamilyHistory  *bool      `json:"family_history"`
	MedicalHistory *string    `json:"medical_history"`
}

// RiskAssessment is the result of the weighted risk-factor evaluation.
type RiskAssessment struct {
	UserID          uuid.UUID `json:"user_id"`
	RiskScore       int       `json:"risk_score"`
	RiskLevel       string    `json:"risk_level"`
	Factors         []string  `json:"factors"`
	Recommendations []string  `json:"recommendations"`
}

// Summary combines the profile with activity counts for the summary view.
type Summary struct {
	User                    *User         `json:"user"`
	Age                     int           `json:"age"`
	RiskFactors             []string      `json:"risk_factors"`
	Stats                   *SummaryStats `json:"stats"`
	DaysSinceLastAssessment *int          `json:"days_since_last_assessment,omitempty"`
}

// Service implements user account operations.
type Service struct {
	repo   Repository
	tokens *auth.TokenIssuer
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a user service.
func NewService(repo Repository, tokens *auth.TokenIssuer, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		tokens: tokens,
		logger: logger.With().Str("component", "user-service").Logger(),
		now:    time.Now,
	}
}

// Register creates an account and returns it with a signed token. If the
// email is already registered the existing account is returned with a fresh
// token instead of an error, so retried registrations stay idempotent.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, string, error) {
	if in.Email == "" {
		return nil, "", fmt.Errorf("%w: email is required", ErrValidation)
	}
	if in.Password == "" {
		return nil, "", fmt.Errorf("%w: password is required", ErrValidation)
	}
	if len(in.Password) < 6 {
		return nil, "", fmt.Errorf("%w: password must be at least 6 characters", ErrValidation)
	}
	if in.FirstName == "" {
		return nil, "", fmt.Errorf("%w: first_name is required", ErrValidation)
	}
	if in.Gender != nil && !validGenders[*in.Gender] {
		return nil, "", fmt.Errorf("%w: gender must be one of male, female, other", ErrValidation)
	}
	if in.EducationLevel != nil && !validEducationLevels[*in.EducationLevel] {
		return nil, "", fmt.Errorf("%w: education_level must be one of low, medium, high, university", ErrValidation)
	}

	existing, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, "", err
	}
	if existing != nil {
		token, err := s.tokens.Issue(existing.ID.String(), existing.FullName())
		if err != nil {
			return nil, "", fmt.Errorf("issue token: %w", err)
		}
		s.logger.Info().Str("user_id", existing.ID.String()).Msg("registration for existing email, returning existing account")
		return existing, token, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Email:          in.Email,
		PasswordHash:   string(hash),
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		DateOfBirth:    in.DateOfBirth,
		Gender:         in.Gender,
		PhoneNumber:    in.PhoneNumber,
		EducationLevel: in.EducationLevel,
		Occupation:     in.Occupation,
		FamilyHistory:  in.FamilyHistory,
		MedicalHistory: in.MedicalHistory,
		RiskLevel:      "low",
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(u.ID.String(), u.FullName())
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}

	s.logger.Info().Str("user_id", u.ID.String()).Msg("user registered")
	return u, token, nil
}

// Login verifies credentials and returns the account with a signed token.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(u.ID.String(), u.FullName())
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return u, token, nil
}

// Get returns the user by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// Update applies the non-nil fields of in to the profile.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*User, error) {
	if in.Gender != nil && !validGenders[*in.Gender] {
		return nil, fmt.Errorf("%w: gender must be one of male, female, other", ErrValidation)
	}
	if in.EducationLevel != nil && !validEducationLevels[*in.EducationLevel] {
		return nil, fmt.Errorf("%w: education_level must be one of low, medium, high, university", ErrValidation)
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.DateOfBirth != nil {
		u.DateOfBirth = in.DateOfBirth
	}
	if in.Gender != nil {
		u.Gender = in.Gender
	}
	if in.PhoneNumber != nil {
		u.PhoneNumber = in.PhoneNumber
	}
	if in.EducationLevel != nil {
		u.EducationLevel = in.EducationLevel
	}
	if in.Occupation != nil {
		u.Occupation = in.Occupation
	}
	if in.FamilyHistory != nil {
		u.FamilyHistory = *in.FamilyHistory
	}
	if in.MedicalHistory != nil {
		u.MedicalHistory = in.MedicalHistory
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	if next == "" {
		return fmt.Errorf("%w: new password is required", ErrValidation)
	}
	if len(next) < 6 {
		return fmt.Errorf("%w: new password must be at least 6 characters", ErrValidation)
	}

	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, id, string(hash))
}

// AssessRisk scores the profile's dementia risk factors. Age contributes 3
// points at 75+, 2 at 65+, 1 at 55+; family history 2; female gender and low
// education 1 each. A score of 5 or more is high risk, 3 or more medium.
func (s *Service) AssessRisk(ctx context.Context, id uuid.UUID) (*RiskAssessment, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	score := 0
	factors := u.RiskFactors(now)

	age := u.Age(now)
	switch {
	case age >= 75:
		score += 3
	case age >= 65:
		score += 2
	case age >= 55:
		score += 1
	}
	if u.FamilyHistory {
		score += 2
	}
	if u.Gender != nil && *u.Gender == "female" {
		score += 1
	}
	if u.EducationLevel != nil && *u.EducationLevel == "low" {
		score += 1
	}

	level := "low"
	switch {
	case score >= 5:
		level = "high"
	case score >= 3:
		level = "medium"
	}

	recs := []string{"Schedule regular cognitive health checkups."}
	for _, f := range factors {
		switch f {
		case "advanced_age":
			recs = append(recs, "Stay mentally active with puzzles, reading and social engagement.")
		case "family_history":
			recs = append(recs, "Discuss your family history with a physician and consider earlier screening.")
		case "gender_risk":
			recs = append(recs, "Maintain cardiovascular health through regular aerobic exercise.")
		case "low_education":
			recs = append(recs, "Pursue lifelong learning activities such as courses or a new language.")
		}
	}
	if level == "high" {
		recs = append(recs, "Consult a specialist for a comprehensive cognitive evaluation.")
	}

	return &RiskAssessment{
		UserID:          u.ID,
		RiskScore:       score,
		RiskLevel:       level,
		Factors:         factors,
		Recommendations: recs,
	}, nil
}

// GetSummary returns the profile together with activity counts and the time
// since the last assessment.
func (s *Service) GetSummary(ctx context.Context, id uuid.UUID) (*Summary, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stats, err := s.repo.SummaryStats(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	sum := &Summary{
		User:        u,
		Age:         u.Age(now),
		RiskFactors: u.RiskFactors(now),
		Stats:       stats,
	}
	if stats.LatestAssessmentDate != nil {
		days := int(now.Sub(*stats.LatestAssessmentDate).Hours() / 24)
		sum.DaysSinceLastAssessment = &days
	}
	return sum, nil
}

// List returns a page of users with the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*User, int, error) {
	return s.repo.List(ctx, limit, offset)
}
