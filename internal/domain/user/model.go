package user

import (
	"time"

	"github.com/google/uuid"
)

// User maps to the users table.
type User struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	Email              string     `db:"email" json:"email"`
	PasswordHash       string     `db:"password_hash" json:"-"`
	FirstName          string     `db:"first_name" json:"first_name"`
	LastName           string     `db:"last_name" json:"last_name"`
	DateOfBirth        *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender             *string    `db:"gender" json:"gender,omitempty"`
	PhoneNumber        *string    `db:"phone_number" json:"phone_number,omitempty"`
	EducationLevel     *string    `db:"education_level" json:"education_level,omitempty"`
	Occupation         *string    `db:"occupation" json:"occupation,omitempty"`
	FamilyHistory      bool       `db:"family_history" json:"family_history"`
	MedicalHistory     *string    `db:"medical_history" json:"medical_history,omitempty"`
	RiskLevel          string     `db:"risk_level" json:"risk_level"`
	LastAssessmentDate *time.Time `db:"last_assessment_date" json:"last_assessment_date,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Age returns the user's age in whole years at the given reference time,
// calendar-exact. Returns 0 when date of birth is unknown.
func (u *User) Age(now time.Time) int {
	if u.DateOfBirth == nil {
		return 0
	}
	dob := *u.DateOfBirth
	years := now.Year() - dob.Year()
	anniversary := time.Date(now.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(anniversary) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// RiskFactors returns the identifiers of the risk factors present on this
// profile.
func (u *User) RiskFactors(now time.Time) []string {
	var factors []string
	if u.Age(now) >= 65 {
		factors = append(factors, "advanced_age")
	}
	if u.FamilyHistory {
		factors = append(factors, "family_history")
	}
	if u.Gender != nil && *u.Gender == "female" {
		factors = append(factors, "gender_risk")
	}
	if u.EducationLevel != nil && *u.EducationLevel == "low" {
		factors = append(factors, "low_education")
	}
	return factors
}

// FullName joins first and last name for display.
func (u *User) FullName() string {
	if u.FirstName == "" {
		return u.LastName
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
