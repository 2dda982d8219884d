package authclient

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/nyaruka/phonenumbers"
)

// NotificationPreferences mirrors the profile preference block returned by the
// gateway.
type NotificationPreferences struct {
	EmailNotifications   bool `json:"emailNotifications"`
	DesktopNotifications bool `json:"desktopNotifications"`
	MarketingEmails      bool `json:"marketingEmails"`
}

// User is the cached profile record. Tokens identify the session; this is
// display/state data only.
type User struct {
	ID          string                   `json:"id,omitempty"`
	Email       string                   `json:"email,omitempty"`
	FirstName   string                   `json:"firstName,omitempty"`
	LastName    string                   `json:"lastName,omitempty"`
	Phone       string                   `json:"phone,omitempty"`
	Bio         string                   `json:"bio,omitempty"`
	Preferences *NotificationPreferences `json:"preferences,omitempty"`
	CreatedAt   *time.Time               `json:"createdAt,omitempty"`
	UpdatedAt   *time.Time               `json:"updatedAt,omitempty"`
}

// DisplayName returns "First Last" trimmed, falling back to the email.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// AuthResponse is the credential exchange payload for login and register.
type AuthResponse struct {
	User         *User  `json:"user"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// TokenPair is the refresh payload. ExpiresIn is seconds.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"-"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type RegisterRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Validate will run validation rules
func (r RegisterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
		validation.Field(&r.FirstName, validation.Required),
		validation.Field(&r.LastName, validation.Required),
	)
}

type UpdateProfileRequest struct {
	FirstName   string                   `json:"firstName,omitempty"`
	LastName    string                   `json:"lastName,omitempty"`
	Phone       string                   `json:"phone,omitempty"`
	Bio         string                   `json:"bio,omitempty"`
	Preferences *NotificationPreferences `json:"preferences,omitempty"`

	// PhoneRegion is the default region used to parse national numbers,
	// e.g. "US". Not sent over the wire.
	PhoneRegion string `json:"-"`
}

// Validate will run validation rules. A non-empty phone must parse as a valid
// number for the configured region.
func (r UpdateProfileRequest) Validate() error {
	if err := validation.ValidateStruct(&r,
		validation.Field(&r.Bio, validation.Length(0, 1000)),
	); err != nil {
		return err
	}

	if r.Phone == "" {
		return nil
	}
	num, err := phonenumbers.Parse(r.Phone, r.region())
	if err != nil {
		return validation.Errors{"phone": err}
	}
	if !phonenumbers.IsValidNumber(num) {
		return validation.Errors{"phone": errors.New("must be a valid phone number")}
	}
	return nil
}

// Normalize returns a copy with the phone formatted E.164, ready for the wire.
func (r UpdateProfileRequest) Normalize() UpdateProfileRequest {
	if r.Phone == "" {
		return r
	}
	if num, err := phonenumbers.Parse(r.Phone, r.region()); err == nil && phonenumbers.IsValidNumber(num) {
		r.Phone = phonenumbers.Format(num, phonenumbers.E164)
	}
	return r
}

func (r UpdateProfileRequest) region() string {
	if r.PhoneRegion == "" {
		return "US"
	}
	return r.PhoneRegion
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(8, 128)),
	)
}

type ConfirmPasswordResetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Validate will run validation rules
func (r ConfirmPasswordResetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Token, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 128)),
	)
}
