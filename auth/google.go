package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/idtoken"
	"gorm.io/gorm"

	"linkary/models"
)

// ErrInvalidCredential signalisiert ein abgelehntes Google-Token.
var ErrInvalidCredential = errors.New("invalid google credential")

// GoogleVerifier prüft ein Google-ID-Token und liefert die Profildaten.
// Als Interface, damit Tests keinen Google-Roundtrip brauchen.
type GoogleVerifier interface {
	Verify(ctx context.Context, credential string) (*GoogleProfile, error)
}

// GoogleProfile sind die aus dem ID-Token gelesenen Benutzerdaten.
type GoogleProfile struct {
	GoogleID string
	Email    string
	Name     string
	Picture  string
}

type googleVerifier struct {
	clientID string
}

// NewGoogleVerifier erstellt einen Verifier für die gegebene OAuth-Client-ID.
func NewGoogleVerifier(clientID string) GoogleVerifier {
	return &googleVerifier{clientID: clientID}
}

func (v *googleVerifier) Verify(ctx context.Context, credential string) (*GoogleProfile, error) {
	payload, err := idtoken.Validate(ctx, credential, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	if iss, _ := payload.Claims["iss"].(string); iss != "accounts.google.com" && iss != "https://accounts.google.com" {
		return nil, fmt.Errorf("%w: unexpected issuer", ErrInvalidCredential)
	}

	profile := &GoogleProfile{GoogleID: payload.Subject}
	profile.Email, _ = payload.Claims["email"].(string)
	profile.Name, _ = payload.Claims["name"].(string)
	profile.Picture, _ = payload.Claims["picture"].(string)
	if profile.GoogleID == "" || profile.Email == "" {
		return nil, fmt.Errorf("%w: missing subject or email", ErrInvalidCredential)
	}
	return profile, nil
}

// Service verbindet Google-Login mit der User-Tabelle und den Session-Tokens.
type Service struct {
	DB       *gorm.DB
	Logger   *zap.Logger
	Verifier GoogleVerifier
	Tokens   *JWTManager
}

// NewService erstellt einen neuen Auth-Service.
func NewService(db *gorm.DB, logger *zap.Logger, verifier GoogleVerifier, tokens *JWTManager) *Service {
	return &Service{DB: db, Logger: logger, Verifier: verifier, Tokens: tokens}
}

// Login prüft das Google-Credential, legt den User bei Bedarf an und gibt
// ein signiertes Session-Token samt User zurück.
func (s *Service) Login(ctx context.Context, credential string) (string, *models.User, error) {
	profile, err := s.Verifier.Verify(ctx, credential)
	if err != nil {
		return "", nil, err
	}

	user, err := s.findOrCreateUser(profile)
	if err != nil {
		return "", nil, err
	}

	token, err := s.Tokens.GenerateToken(user.ID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign session token: %w", err)
	}
	return token, user, nil
}

// CurrentUser lädt den User zu einer validierten Session.
func (s *Service) CurrentUser(userID string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) findOrCreateUser(profile *GoogleProfile) (*models.User, error) {
	now := time.Now()

	var user models.User
	err := s.DB.Where("google_id = ?", profile.GoogleID).First(&user).Error
	switch {
	case err == nil:
		// Profilfelder können sich bei Google ändern, bei jedem Login nachziehen.
		updates := map[string]interface{}{
			"email":         profile.Email,
			"name":          profile.Name,
			"picture":       profile.Picture,
			"last_login_at": now,
		}
		if err := s.DB.Model(&user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = models.User{
			GoogleID:    profile.GoogleID,
			Email:       profile.Email,
			Name:        profile.Name,
			Picture:     profile.Picture,
			LastLoginAt: &now,
		}
		if err := s.DB.Create(&user).Error; err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		s.Logger.Info("Neuer User angelegt", zap.String("id", user.ID), zap.String("email", user.Email))
		return &user, nil
	default:
		return nil, fmt.Errorf("user lookup failed: %w", err)
	}
}
