package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/CrowderSoup/vieira-boards/database"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidCredentials = errors.New("email and password are required")
	ErrNotLoggedIn        = errors.New("no user is logged in")
)

const mainUserID = "user-main"

// AuthService keeps the single local session user and issues the bearer
// tokens used by the HTTP API. Login accepts any non-empty credentials.
type AuthService struct {
	mu        sync.Mutex
	snapshots database.SnapshotStore
	jwtSecret []byte
	user      *database.User
}

func NewAuthService(snapshots database.SnapshotStore, jwtSecret string) *AuthService {
	if jwtSecret == "" {
		jwtSecret = "your-default-secret-key-change-in-production"
	}
	return &AuthService{
		snapshots: snapshots,
		jwtSecret: []byte(jwtSecret),
	}
}

// Restore reads the persisted session user, if any.
func (s *AuthService) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok, err := s.snapshots.Get(ctx, database.SessionUserKey)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if !ok {
		return nil
	}
	var u database.User
	if err := json.Unmarshal(data, &u); err != nil {
		// A corrupt session only costs a new login.
		log.Printf("Discarding unreadable session: %v", err)
		return nil
	}
	s.user = &u
	return nil
}

// Login creates the session user from the email and persists it.
func (s *AuthService) Login(ctx context.Context, email, password string) (*database.User, string, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	local, _, _ := strings.Cut(email, "@")
	u := &database.User{
		ID:       mainUserID,
		Name:     strings.ToUpper(local),
		Email:    email,
		Role:     database.RoleAdmin,
		Lang:     database.LangPT,
		Points:   100,
		PhotoURL: fmt.Sprintf("https://ui-avatars.com/api/?name=%s&background=f3b032&color=000", email),
		Notifications: database.NotificationSettings{
			NotifyOnHighPriority: true,
			NotifyOnMentions:     true,
		},
	}

	token, err := s.CreateJWT(email)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.save(ctx, u); err != nil {
		return nil, "", err
	}
	s.user = u
	log.Printf("User logged in: %s", email)
	return copyUser(u), token, nil
}

// Logout clears the session user from memory and storage. Boards are kept.
func (s *AuthService) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.snapshots.Delete(ctx, database.SessionUserKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	s.user = nil
	return nil
}

// CurrentUser returns a copy of the session user.
func (s *AuthService) CurrentUser() (*database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, ErrNotLoggedIn
	}
	return copyUser(s.user), nil
}

// NotificationPatch updates selected notification settings.
type NotificationPatch struct {
	SlackEnabled         *bool   `json:"slackEnabled"`
	SlackWebhookURL      *string `json:"slackWebhookUrl"`
	WhatsAppEnabled      *bool   `json:"whatsappEnabled"`
	WhatsAppNumber       *string `json:"whatsappNumber"`
	NotifyOnHighPriority *bool   `json:"notifyOnHighPriority"`
	NotifyOnMentions     *bool   `json:"notifyOnMentions"`
}

func (s *AuthService) UpdateNotificationSettings(ctx context.Context, p NotificationPatch) (*database.User, error) {
	return s.update(ctx, func(u *database.User) error {
		n := &u.Notifications
		if p.SlackEnabled != nil {
			n.SlackEnabled = *p.SlackEnabled
		}
		if p.SlackWebhookURL != nil {
			n.SlackWebhookURL = strings.TrimSpace(*p.SlackWebhookURL)
		}
		if p.WhatsAppEnabled != nil {
			n.WhatsAppEnabled = *p.WhatsAppEnabled
		}
		if p.WhatsAppNumber != nil {
			n.WhatsAppNumber = strings.TrimSpace(*p.WhatsAppNumber)
		}
		if p.NotifyOnHighPriority != nil {
			n.NotifyOnHighPriority = *p.NotifyOnHighPriority
		}
		if p.NotifyOnMentions != nil {
			n.NotifyOnMentions = *p.NotifyOnMentions
		}
		return nil
	})
}

func (s *AuthService) SetLanguage(ctx context.Context, lang database.Language) (*database.User, error) {
	if lang != database.LangPT && lang != database.LangEN {
		return nil, fmt.Errorf("unsupported language %q", lang)
	}
	return s.update(ctx, func(u *database.User) error {
		u.Lang = lang
		return nil
	})
}

func (s *AuthService) update(ctx context.Context, fn func(u *database.User) error) (*database.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil, ErrNotLoggedIn
	}
	next := copyUser(s.user)
	if err := fn(next); err != nil {
		return nil, err
	}
	if err := s.save(ctx, next); err != nil {
		return nil, err
	}
	s.user = next
	return copyUser(next), nil
}

func (s *AuthService) save(ctx context.Context, u *database.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.snapshots.Put(ctx, database.SessionUserKey, data); err != nil {
		log.Printf("Error saving session: %v", err)
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func copyUser(u *database.User) *database.User {
	c := *u
	return &c
}

// CreateJWT generates a JWT token for a user
func (s *AuthService) CreateJWT(email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   mainUserID,
		"email": email,
		"exp":   time.Now().Add(time.Hour * 24 * 7).Unix(), // 7 days
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// VerifyJWT verifies a JWT token and returns the email
func (s *AuthService) VerifyJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}

	email, ok := claims["email"].(string)
	if !ok {
		return "", errors.New("email claim missing")
	}

	return email, nil
}
