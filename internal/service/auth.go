package service

import (
	"context"
	"errors"
	"net/mail"
	"regexp"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/models"
)

const (
	maxEmailLen    = 254
	maxUsernameLen = 150
	maxNameLen     = 150
	minPasswordLen = 8
)

var usernameRe = regexp.MustCompile(`^[\w.@+-]+$`)

type RegisterParams struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Password  string
}

type AuthService struct {
	db       *gorm.DB
	denylist TokenDenylist
	secret   string
	tokenTTL time.Duration
}

func NewAuthService(db *gorm.DB, denylist TokenDenylist, jwtSecret string, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		db:       db,
		denylist: denylist,
		secret:   jwtSecret,
		tokenTTL: tokenTTL,
	}
}

// Register validates and creates a new user account.
func (s *AuthService) Register(params RegisterParams) (*models.User, error) {
	vErr := NewValidationError()

	switch {
	case params.Email == "":
		vErr.Add("email", "this field is required")
	case len(params.Email) > maxEmailLen:
		vErr.Add("email", "must be 254 characters or fewer")
	default:
		if addr, err := mail.ParseAddress(params.Email); err != nil || addr.Address != params.Email {
			vErr.Add("email", "enter a valid email address")
		}
	}

	switch {
	case params.Username == "":
		vErr.Add("username", "this field is required")
	case len(params.Username) > maxUsernameLen:
		vErr.Add("username", "must be 150 characters or fewer")
	case !usernameRe.MatchString(params.Username):
		vErr.Add("username", "may contain only letters, digits and @/./+/-/_ characters")
	}

	if params.FirstName == "" {
		vErr.Add("first_name", "this field is required")
	} else if len(params.FirstName) > maxNameLen {
		vErr.Add("first_name", "must be 150 characters or fewer")
	}

	if params.LastName == "" {
		vErr.Add("last_name", "this field is required")
	} else if len(params.LastName) > maxNameLen {
		vErr.Add("last_name", "must be 150 characters or fewer")
	}

	if params.Password == "" {
		vErr.Add("password", "this field is required")
	} else if len(params.Password) < minPasswordLen {
		vErr.Add("password", "must be at least 8 characters")
	}

	// Uniqueness checks only make sense once the basic shape holds.
	if vErr.Empty() {
		var existing models.User
		if err := s.db.Where("email = ?", params.Email).First(&existing).Error; err == nil {
			vErr.Add("email", "user with this email already exists")
		}
		if err := s.db.Where("username = ?", params.Username).First(&existing).Error; err == nil {
			vErr.Add("username", "user with this username already exists")
		}
	}

	if err := vErr.ErrOrNil(); err != nil {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        params.Email,
		Username:     params.Username,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		PasswordHash: string(hashedPassword),
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, err
	}

	return &user, nil
}

// Login checks credentials and issues a signed token.
func (s *AuthService) Login(email, password string) (string, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return s.generateToken(user.ID)
}

// Logout revokes the presented token for its remaining lifetime.
func (s *AuthService) Logout(ctx context.Context, tokenString string) error {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return err
	}

	jti, _ := claims["jti"].(string)
	if jti == "" {
		return errors.New("invalid token claims")
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return errors.New("invalid token claims")
	}

	return s.denylist.Revoke(ctx, jti, time.Until(exp.Time))
}

func (s *AuthService) generateToken(userID uuid.UUID) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"jti":     uuid.NewString(),
		"exp":     time.Now().Add(s.tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

func (s *AuthService) parseClaims(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// ValidateToken parses the token, rejects revoked ones and resolves the user id.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*middleware.TokenClaims, error) {
	claims, err := s.parseClaims(tokenString)
	if err != nil {
		return nil, err
	}

	if jti, _ := claims["jti"].(string); jti != "" {
		revoked, err := s.denylist.IsRevoked(ctx, jti)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, errors.New("token has been revoked")
		}
	}

	userIDStr, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return nil, err
	}

	return &middleware.TokenClaims{UserID: userID}, nil
}
