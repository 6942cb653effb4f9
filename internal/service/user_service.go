package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"invoicely/internal/model"
	"invoicely/internal/repository"
	"invoicely/internal/storage"
	"invoicely/pkg/ghphone"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// MaxLogoSize is the upload ceiling for business logos.
const MaxLogoSize = 2 * 1024 * 1024

const (
	accessTokenTTL  = 24 * time.Hour
	refreshTokenTTL = 7 * 24 * time.Hour
)

// --- DTOs ---

type RegisterRequest struct {
	Email        string `json:"email" binding:"required,email"`
	Password     string `json:"password" binding:"required,min=6"`
	BusinessName string `json:"business_name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type UpdateProfileRequest struct {
	BusinessName *string `json:"business_name"`
	Phone        *string `json:"phone"`
}

// UserResponse exposes the profile without the password hash.
type UserResponse struct {
	ID           string  `json:"id"`
	Email        string  `json:"email"`
	BusinessName string  `json:"business_name"`
	Phone        string  `json:"phone"`
	LogoURL      *string `json:"logo_url"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// --- Interface ---

type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*UserResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserResponse, error)
	UploadLogo(ctx context.Context, userID uuid.UUID, filename, contentType string, size int64, file io.Reader) (*UserResponse, error)
	DeleteLogo(ctx context.Context, userID uuid.UUID) (*UserResponse, error)
}

type userService struct {
	repo  repository.UserRepository
	store storage.Storage
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, store storage.Storage) UserService {
	return &userService{repo: repo, store: store}
}

// --- Implementation ---

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*UserResponse, error) {
	if !ghphone.Valid(req.Phone) {
		return nil, NewError(KindValidation, "please enter a valid Ghana phone number")
	}

	if _, err := s.repo.GetByEmail(ctx, req.Email); err == nil {
		return nil, NewError(KindConflict, "email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, WrapError(KindPersistence, err, "failed to hash password")
	}

	user := &model.User{
		Email:        req.Email,
		Password:     string(hashed),
		BusinessName: req.BusinessName,
		Phone:        req.Phone,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, WrapError(KindPersistence, err, "failed to create account")
	}

	return mapToUserResponse(user), nil
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*TokenResponse, error) {
	user, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewError(KindValidation, "invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, NewError(KindValidation, "invalid email or password")
	}

	return s.issueTokens(ctx, user)
}

// Refresh rotates the refresh token: the presented token is revoked and a
// fresh pair is issued.
func (s *userService) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	stored, err := s.repo.GetRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, NewError(KindValidation, "invalid refresh token")
	}
	if time.Now().After(stored.ExpiresAt) {
		_ = s.repo.DeleteRefreshToken(ctx, refreshToken)
		return nil, NewError(KindValidation, "refresh token expired")
	}

	user, err := s.repo.GetByID(ctx, stored.UserID)
	if err != nil {
		return nil, NewError(KindValidation, "invalid refresh token")
	}

	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil {
		return nil, WrapError(KindPersistence, err, "failed to rotate refresh token")
	}

	return s.issueTokens(ctx, user)
}

func (s *userService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.repo.DeleteRefreshToken(ctx, refreshToken); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return WrapError(KindPersistence, err, "failed to revoke refresh token")
	}
	return nil
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewError(KindNotFound, "user not found")
	}
	return mapToUserResponse(user), nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewError(KindNotFound, "user not found")
	}

	if req.Phone != nil {
		if !ghphone.Valid(*req.Phone) {
			return nil, NewError(KindValidation, "please enter a valid Ghana phone number")
		}
		user.Phone = *req.Phone
	}
	if req.BusinessName != nil {
		user.BusinessName = *req.BusinessName
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, WrapError(KindPersistence, err, "failed to update profile")
	}

	return mapToUserResponse(user), nil
}

// UploadLogo validates the file before touching storage: image MIME type
// only, 2MB ceiling. The object path is namespaced by user id and upserts
// the previous logo of the same extension.
func (s *userService) UploadLogo(ctx context.Context, userID uuid.UUID, filename, contentType string, size int64, file io.Reader) (*UserResponse, error) {
	if !strings.HasPrefix(contentType, "image/") {
		return nil, NewError(KindUpload, "please select an image file")
	}
	if size > MaxLogoSize {
		return nil, NewError(KindUpload, "image size should be less than 2MB")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewError(KindNotFound, "user not found")
	}

	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = "png"
	}
	objectPath := fmt.Sprintf("%s/logo.%s", userID, ext)

	if err := s.store.Save(objectPath, io.LimitReader(file, MaxLogoSize)); err != nil {
		return nil, WrapError(KindPersistence, err, "failed to upload logo")
	}

	url := s.store.PublicURL(objectPath)
	user.LogoURL = &url
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, WrapError(KindPersistence, err, "failed to save logo url")
	}

	return mapToUserResponse(user), nil
}

// DeleteLogo removes the stored object, then clears the profile. A storage
// failure is logged but does not stop the profile patch; the profile patch
// error is the one reported.
func (s *userService) DeleteLogo(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, NewError(KindNotFound, "user not found")
	}
	if user.LogoURL == nil {
		return mapToUserResponse(user), nil
	}

	objectPath := logoObjectPath(userID, *user.LogoURL)
	if err := s.store.Remove(objectPath); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove logo object %s: %v", objectPath, err)
	}

	user.LogoURL = nil
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, WrapError(KindPersistence, err, "failed to clear logo url")
	}

	return mapToUserResponse(user), nil
}

// LogoFilePath resolves the user's logo to a local file for PDF embedding.
func LogoFilePath(store storage.Storage, user model.User) string {
	if user.LogoURL == nil {
		return ""
	}
	return store.FilePath(logoObjectPath(user.ID, *user.LogoURL))
}

// --- Helpers ---

func (s *userService) issueTokens(ctx context.Context, user *model.User) (*TokenResponse, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID.String(),
		"exp": time.Now().Add(accessTokenTTL).Unix(),
	})

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "default_super_secret_key"
	}

	accessToken, err := token.SignedString([]byte(secret))
	if err != nil {
		return nil, WrapError(KindPersistence, err, "failed to generate token")
	}

	refresh := &model.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString() + uuid.NewString(),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if err := s.repo.SaveRefreshToken(ctx, refresh); err != nil {
		return nil, WrapError(KindPersistence, err, "failed to store refresh token")
	}

	// Best-effort cleanup of expired tokens; failures are harmless.
	_ = s.repo.DeleteExpiredRefreshTokens(ctx)

	return &TokenResponse{Token: accessToken, RefreshToken: refresh.Token}, nil
}

func logoObjectPath(userID uuid.UUID, logoURL string) string {
	parts := strings.Split(logoURL, "/")
	return fmt.Sprintf("%s/%s", userID, parts[len(parts)-1])
}

func mapToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:           user.ID.String(),
		Email:        user.Email,
		BusinessName: user.BusinessName,
		Phone:        user.Phone,
		LogoURL:      user.LogoURL,
		CreatedAt:    user.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    user.UpdatedAt.Format(time.RFC3339),
	}
}
