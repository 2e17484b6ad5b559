package services

import (
	"errors"
	"strings"

	"backend/models"
	"backend/utils"

	"gorm.io/gorm"
)

var (
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoContact          = errors.New("no contact record for user")
)

// Contact carries the notification targets stored on a user row.
type Contact struct {
	Email string
	Phone string
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	Gender   string
	Username string
	Password string
}

// UserStore abstracts user persistence so the service can be exercised
// without a live database.
type UserStore interface {
	Create(u *models.User) error
	ByUsername(username string) (*models.User, error) // (nil, nil) when absent
}

type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) Create(u *models.User) error {
	err := s.db.Create(u).Error
	if err != nil && strings.Contains(err.Error(), "duplicate key") {
		return ErrUsernameTaken
	}
	return err
}

func (s *GormUserStore) ByUsername(username string) (*models.User, error) {
	var u models.User
	err := s.db.Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

type AuthService struct {
	users UserStore
}

func NewAuthService(users UserStore) *AuthService {
	return &AuthService{users: users}
}

// Register creates the user with a bcrypt digest. A taken username is
// rejected before any write happens.
func (s *AuthService) Register(in RegisterInput) error {
	existing, err := s.users.ByUsername(in.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUsernameTaken
	}

	hashed, err := utils.HashPassword(in.Password)
	if err != nil {
		return err
	}

	user := &models.User{
		Name:     in.Name,
		Email:    in.Email,
		Phone:    in.Phone,
		Gender:   in.Gender,
		Username: in.Username,
		Password: hashed,
		Role:     "user",
		Status:   "active",
	}
	return s.users.Create(user)
}

func (s *AuthService) Authenticate(username, password string) (*models.User, string, error) {
	user, err := s.users.ByUsername(username)
	if err != nil {
		return nil, "", err
	}
	if user == nil || user.Status != "active" || !utils.CheckPasswordHash(password, user.Password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := utils.GenerateJWT(user.Username)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// LookupContact returns the stored email and phone for a username.
func (s *AuthService) LookupContact(username string) (*Contact, error) {
	user, err := s.users.ByUsername(username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNoContact
	}
	return &Contact{Email: user.Email, Phone: user.Phone}, nil
}
