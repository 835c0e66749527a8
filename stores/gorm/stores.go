//go:build !wasm
// +build !wasm

package gorm

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	lh "github.com/panyam/loginhub"
)

// AutoMigrate runs database migrations for all loginhub tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&UserModel{},
		&DocumentModel{},
		&SecretModel{},
		&SessionModel{},
		&ResetTokenModel{},
	)
}

// =============================================================================
// UserStore
// =============================================================================

// UserStore implements lh.UserStore using GORM
type UserStore struct {
	db *gorm.DB
}

func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(rec *lh.UserRecord) error {
	var count int64
	if err := s.db.Model(&UserModel{}).Where("email = ?", rec.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("email already registered")
	}
	return s.db.Create(modelFromRecord(rec)).Error
}

func (s *UserStore) GetUserById(userId string) (*lh.UserRecord, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", userId).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, lh.ErrNotFound
		}
		return nil, err
	}
	return model.ToRecord(), nil
}

func (s *UserStore) GetUserByEmail(email string) (*lh.UserRecord, error) {
	var model UserModel
	if err := s.db.First(&model, "email = ?", email).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, lh.ErrNotFound
		}
		return nil, err
	}
	return model.ToRecord(), nil
}

func (s *UserStore) SaveUser(rec *lh.UserRecord) error {
	model := modelFromRecord(rec)
	model.Version = rec.Version + 1
	return s.db.Save(model).Error
}

// =============================================================================
// DocumentStore
// =============================================================================

// DocumentStore implements lh.DocumentStore using GORM
type DocumentStore struct {
	db *gorm.DB
}

func NewDocumentStore(db *gorm.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) PutUserDocument(userId string, doc *lh.UserDocument) error {
	model := &DocumentModel{
		UserID:      userId,
		FirstName:   doc.FirstName,
		LastName:    doc.LastName,
		Email:       doc.Email,
		PhoneNumber: doc.PhoneNumber,
		BirthDate:   doc.BirthDate,
	}
	return s.db.Save(model).Error
}

func (s *DocumentStore) GetUserDocument(userId string) (*lh.UserDocument, error) {
	var model DocumentModel
	if err := s.db.First(&model, "user_id = ?", userId).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, lh.ErrNotFound
		}
		return nil, err
	}
	return &lh.UserDocument{
		FirstName:   model.FirstName,
		LastName:    model.LastName,
		Email:       model.Email,
		PhoneNumber: model.PhoneNumber,
		BirthDate:   model.BirthDate,
	}, nil
}

// =============================================================================
// SecretStore
// =============================================================================

// SecretStore implements lh.SecretStore using GORM
type SecretStore struct {
	db *gorm.DB
}

func NewSecretStore(db *gorm.DB) *SecretStore {
	return &SecretStore{db: db}
}

func (s *SecretStore) Get(service, account string) ([]byte, error) {
	var model SecretModel
	err := s.db.First(&model, "service = ? AND account = ?", service, account).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.Value, nil
}

func (s *SecretStore) Set(service, account string, value []byte) error {
	// Unconditional delete-then-insert: last writer wins
	if err := s.Delete(service, account); err != nil {
		return err
	}
	return s.db.Create(&SecretModel{Service: service, Account: account, Value: value}).Error
}

func (s *SecretStore) Delete(service, account string) error {
	return s.db.Delete(&SecretModel{}, "service = ? AND account = ?", service, account).Error
}

// =============================================================================
// SessionStore
// =============================================================================

const sessionSlotKey = "current"

// SessionStore implements lh.SessionStore using GORM
type SessionStore struct {
	db *gorm.DB
}

func NewSessionStore(db *gorm.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) CurrentUserID() (string, error) {
	var model SessionModel
	err := s.db.First(&model, "slot = ?", sessionSlotKey).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return model.UserID, nil
}

func (s *SessionStore) SetCurrentUserID(userId string) error {
	return s.db.Save(&SessionModel{Slot: sessionSlotKey, UserID: userId}).Error
}

// =============================================================================
// TokenStore
// =============================================================================

// TokenStore implements lh.TokenStore using GORM
type TokenStore struct {
	db *gorm.DB
}

func NewTokenStore(db *gorm.DB) *TokenStore {
	return &TokenStore{db: db}
}

func (s *TokenStore) CreateToken(userID, email string, expiryDuration time.Duration) (*lh.ResetToken, error) {
	token, err := lh.GenerateSecureToken()
	if err != nil {
		return nil, err
	}
	model := &ResetTokenModel{
		Token:     token,
		UserID:    userID,
		Email:     email,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(expiryDuration),
	}
	if err := s.db.Create(model).Error; err != nil {
		return nil, err
	}
	return &lh.ResetToken{
		Token:     model.Token,
		UserID:    model.UserID,
		Email:     model.Email,
		CreatedAt: model.CreatedAt,
		ExpiresAt: model.ExpiresAt,
	}, nil
}

func (s *TokenStore) GetToken(token string) (*lh.ResetToken, error) {
	var model ResetTokenModel
	if err := s.db.First(&model, "token = ?", token).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("token not found")
		}
		return nil, err
	}
	resetToken := &lh.ResetToken{
		Token:     model.Token,
		UserID:    model.UserID,
		Email:     model.Email,
		CreatedAt: model.CreatedAt,
		ExpiresAt: model.ExpiresAt,
	}
	if resetToken.IsExpired() {
		_ = s.DeleteToken(token)
		return nil, fmt.Errorf("token expired")
	}
	return resetToken, nil
}

func (s *TokenStore) DeleteToken(token string) error {
	return s.db.Delete(&ResetTokenModel{}, "token = ?", token).Error
}
