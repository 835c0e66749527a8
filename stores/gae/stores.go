//go:build !wasm
// +build !wasm

package gae

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/iterator"

	lh "github.com/panyam/loginhub"
)

// Kind constants for Datastore entities
const (
	KindUser     = "User"
	KindDocument = "UserDocument"
	KindSecret   = "Secret"
)

// ============================================================================
// UserStore
// ============================================================================

// UserStore implements lh.UserStore using Google Cloud Datastore
type UserStore struct {
	client    *datastore.Client
	namespace string
	ctx       context.Context
}

// NewUserStore creates a new Datastore-backed UserStore
func NewUserStore(client *datastore.Client, namespace string) *UserStore {
	return &UserStore{
		client:    client,
		namespace: namespace,
		ctx:       context.Background(),
	}
}

// WithContext returns a copy of the store with the given context
func (s *UserStore) WithContext(ctx context.Context) *UserStore {
	return &UserStore{
		client:    s.client,
		namespace: s.namespace,
		ctx:       ctx,
	}
}

func (s *UserStore) namespacedKey(kind, name string) *datastore.Key {
	key := datastore.NameKey(kind, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *UserStore) CreateUser(rec *lh.UserRecord) error {
	if _, err := s.GetUserByEmail(rec.Email); err == nil {
		return fmt.Errorf("email already registered")
	}
	key := s.namespacedKey(KindUser, rec.ID)
	if _, err := s.client.Put(s.ctx, key, userToEntity(rec, key)); err != nil {
		return err
	}
	return nil
}

func (s *UserStore) GetUserById(userId string) (*lh.UserRecord, error) {
	key := s.namespacedKey(KindUser, userId)
	var entity UserEntity
	if err := s.client.Get(s.ctx, key, &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, lh.ErrNotFound
		}
		return nil, err
	}
	entity.Key = key
	return entity.ToRecord(), nil
}

func (s *UserStore) GetUserByEmail(email string) (*lh.UserRecord, error) {
	query := datastore.NewQuery(KindUser).
		Namespace(s.namespace).
		FilterField("email", "=", email).
		Limit(1)

	it := s.client.Run(s.ctx, query)
	var entity UserEntity
	key, err := it.Next(&entity)
	if err == iterator.Done {
		return nil, lh.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	entity.Key = key
	return entity.ToRecord(), nil
}

func (s *UserStore) SaveUser(rec *lh.UserRecord) error {
	key := s.namespacedKey(KindUser, rec.ID)
	entity := userToEntity(rec, key)
	entity.Version = rec.Version + 1
	entity.UpdatedAt = time.Now()
	_, err := s.client.Put(s.ctx, key, entity)
	return err
}

// ============================================================================
// DocumentStore
// ============================================================================

// DocumentStore implements lh.DocumentStore using Google Cloud Datastore
type DocumentStore struct {
	client    *datastore.Client
	namespace string
	ctx       context.Context
}

func NewDocumentStore(client *datastore.Client, namespace string) *DocumentStore {
	return &DocumentStore{
		client:    client,
		namespace: namespace,
		ctx:       context.Background(),
	}
}

func (s *DocumentStore) namespacedKey(name string) *datastore.Key {
	key := datastore.NameKey(KindDocument, name, nil)
	key.Namespace = s.namespace
	return key
}

func (s *DocumentStore) PutUserDocument(userId string, doc *lh.UserDocument) error {
	key := s.namespacedKey(userId)
	entity := &DocumentEntity{
		Key:         key,
		FirstName:   doc.FirstName,
		LastName:    doc.LastName,
		Email:       doc.Email,
		PhoneNumber: doc.PhoneNumber,
		BirthDate:   doc.BirthDate,
		UpdatedAt:   time.Now(),
	}
	_, err := s.client.Put(s.ctx, key, entity)
	return err
}

func (s *DocumentStore) GetUserDocument(userId string) (*lh.UserDocument, error) {
	var entity DocumentEntity
	if err := s.client.Get(s.ctx, s.namespacedKey(userId), &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, lh.ErrNotFound
		}
		return nil, err
	}
	return &lh.UserDocument{
		FirstName:   entity.FirstName,
		LastName:    entity.LastName,
		Email:       entity.Email,
		PhoneNumber: entity.PhoneNumber,
		BirthDate:   entity.BirthDate,
	}, nil
}

// ============================================================================
// SecretStore
// ============================================================================

// SecretStore implements lh.SecretStore using Google Cloud Datastore
type SecretStore struct {
	client    *datastore.Client
	namespace string
	ctx       context.Context
}

func NewSecretStore(client *datastore.Client, namespace string) *SecretStore {
	return &SecretStore{
		client:    client,
		namespace: namespace,
		ctx:       context.Background(),
	}
}

func (s *SecretStore) namespacedKey(service, account string) *datastore.Key {
	key := datastore.NameKey(KindSecret, service+":"+account, nil)
	key.Namespace = s.namespace
	return key
}

func (s *SecretStore) Get(service, account string) ([]byte, error) {
	var entity SecretEntity
	if err := s.client.Get(s.ctx, s.namespacedKey(service, account), &entity); err != nil {
		if err == datastore.ErrNoSuchEntity {
			return nil, nil
		}
		return nil, err
	}
	return entity.Value, nil
}

func (s *SecretStore) Set(service, account string, value []byte) error {
	key := s.namespacedKey(service, account)
	// Unconditional delete-then-insert: last writer wins
	_ = s.client.Delete(s.ctx, key)
	_, err := s.client.Put(s.ctx, key, &SecretEntity{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now(),
	})
	return err
}

func (s *SecretStore) Delete(service, account string) error {
	err := s.client.Delete(s.ctx, s.namespacedKey(service, account))
	if err == datastore.ErrNoSuchEntity {
		return nil
	}
	return err
}
