//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of loginhub store interfaces.
// It supports any database that GORM supports (PostgreSQL, MySQL, SQLite, etc.)
// and is suitable for production deployments requiring relational database storage.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - users: Account records with bcrypt password hashes
//   - user_documents: Denormalized sign-up profile documents
//   - secrets: Opaque secret slots (remembered credentials)
//   - sessions: The persisted current-session slot
//   - reset_tokens: Single-use password reset tokens
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	userStore := gormstore.NewUserStore(db)
//	secretStore := gormstore.NewSecretStore(db)
package gorm
