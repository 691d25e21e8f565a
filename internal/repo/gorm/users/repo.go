package usersgorm

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Operator is a backoffice user account. Roles are plain role names; they
// feed both the endpoint policy and the approval engine's role-based
// eligibility.
type Operator struct {
	ID           uint                        `gorm:"primaryKey"`
	Username     string                      `gorm:"uniqueIndex;size:100"`
	Name         string                      `gorm:"size:200"`
	PasswordHash string                      `gorm:"size:200"`
	Roles        datatypes.JSONSlice[string] `gorm:"column:roles"`
	Active       bool                        `gorm:"default:true"`
}

func (Operator) TableName() string { return "operators" }

type Repo struct{ db *gorm.DB }

func New(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) AutoMigrate() error { return r.db.AutoMigrate(&Operator{}) }

func (r *Repo) Create(ctx context.Context, op *Operator) error {
	return r.db.WithContext(ctx).Create(op).Error
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (*Operator, error) {
	var op Operator
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&op).Error; err != nil {
		return nil, err
	}
	return &op, nil
}

func (r *Repo) SetPassword(ctx context.Context, id uint, plain string) error {
	if strings.TrimSpace(plain) == "" {
		return errors.New("empty password")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Model(&Operator{}).Where("id = ?", id).Update("password_hash", string(h)).Error
}

func (r *Repo) Verify(ctx context.Context, username, plain string) (*Operator, error) {
	op, err := r.GetByUsername(ctx, username)
	if err != nil {
		return nil, errors.New("invalid credentials")
	}
	if op.PasswordHash == "" {
		return nil, errors.New("password not set")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(plain)); err != nil {
		return nil, errors.New("invalid credentials")
	}
	if !op.Active {
		return nil, errors.New("account disabled")
	}
	return op, nil
}

// Seed creates an operator if the username is free. Dev convenience only.
func (r *Repo) Seed(ctx context.Context, username, name, password string, roles []string) error {
	if _, err := r.GetByUsername(ctx, username); err == nil {
		return nil
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return r.Create(ctx, &Operator{
		Username: username, Name: name, PasswordHash: string(h),
		Roles: datatypes.NewJSONSlice(roles), Active: true,
	})
}
