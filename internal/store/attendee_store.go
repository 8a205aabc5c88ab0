// Package store is the persistence boundary for attendee rows. Callers see a
// narrow interface; the gorm implementation works against Postgres in
// production and SQLite in tests.
package store

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"github.com/farellandr/confpass/internal/models"
)

var ErrNotFound = errors.New("attendee not found")

type ListFilter struct {
	Type       string
	Registered *bool
	Offset     int
	Limit      int
}

type AttendeeStore interface {
	// FindByRef returns every row matching ref. More than one match means the
	// table has lost its key constraint; the caller decides what to do.
	FindByRef(ctx context.Context, ref string) ([]models.Attendee, error)
	FindByEmail(ctx context.Context, email string) (*models.Attendee, error)
	// FindByAnyEmail returns the first row whose email or original_email is
	// one of emails.
	FindByAnyEmail(ctx context.Context, emails ...string) (*models.Attendee, error)
	CountByEmailExcludingRef(ctx context.Context, email, ref string) (int64, error)
	RefExists(ctx context.Context, ref string) (bool, error)
	UpdateFields(ctx context.Context, ref string, fields map[string]any) (int64, error)
	Insert(ctx context.Context, attendee *models.Attendee) error
	List(ctx context.Context, filter ListFilter) ([]models.Attendee, int64, error)
	// Transaction runs fn against a store bound to a single transaction. A
	// non-nil return from fn rolls everything back.
	Transaction(ctx context.Context, fn func(tx AttendeeStore) error, opts ...*sql.TxOptions) error
	Ping(ctx context.Context) error
}

type gormStore struct {
	db *gorm.DB
}

func NewAttendeeStore(db *gorm.DB) AttendeeStore {
	return &gormStore{db: db}
}

func (s *gormStore) FindByRef(ctx context.Context, ref string) ([]models.Attendee, error) {
	var rows []models.Attendee
	err := s.db.WithContext(ctx).Where("ref = ?", ref).Limit(2).Find(&rows).Error
	return rows, err
}

func (s *gormStore) FindByEmail(ctx context.Context, email string) (*models.Attendee, error) {
	var attendee models.Attendee
	err := s.db.WithContext(ctx).Where("email = ?", email).Order("ref").First(&attendee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attendee, nil
}

func (s *gormStore) FindByAnyEmail(ctx context.Context, emails ...string) (*models.Attendee, error) {
	var attendee models.Attendee
	err := s.db.WithContext(ctx).
		Where("email IN ? OR original_email IN ?", emails, emails).
		Order("ref").
		First(&attendee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attendee, nil
}

func (s *gormStore) CountByEmailExcludingRef(ctx context.Context, email, ref string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Attendee{}).
		Where("email = ? AND ref <> ?", email, ref).
		Count(&count).Error
	return count, err
}

func (s *gormStore) RefExists(ctx context.Context, ref string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Attendee{}).Where("ref = ?", ref).Count(&count).Error
	return count > 0, err
}

func (s *gormStore) UpdateFields(ctx context.Context, ref string, fields map[string]any) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.Attendee{}).
		Where("ref = ?", ref).
		Updates(fields)
	return result.RowsAffected, result.Error
}

func (s *gormStore) Insert(ctx context.Context, attendee *models.Attendee) error {
	return s.db.WithContext(ctx).Create(attendee).Error
}

func (s *gormStore) List(ctx context.Context, filter ListFilter) ([]models.Attendee, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Attendee{})
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Registered != nil {
		query = query.Where("registered = ?", *filter.Registered)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.Attendee
	err := query.Order("ref").Offset(filter.Offset).Limit(filter.Limit).Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx AttendeeStore) error, opts ...*sql.TxOptions) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	}, opts...)
}

func (s *gormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
