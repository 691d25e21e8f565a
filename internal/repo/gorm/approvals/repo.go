package approvalsgorm

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/finvera/backoffice/internal/approval"
)

// Repo is the gorm-backed approval store. One Transact call wraps every
// mutation of a decision so a failure leaves no partial flow/request state.
type Repo struct{ db *gorm.DB }

func New(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) AutoMigrate() error {
	return r.db.AutoMigrate(&approval.Rule{}, &approval.Request{}, &approval.Flow{})
}

func (r *Repo) GetRule(ctx context.Context, activityType string) (*approval.Rule, error) {
	var rule approval.Rule
	err := r.db.WithContext(ctx).Where("activity_type = ?", activityType).First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: no approval rule for activity %q", approval.ErrConfiguration, activityType)
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

func (r *Repo) SaveRule(ctx context.Context, rule *approval.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(rule).Error
}

func (r *Repo) CreateRequest(ctx context.Context, req *approval.Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *Repo) GetRequest(ctx context.Context, id uint) (*approval.Request, error) {
	var req approval.Request
	err := r.db.WithContext(ctx).First(&req, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: request %d", approval.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *Repo) SaveRequest(ctx context.Context, req *approval.Request) error {
	return r.db.WithContext(ctx).Save(req).Error
}

func (r *Repo) ListRequests(ctx context.Context, status approval.Status, page, size int) ([]*approval.Request, int64, error) {
	q := r.db.WithContext(ctx).Model(&approval.Request{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if size <= 0 {
		size = 20
	}
	if page <= 0 {
		page = 1
	}
	var arr []*approval.Request
	if err := q.Order("id DESC").Offset((page - 1) * size).Limit(size).Find(&arr).Error; err != nil {
		return nil, 0, err
	}
	return arr, total, nil
}

func (r *Repo) AppendFlow(ctx context.Context, f *approval.Flow) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *Repo) Flows(ctx context.Context, requestID uint) ([]approval.Flow, error) {
	var arr []approval.Flow
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).Order("id").Find(&arr).Error; err != nil {
		return nil, err
	}
	return arr, nil
}

func (r *Repo) ApprovedFlows(ctx context.Context, requestID uint) ([]approval.Flow, error) {
	var arr []approval.Flow
	err := r.db.WithContext(ctx).
		Where("request_id = ? AND status = ?", requestID, approval.StatusApproved).
		Order("id").Find(&arr).Error
	if err != nil {
		return nil, err
	}
	return arr, nil
}

func (r *Repo) CountApproved(ctx context.Context, requestID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&approval.Flow{}).
		Where("request_id = ? AND status = ?", requestID, approval.StatusApproved).
		Count(&n).Error
	return n, err
}

func (r *Repo) Transact(ctx context.Context, fn func(approval.Store) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repo{db: tx})
	})
}
