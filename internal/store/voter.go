package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/voterlookup/epic-extractor/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Voter interface {
	Exists(ctx context.Context, epicNumber string) (bool, error)
	CreateIfAbsent(ctx context.Context, voter model.Voter) (*model.Voter, bool, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Voter, error)
	GetByEpic(ctx context.Context, epicNumber string) (*model.Voter, error)
	List(ctx context.Context, filter *VoterQueryFilter, opts *VoterQueryOptions) (model.VoterList, error)
	Count(ctx context.Context) (int64, error)
}

type VoterStore struct {
	db *gorm.DB
}

// Make sure we conform to Voter interface
var _ Voter = (*VoterStore)(nil)

func NewVoterStore(db *gorm.DB) Voter {
	return &VoterStore{db: db}
}

func (v *VoterStore) Exists(ctx context.Context, epicNumber string) (bool, error) {
	var count int64
	if err := v.getDB(ctx).Model(&model.Voter{}).Where("epic_number = ?", epicNumber).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateIfAbsent inserts voter unless a row with the same epic number already
// exists. The check and the insert are one statement. When the row exists it
// is returned with created set to false.
func (v *VoterStore) CreateIfAbsent(ctx context.Context, voter model.Voter) (*model.Voter, bool, error) {
	if voter.ID == uuid.Nil {
		voter.ID = uuid.New()
	}

	result := v.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "epic_number"}},
		DoNothing: true,
	}).Create(&voter)
	if result.Error != nil {
		return nil, false, result.Error
	}

	if result.RowsAffected == 0 {
		existing, err := v.GetByEpic(ctx, voter.EpicNumber)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	return &voter, true, nil
}

func (v *VoterStore) Get(ctx context.Context, id uuid.UUID) (*model.Voter, error) {
	var voter model.Voter
	if err := v.getDB(ctx).First(&voter, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &voter, nil
}

func (v *VoterStore) GetByEpic(ctx context.Context, epicNumber string) (*model.Voter, error) {
	var voter model.Voter
	if err := v.getDB(ctx).First(&voter, "epic_number = ?", epicNumber).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &voter, nil
}

func (v *VoterStore) List(ctx context.Context, filter *VoterQueryFilter, opts *VoterQueryOptions) (model.VoterList, error) {
	var voters model.VoterList
	tx := v.getDB(ctx).Model(&voters)

	if filter != nil {
		tx = apply(tx, filter.QueryFn)
	}
	if opts != nil {
		tx = apply(tx, opts.QueryFn)
	}

	if err := tx.Find(&voters).Error; err != nil {
		return nil, err
	}
	return voters, nil
}

func (v *VoterStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := v.getDB(ctx).Model(&model.Voter{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (v *VoterStore) getDB(ctx context.Context) *gorm.DB {
	return getDB(ctx, v.db)
}
