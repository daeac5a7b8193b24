package store

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

func apply(tx *gorm.DB, fns []func(tx *gorm.DB) *gorm.DB) *gorm.DB {
	for _, fn := range fns {
		tx = fn(tx)
	}
	return tx
}

type VoterQueryFilter BaseQuerier

func NewVoterQueryFilter() *VoterQueryFilter {
	return &VoterQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (f *VoterQueryFilter) ByEpicNumber(epic string) *VoterQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("epic_number = ?", epic)
	})
	return f
}

// ByNameLike matches full_name case-insensitively. LOWER/LIKE is used instead
// of ILIKE so the filter also runs on sqlite.
func (f *VoterQueryFilter) ByNameLike(pattern string) *VoterQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("LOWER(full_name) LIKE ?", "%"+strings.ToLower(pattern)+"%")
	})
	return f
}

func (f *VoterQueryFilter) ByStateCode(code string) *VoterQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("state_cd = ?", code)
	})
	return f
}

type VoterQueryOptions BaseQuerier

func NewVoterQueryOptions() *VoterQueryOptions {
	return &VoterQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (o *VoterQueryOptions) WithLimit(limit int) *VoterQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return o
}

func (o *VoterQueryOptions) WithOffset(offset int) *VoterQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Offset(offset)
	})
	return o
}

func (o *VoterQueryOptions) WithSortOrder(sort SortOrder) *VoterQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return sort.apply(tx)
	})
	return o
}

type JobQueryFilter BaseQuerier

func NewJobQueryFilter() *JobQueryFilter {
	return &JobQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (f *JobQueryFilter) ByStatus(statuses ...string) *JobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("status IN ?", statuses)
	})
	return f
}

func (f *JobQueryFilter) UpdatedBefore(t time.Time) *JobQueryFilter {
	f.QueryFn = append(f.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("updated_at < ?", t)
	})
	return f
}

type JobQueryOptions BaseQuerier

func NewJobQueryOptions() *JobQueryOptions {
	return &JobQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (o *JobQueryOptions) WithLimit(limit int) *JobQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Limit(limit)
	})
	return o
}

type SortOrder int

const (
	SortByCreatedTimeDesc SortOrder = iota
	SortByCreatedTime
	SortByEpicNumber
)

func (s SortOrder) apply(tx *gorm.DB) *gorm.DB {
	switch s {
	case SortByCreatedTime:
		return tx.Order("created_at")
	case SortByEpicNumber:
		return tx.Order("epic_number")
	default:
		return tx.Order("created_at DESC")
	}
}
