package database

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Page selects a 1-based page of results.
type Page struct {
	Number int
	Size   int
}

func (p Page) offset() int {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

// Sums aggregates the amounts a delegator has moved through the staking contract.
type Sums struct {
	Delegated   decimal.Decimal `json:"delegated"`
	Undelegated decimal.Decimal `json:"undelegated"`
	Claimed     decimal.Decimal `json:"claimed"`
}

func findPage[T any](ctx context.Context, db *gorm.DB, column, value string, page Page) ([]T, int64, error) {
	var (
		total int64
		rows  []T
	)

	query := db.WithContext(ctx).Model(new(T)).Where(column+" = ?", value)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.WithContext(ctx).
		Where(column+" = ?", value).
		Order("block_num desc").
		Limit(page.Size).
		Offset(page.offset()).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

func distinctPage(ctx context.Context, db *gorm.DB, model interface{}, column, filter, value string, page Page) ([]string, int64, error) {
	var (
		total int64
		out   []string
	)

	err := db.WithContext(ctx).Model(model).Where(filter+" = ?", value).Distinct(column).Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = db.WithContext(ctx).Model(model).
		Where(filter+" = ?", value).
		Distinct(column).
		Order(column).
		Limit(page.Size).
		Offset(page.offset()).
		Pluck(column, &out).Error
	if err != nil {
		return nil, 0, err
	}

	return out, total, nil
}

func (s *Storage) CoinbaseMints(ctx context.Context, delegator string, page Page) ([]CoinbaseMint, int64, error) {
	rows, total, err := findPage[CoinbaseMint](ctx, s.db, "delegator", delegator, page)
	return rows, total, errors.Wrap(err, "CoinbaseMints")
}

func (s *Storage) Delegations(ctx context.Context, delegator string, page Page) ([]Delegation, int64, error) {
	rows, total, err := findPage[Delegation](ctx, s.db, "delegator", delegator, page)
	return rows, total, errors.Wrap(err, "Delegations")
}

func (s *Storage) Undelegations(ctx context.Context, delegator string, page Page) ([]Undelegation, int64, error) {
	rows, total, err := findPage[Undelegation](ctx, s.db, "delegator", delegator, page)
	return rows, total, errors.Wrap(err, "Undelegations")
}

// DelegatorsOf lists the distinct delegators that ever delegated to validator.
func (s *Storage) DelegatorsOf(ctx context.Context, validator string, page Page) ([]string, int64, error) {
	out, total, err := distinctPage(ctx, s.db, &Delegation{}, "delegator", "validator", validator, page)
	return out, total, errors.Wrap(err, "DelegatorsOf")
}

// ValidatorsOf lists the distinct validators delegator ever delegated to.
func (s *Storage) ValidatorsOf(ctx context.Context, delegator string, page Page) ([]string, int64, error) {
	out, total, err := distinctPage(ctx, s.db, &Delegation{}, "validator", "delegator", delegator, page)
	return out, total, errors.Wrap(err, "ValidatorsOf")
}

func (s *Storage) DelegatorSums(ctx context.Context, delegator string) (*Sums, error) {
	sums := &Sums{}

	targets := []struct {
		model interface{}
		dest  *decimal.Decimal
	}{
		{&Delegation{}, &sums.Delegated},
		{&Undelegation{}, &sums.Undelegated},
		{&CoinbaseMint{}, &sums.Claimed},
	}

	for _, t := range targets {
		row := s.db.WithContext(ctx).Model(t.model).
			Select("COALESCE(SUM(amount), 0)").
			Where("delegator = ?", delegator).
			Row()
		if err := row.Scan(t.dest); err != nil {
			return nil, errors.Wrap(err, "DelegatorSums")
		}
	}

	return sums, nil
}

// ValidatorList returns every validator address that ever staked.
func (s *Storage) ValidatorList(ctx context.Context) ([]string, error) {
	var out []string
	err := s.db.WithContext(ctx).Model(&Stake{}).Distinct("validator").Order("validator").Pluck("validator", &out).Error
	return out, errors.Wrap(err, "ValidatorList")
}

// LatestValidators returns the most recent validator snapshot.
func (s *Storage) LatestValidators(ctx context.Context) ([]Validator, error) {
	var rows []Validator
	latest := s.db.Model(&Validator{}).Select("MAX(block_num)")
	err := s.db.WithContext(ctx).Where("block_num = (?)", latest).Order("validator").Find(&rows).Error
	return rows, errors.Wrap(err, "LatestValidators")
}

// LatestValidator returns the most recent snapshot row of one validator.
func (s *Storage) LatestValidator(ctx context.Context, validator string) (*Validator, error) {
	var row Validator
	err := s.db.WithContext(ctx).Where("validator = ?", validator).Order("block_num desc").First(&row).Error
	if err != nil {
		return nil, errors.Wrap(err, "LatestValidator")
	}
	return &row, nil
}
