package database

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TipState names the state row holding the highest fully processed height.
const TipState string = "tip"

var ErrTipNotFound = errors.New("tip not found")

func (s *State) UpdateIndex(newIndex uint64) {
	s.Index = newIndex
	s.Updated = time.Now()
}

func FetchState(ctx context.Context, db *gorm.DB, name string) (*State, error) {
	var currentState State
	err := db.WithContext(ctx).Where(&State{Name: name}).First(&currentState).Error
	return &currentState, err
}

// SaveState writes the named state, creating the row on first use.
func SaveState(ctx context.Context, db *gorm.DB, s *State) error {
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"index", "updated"}),
	}).Create(s).Error
}

// GetTip returns the persisted tip height or ErrTipNotFound when none was
// ever written.
func (s *Storage) GetTip(ctx context.Context) (uint64, error) {
	state, err := FetchState(ctx, s.db, TipState)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrTipNotFound
		}
		return 0, errors.Wrap(err, "GetTip")
	}

	return state.Index, nil
}

func (s *Storage) SetTip(ctx context.Context, height uint64) error {
	state := &State{Name: TipState}
	state.UpdateIndex(height)

	if err := SaveState(ctx, s.db, state); err != nil {
		return errors.Wrapf(err, "SetTip %d", height)
	}
	return nil
}
