package database

import (
	"math/big"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// MaxMysqlDigits is the widest DECIMAL mysql accepts. Postgres columns hold
// the full 78 digits of a uint256.
const MaxMysqlDigits = 65

// Uint256 is an on-chain unsigned amount column.
type Uint256 struct {
	decimal.Decimal
}

func NewUint256(d decimal.Decimal) Uint256 {
	return Uint256{Decimal: d}
}

// BigToDecimal converts a contract integer, treating nil as zero.
func BigToDecimal(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, 0)
}

func (Uint256) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "numeric(78,0)"
	}
	return "decimal(65,0)"
}
