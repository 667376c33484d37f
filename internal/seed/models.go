package seed

import (
	"time"
)

const (
	StatusActive  = "active"
	StatusRetired = "retired"
)

// ServerSeed is one committed secret epoch. The commit hash is persisted
// before the seed value is ever used for a draw; once committed the row is
// superseded by rotation, never mutated.
type ServerSeed struct {
	Epoch      string     `gorm:"column:epoch;primaryKey;type:uuid;default:uuid_generate_v4()"`
	SeedHex    string     `gorm:"column:seed_hex;type:varchar(64);not null"`
	CommitHash string     `gorm:"column:commit_hash;type:varchar(64);not null"`
	Status     string     `gorm:"column:status;type:varchar(20);not null;default:'active'"` // "active", "retired"
	CreatedAt  time.Time  `gorm:"column:created_at;not null;default:now()"`
	RetiredAt  *time.Time `gorm:"column:retired_at"`
}

func (ServerSeed) TableName() string {
	return "server_seeds"
}

type Commitment struct {
	Epoch      string `json:"epoch"`
	CommitHash string `json:"commit_hash"`
}

type Revealed struct {
	Epoch      string `json:"epoch"`
	SeedHex    string `json:"seed_hex"`
	CommitHash string `json:"commit_hash"`
	RetiredAt  string `json:"retired_at"`
}
