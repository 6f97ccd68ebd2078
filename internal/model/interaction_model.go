package model

import "time"

type Interaction struct {
	Id        uint64    `gorm:"primaryKey;autoIncrement"`
	Query     string    `gorm:"type:text;not null"`
	Answer    string    `gorm:"type:text;not null"`
	Truncated bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (Interaction) TableName() string {
	return "interactions"
}
