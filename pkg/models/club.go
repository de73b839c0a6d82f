package models

import "time"

type BookClub struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	IsPublic      bool      `json:"isPublic"`
	CreatorID     string    `json:"creatorId"`
	CurrentBookID string    `json:"currentBookId,omitempty"`
	MemberCount   int       `json:"memberCount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type CreateClubRequest struct {
	Name          string `json:"name" binding:"required,max=100"`
	Description   string `json:"description" binding:"required,max=1000"`
	IsPublic      *bool  `json:"isPublic" binding:"required"`
	CurrentBookID string `json:"currentBookId"`
}
