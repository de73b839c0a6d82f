package models

import "time"

type User struct {
	ID             string    `json:"id" db:"id"`
	Username       string    `json:"username" db:"username"`
	Email          string    `json:"email" db:"email"`
	PasswordHash   string    `json:"-" db:"password_hash"`
	FirstName      string    `json:"firstName" db:"first_name"`
	LastName       string    `json:"lastName" db:"last_name"`
	Bio            string    `json:"bio" db:"bio"`
	FavoriteGenres []string  `json:"favoriteGenres" db:"favorite_genres"`
	ReadingSpeed   int       `json:"readingSpeed" db:"reading_speed"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=30"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"firstName" binding:"omitempty,max=50"`
	LastName  string `json:"lastName" binding:"omitempty,max=50"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"omitempty,max=255"` // Either username or email is required
	Email    string `json:"email" binding:"omitempty,email"`      // Either username or email is required
	Password string `json:"password" binding:"required"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      User      `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8"`
}

type UpdateProfileRequest struct {
	FirstName      *string  `json:"firstName" binding:"omitempty,max=50"`
	LastName       *string  `json:"lastName" binding:"omitempty,max=50"`
	Bio            *string  `json:"bio" binding:"omitempty,max=500"`
	FavoriteGenres []string `json:"favoriteGenres" binding:"omitempty,max=20,dive,min=1,max=40"`
	ReadingSpeed   *int     `json:"readingSpeed" binding:"omitempty,min=50,max=2000"`
}
