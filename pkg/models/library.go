package models

import "time"

const (
	ShelfOwned     = "owned"
	ShelfWishlist  = "wishlist"
	ShelfReading   = "reading"
	ShelfCompleted = "completed"
)

// Shelves lists the library shelves in display order.
var Shelves = []string{ShelfOwned, ShelfWishlist, ShelfReading, ShelfCompleted}

func IsShelf(name string) bool {
	for _, s := range Shelves {
		if s == name {
			return true
		}
	}
	return false
}

type LibraryEntry struct {
	Book      Book      `json:"book"`
	Shelf     string    `json:"shelf"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type UserLibrary struct {
	Owned     []LibraryEntry `json:"owned"`
	Wishlist  []LibraryEntry `json:"wishlist"`
	Reading   []LibraryEntry `json:"reading"`
	Completed []LibraryEntry `json:"completed"`
}

type LibraryRequest struct {
	BookID string `json:"bookId" binding:"required"`
}

type ReadingProgressRequest struct {
	BookID    string `json:"bookId" binding:"required"`
	PagesRead *int   `json:"pagesRead" binding:"required,min=0"`
	TimeSpent *int   `json:"timeSpent" binding:"required,min=0"`
}
