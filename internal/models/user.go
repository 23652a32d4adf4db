package models

import "time"

// User is the full users row.
type User struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	ImagePath string    `db:"image_path"`
	CreatedAt time.Time `db:"created_at"`
}

// PublicUser is the projection exposed to other users.
type PublicUser struct {
	ID        int    `db:"id" json:"id"`
	Name      string `db:"name" json:"name"`
	ImagePath string `db:"image_path" json:"image_path"`
}

// Public returns the public projection of u.
func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, ImagePath: u.ImagePath}
}
