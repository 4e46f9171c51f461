package models

import "time"

// Authenticatable is implemented by anything that can hold a login session.
type Authenticatable interface {
	Identity() int64
	DisplayName() string
	VerifyPassword(pw string) bool
}

type User struct {
	ID           int64
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

func (u *User) Identity() int64     { return u.ID }
func (u *User) DisplayName() string { return u.Username }

// VerifyPassword reports whether pw matches the stored bcrypt hash.
func (u *User) VerifyPassword(pw string) bool {
	return CheckPassword(pw, u.PasswordHash)
}

var _ Authenticatable = (*User)(nil)

type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

type Post struct {
	ID         int64
	UserID     int64
	Title      string
	Content    string
	CreatedAt  time.Time
	Author     string
	Categories []Category
	Likes      int
}

// CategoryNames is used by templates.
func (p *Post) CategoryNames() []string {
	names := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		names = append(names, c.Name)
	}
	return names
}

type Comment struct {
	ID        int64
	PostID    int64
	UserID    int64
	Content   string
	CreatedAt time.Time
	Author    string
}

type Like struct {
	ID        int64
	UserID    int64
	PostID    int64
	CreatedAt time.Time
}
