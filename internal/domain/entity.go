package domain

import "time"

type Category struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Slug        string    `db:"slug" json:"slug"`
	Description *string   `db:"description" json:"description,omitempty"`
	Color       string    `db:"color" json:"color"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	SortOrder   int       `db:"sort_order" json:"sort_order"`
	Aliases     []string  `db:"-" json:"aliases"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// HasAlias matches alias case-insensitively after trimming.
func (c *Category) HasAlias(alias string) bool {
	needle := NormalizeAlias(alias)
	for _, a := range c.Aliases {
		if a == needle {
			return true
		}
	}
	return false
}

// CategoryCount is a category with the number of news rows referencing it.
type CategoryCount struct {
	Category
	NewsCount int64 `db:"news_count"`
}

type Author struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name"`
	Slug       string    `db:"slug"`
	Email      *string   `db:"email"`
	Bio        *string   `db:"bio"`
	IsVerified bool      `db:"is_verified"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

type Source struct {
	ID         int64     `db:"id"`
	Name       string    `db:"name"`
	Slug       string    `db:"slug"`
	Domain     string    `db:"domain"`
	Provider   Provider  `db:"provider"`
	WebsiteURL *string   `db:"website_url"`
	Language   string    `db:"language"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}
