// Package demo holds the demo entity set served by cmd/server and created by
// cmd/seed.
package demo

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"adminkit/internal/metadata"
)

// User is an account that writes posts and holds roles.
type User struct {
	ID        int64     `db:"id" admin:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	FullName  *string   `db:"full_name" json:"fullName"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`

	Posts []*Post `db:"-" admin:"one_to_many,mapped_by=author_id" json:"-"`
	Roles []*Role `db:"-" admin:"many_to_many,through=user_roles,join=user_id,inverse=role_id" json:"-"`
}

func (u *User) String() string { return u.Username }

// Role is a named permission set.
type Role struct {
	ID          int32  `db:"id" admin:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" admin:"lob" json:"description"`

	Users []*User `db:"-" admin:"many_to_many,through=user_roles,join=role_id,inverse=user_id" json:"-"`
}

func (r *Role) String() string { return r.Name }

// Post is an article written by a user.
type Post struct {
	ID          uuid.UUID  `db:"id" admin:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Body        string     `db:"body" admin:"lob" json:"body"`
	AuthorID    int64      `db:"author_id" json:"authorID"`
	PublishedAt *time.Time `db:"published_at" json:"publishedAt"`

	Author *User `db:"-" admin:"many_to_one,join=author_id" json:"-"`
}

// UserRole is the explicit user/role link, keyed by a readable code.
type UserRole struct {
	Code      string    `db:"code" admin:"id" json:"code"`
	UserID    int64     `db:"user_id" json:"userID"`
	RoleID    int32     `db:"role_id" json:"roleID"`
	GrantedAt time.Time `db:"granted_at" json:"grantedAt"`

	User *User `db:"-" admin:"many_to_one,join=user_id" json:"-"`
	Role *Role `db:"-" admin:"many_to_one,join=role_id" json:"-"`
}

// Product is a catalog item keyed by SKU.
type Product struct {
	SKU   string          `db:"sku" admin:"id" json:"sku"`
	Name  string          `db:"name" json:"name"`
	Price decimal.Decimal `db:"price" json:"price"`
	Stock int             `db:"stock" json:"stock"`
}

// Source registers the demo entities.
func Source() *metadata.StructSource {
	return metadata.NewStructSource().
		Register(User{}, metadata.WithTable("users")).
		Register(Role{}, metadata.WithTable("roles")).
		Register(Post{}, metadata.WithTable("posts")).
		Register(UserRole{}, metadata.WithTable("user_roles"), metadata.WithDisplayName("User role")).
		Register(Product{}, metadata.WithTable("products"))
}

// Schema creates the demo tables. Statements are idempotent.
var Schema = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS users (
		id         BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		username   TEXT NOT NULL UNIQUE,
		email      TEXT NOT NULL,
		full_name  TEXT,
		active     BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS roles (
		id          INTEGER GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS posts (
		id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		title        TEXT NOT NULL,
		body         TEXT NOT NULL DEFAULT '',
		author_id    BIGINT NOT NULL REFERENCES users (id),
		published_at TIMESTAMPTZ
	)`,
	`CREATE TABLE IF NOT EXISTS user_roles (
		code       TEXT PRIMARY KEY,
		user_id    BIGINT NOT NULL REFERENCES users (id),
		role_id    INTEGER NOT NULL REFERENCES roles (id),
		granted_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (user_id, role_id)
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		sku   TEXT PRIMARY KEY,
		name  TEXT NOT NULL,
		price NUMERIC(12, 2) NOT NULL DEFAULT 0,
		stock INTEGER NOT NULL DEFAULT 0
	)`,
}
