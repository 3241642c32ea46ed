package demo

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var postNamespace = uuid.MustParse("6f1c2a52-3f0e-4a8b-9a59-0c7d8f6b1e21")

// PostID derives a stable post id from its title so reseeding upserts.
func PostID(title string) uuid.UUID {
	return uuid.NewSHA1(postNamespace, []byte(title))
}

// Rows returns the demo instances in foreign-key order.
func Rows(now time.Time) []any {
	name := func(s string) *string { return &s }
	published := now.Add(-72 * time.Hour)

	users := []*User{
		{ID: 1, Username: "ada", Email: "ada@example.com", FullName: name("Ada Lovelace"), Active: true, CreatedAt: now},
		{ID: 2, Username: "grace", Email: "grace@example.com", FullName: name("Grace Hopper"), Active: true, CreatedAt: now},
		{ID: 3, Username: "linus", Email: "linus@example.com", Active: false, CreatedAt: now},
	}
	roles := []*Role{
		{ID: 1, Name: "admin", Description: "Full access to every entity."},
		{ID: 2, Name: "editor", Description: "Writes and publishes posts."},
		{ID: 3, Name: "viewer", Description: "Read-only access."},
	}

	var out []any
	for _, u := range users {
		out = append(out, u)
	}
	for _, r := range roles {
		out = append(out, r)
	}
	for _, link := range []struct {
		user *User
		role *Role
	}{
		{users[0], roles[0]},
		{users[0], roles[1]},
		{users[1], roles[1]},
		{users[2], roles[2]},
	} {
		out = append(out, &UserRole{
			Code:      fmt.Sprintf("%s-%s", link.user.Username, link.role.Name),
			UserID:    link.user.ID,
			RoleID:    link.role.ID,
			GrantedAt: now,
		})
	}

	for i := range 30 {
		author := users[i%2]
		title := fmt.Sprintf("Notes on engines, part %d", i+1)
		post := &Post{
			ID:       PostID(title),
			Title:    title,
			Body:     "Lorem ipsum dolor sit amet. " + title,
			AuthorID: author.ID,
		}
		if i%3 != 0 {
			post.PublishedAt = &published
		}
		out = append(out, post)
	}

	for i, p := range []struct {
		name  string
		price string
	}{
		{"Analytical engine", "99999.99"},
		{"Punch cards (100)", "12.50"},
		{"Compiler manual", "39.00"},
		{"Vacuum tube", "4.75"},
	} {
		out = append(out, &Product{
			SKU:   fmt.Sprintf("SKU-%03d", i+1),
			Name:  p.name,
			Price: decimal.RequireFromString(p.price),
			Stock: (i + 1) * 10,
		})
	}
	return out
}

// Sequences lists identity columns that seeded explicit ids must advance.
var Sequences = []struct{ Table, Column string }{
	{"users", "id"},
	{"roles", "id"},
}
