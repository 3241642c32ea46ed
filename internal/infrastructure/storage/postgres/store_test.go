package postgres

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertSQL(t *testing.T) {
	reg := accountRegistry(t)
	org, _ := reg.Get("org")
	account, _ := reg.Get("account")

	tests := []struct {
		name     string
		values   map[string]any
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "generated identifier",
			values:   map[string]any{"name": "Acme"},
			wantSQL:  "INSERT INTO orgs (name) VALUES ($1) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name RETURNING id, name",
			wantArgs: []any{"Acme"},
		},
		{
			name:     "explicit identifier",
			values:   map[string]any{"id": int64(4), "name": "Acme"},
			wantSQL:  "INSERT INTO orgs (id,name) VALUES ($1,$2) ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name RETURNING id, name",
			wantArgs: []any{int64(4), "Acme"},
		},
		{
			name:     "identifier only",
			values:   map[string]any{"id": int64(4)},
			wantSQL:  "INSERT INTO orgs (id) VALUES ($1) ON CONFLICT (id) DO UPDATE SET id = EXCLUDED.id RETURNING id, name",
			wantArgs: []any{int64(4)},
		},
		{
			name:    "nothing to insert",
			values:  map[string]any{},
			wantSQL: "INSERT INTO orgs DEFAULT VALUES RETURNING id, name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args, err := upsertSQL(org, tt.values)
			require.NoError(t, err)
			if sql != tt.wantSQL {
				t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", tt.wantSQL, sql)
			}
			assert.Equal(t, len(tt.wantArgs), len(args))
			for i := range tt.wantArgs {
				assert.Equal(t, tt.wantArgs[i], args[i])
			}
		})
	}

	id := uuid.New()
	sql, _, err := upsertSQL(account, map[string]any{"id": id, "email": "a@b.c", "version": 1})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO accounts (email,id,version) VALUES ($1,$2,$3) "+
		"ON CONFLICT (id) DO UPDATE SET email = EXCLUDED.email, version = EXCLUDED.version "+
		"RETURNING version, id, email, nick, org_id", sql)
}

func TestColumnValue(t *testing.T) {
	reg := accountRegistry(t)
	def, _ := reg.Get("account")
	acc := &Account{OrgID: 12}

	v, ok := columnValue(def, acc, "org_id")
	require.True(t, ok)
	assert.Equal(t, int64(12), v)

	_, ok = columnValue(def, acc, "missing")
	assert.False(t, ok)
}
