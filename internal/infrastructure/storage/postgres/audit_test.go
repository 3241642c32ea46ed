package postgres

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminkit/internal/domain"
)

func TestAuditLog_CompressRoundTrip(t *testing.T) {
	a, err := NewAuditLog(nil, 64)
	require.NoError(t, err)

	small := a.compress(domain.AuditEntry{Snapshot: []byte(`{"name":"x"}`)})
	assert.Equal(t, CompressionNone, small.CompressionAlgo)
	assert.Nil(t, small.SnapshotCompressed)
	assert.JSONEq(t, `{"name":"x"}`, string(small.Snapshot))

	payload := []byte(`{"bio":"` + strings.Repeat("lorem ipsum ", 100) + `"}`)
	large := a.compress(domain.AuditEntry{EntityKey: "org", Snapshot: bytes.Clone(payload)})
	assert.Equal(t, CompressionZstd, large.CompressionAlgo)
	assert.Nil(t, large.Snapshot)
	assert.Less(t, len(large.SnapshotCompressed), len(payload))

	entry, err := a.decompress(large)
	require.NoError(t, err)
	assert.Equal(t, payload, []byte(entry.Snapshot))
	assert.Equal(t, "org", entry.EntityKey)
}

func TestAuditLog_Entry(t *testing.T) {
	reg := accountRegistry(t)
	def, _ := reg.Get("org")
	a, err := NewAuditLog(nil, 0)
	require.NoError(t, err)

	entry, err := a.entry(def, &Org{ID: 5, Name: "Acme"}, domain.AuditActionDelete)
	require.NoError(t, err)
	assert.Equal(t, "org", entry.EntityKey)
	assert.Equal(t, "5", entry.EntityID)
	assert.Equal(t, domain.AuditActionDelete, entry.Action)
	assert.JSONEq(t, `{"id":5,"name":"Acme"}`, string(entry.Snapshot))
}
