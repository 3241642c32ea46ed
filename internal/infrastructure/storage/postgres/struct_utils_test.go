package postgres

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminkit/internal/metadata"
)

type Timestamps struct {
	Version int `db:"version"`
}

type Account struct {
	Timestamps
	ID      uuid.UUID `db:"id" admin:"id"`
	Email   string    `db:"email"`
	Nick    *string   `db:"nick"`
	OrgID   int64     `db:"org_id"`
	Org     *Org      `db:"-" admin:"many_to_one,join=org_id"`
	Invites []Invite  `db:"-" admin:"one_to_many,mapped_by=account_id"`
	Groups  []*Org    `db:"-" admin:"many_to_many,through=account_orgs,join=account_id,inverse=org_id"`
}

type Org struct {
	ID   int64  `db:"id" admin:"id"`
	Name string `db:"name"`
}

type Invite struct {
	ID        int64     `db:"id" admin:"id"`
	AccountID uuid.UUID `db:"account_id"`
}

func accountRegistry(t *testing.T) *metadata.Registry {
	t.Helper()
	reg := metadata.NewRegistry(metadata.NewStructSource().
		Register(Account{}).
		Register(Org{}).
		Register(Invite{}))
	require.NoError(t, reg.Load())
	return reg
}

func TestStructToMap(t *testing.T) {
	reg := accountRegistry(t)
	def, _ := reg.Get("account")
	acc := &Account{Timestamps: Timestamps{Version: 5}, ID: uuid.New(), Email: "a@b.c", OrgID: 9}

	m, err := StructToMap(def, acc)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"version": 5,
		"id":      acc.ID,
		"email":   "a@b.c",
		"nick":    nil,
		"org_id":  int64(9),
	}, m)

	_, err = StructToMap(def, &Org{})
	assert.Error(t, err)
}

func TestIsZero(t *testing.T) {
	assert.True(t, isZero(nil))
	assert.True(t, isZero(uuid.Nil))
	assert.True(t, isZero(int64(0)))
	assert.False(t, isZero(uuid.New()))
	assert.False(t, isZero("x"))
}

func TestAssignCollectionAndReference(t *testing.T) {
	acc := &Account{}
	rv := reflect.ValueOf(acc).Elem()

	scannedOrgs := newSlicePtr(reflect.TypeOf(Org{})).Elem()
	scannedOrgs = reflect.Append(scannedOrgs, reflect.ValueOf(&Org{ID: 1}), reflect.ValueOf(&Org{ID: 2}))
	assignCollection(rv.FieldByName("Groups"), scannedOrgs)
	require.Len(t, acc.Groups, 2)
	assert.Equal(t, int64(2), acc.Groups[1].ID)

	scannedInvites := newSlicePtr(reflect.TypeOf(Invite{})).Elem()
	scannedInvites = reflect.Append(scannedInvites, reflect.ValueOf(&Invite{ID: 7}))
	assignCollection(rv.FieldByName("Invites"), scannedInvites)
	require.Len(t, acc.Invites, 1)
	assert.Equal(t, int64(7), acc.Invites[0].ID)

	assignReference(rv.FieldByName("Org"), reflect.ValueOf(&Org{ID: 3}))
	require.NotNil(t, acc.Org)
	assert.Equal(t, int64(3), acc.Org.ID)

	assert.Len(t, toAnySlice(scannedOrgs), 2)
}
