package metadata

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Audit struct {
	CreatedAt time.Time `db:"created_at"`
}

type Address struct {
	City   string
	Street string
}

type Member struct {
	Audit
	ID      int64           `db:"id" admin:"id"`
	Name    string          `db:"name" json:"displayName"`
	Balance decimal.Decimal `db:"balance"`
	Home    Address         `db:"home"`
	Note    *string         `db:"note"`
	Tags    []string        `db:"tags"`
	Friends []*Member       `db:"-" admin:"one_to_many,mapped_by=friend_of"`
	secret  string
}

type MemberProxy struct {
	*Member
	Resolved bool
}

func memberDef(t *testing.T) *EntityDef {
	t.Helper()
	reg := NewRegistry(NewStructSource().Register(Member{}))
	require.NoError(t, reg.Load())
	def, ok := reg.Get("member")
	require.True(t, ok)
	return def
}

func TestInspect_Kinds(t *testing.T) {
	def := memberDef(t)

	kinds := map[string]AttributeKind{}
	for _, a := range def.DetailAttributes {
		kinds[a.Name] = a.Kind
	}
	assert.Equal(t, KindScalar, kinds["createdAt"])
	assert.Equal(t, KindScalar, kinds["id"])
	assert.Equal(t, KindScalar, kinds["displayName"])
	assert.Equal(t, KindScalar, kinds["balance"])
	assert.Equal(t, KindEmbedded, kinds["home"])
	assert.Equal(t, KindScalar, kinds["note"])
	assert.Equal(t, KindScalar, kinds["tags"])
	assert.NotContains(t, kinds, "secret")

	require.Len(t, def.PluralAttributes, 1)
	assert.Equal(t, OneToMany, def.PluralAttributes[0].Relation)
	assert.Equal(t, reflect.TypeOf(Member{}), def.PluralAttributes[0].ValueType)
	assert.Equal(t, "members", def.SchemaName)
}

func TestAccessor_Value(t *testing.T) {
	def := memberDef(t)
	acc := def.Accessor()
	now := time.Now()
	m := &Member{Audit: Audit{CreatedAt: now}, ID: 7, Name: "ada"}

	v, ok := acc.Value(m, "displayName")
	assert.True(t, ok)
	assert.Equal(t, "ada", v)

	v, ok = acc.Value(*m, "createdAt")
	assert.True(t, ok)
	assert.Equal(t, now, v)

	v, ok = acc.Value(m, "note")
	assert.True(t, ok, "nil pointer is a null value, not a failure")
	assert.Nil(t, v)

	_, ok = acc.Value(m, "missing")
	assert.False(t, ok)

	_, ok = acc.Value("not a member", "displayName")
	assert.False(t, ok)

	_, ok = acc.Value((*Member)(nil), "displayName")
	assert.False(t, ok)
}

func TestAccessor_ValueThroughProxy(t *testing.T) {
	def := memberDef(t)
	proxy := &MemberProxy{Member: &Member{ID: 3, Name: "grace"}}

	v, ok := def.Accessor().Value(proxy, "displayName")
	require.True(t, ok)
	assert.Equal(t, "grace", v)

	id, ok := def.IdentifierOf(proxy)
	require.True(t, ok)
	assert.Equal(t, int64(3), id)

	_, ok = def.Accessor().Value(&MemberProxy{}, "displayName")
	assert.False(t, ok, "unresolved proxy is inaccessible")
}

func TestAccessor_FieldIsSettable(t *testing.T) {
	def := memberDef(t)
	m := &Member{}

	f, ok := def.Accessor().Field(m, "friends")
	require.True(t, ok)
	f.Set(reflect.ValueOf([]*Member{{ID: 2}}))
	assert.Len(t, m.Friends, 1)

	_, ok = def.Accessor().Field(Member{}, "friends")
	assert.False(t, ok, "non-pointer instances cannot be populated")
}

func TestInspect_AssociationTagErrors(t *testing.T) {
	type badJoin struct {
		ID     int     `db:"id" admin:"id"`
		Member *Member `db:"-" admin:"many_to_one"`
	}
	type unmappedJoin struct {
		ID     int     `db:"id" admin:"id"`
		Member *Member `db:"-" admin:"many_to_one,join=member_id"`
	}
	type badPlural struct {
		ID      int     `db:"id" admin:"id"`
		Members *Member `db:"-" admin:"one_to_many,mapped_by=x"`
	}
	type badLink struct {
		ID      int       `db:"id" admin:"id"`
		Members []*Member `db:"-" admin:"many_to_many,through=links"`
	}

	for _, proto := range []any{badJoin{}, unmappedJoin{}, badPlural{}, badLink{}} {
		_, err := Inspect(reflect.TypeOf(proto))
		assert.Error(t, err, reflect.TypeOf(proto).Name())
	}
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"UserRole": "user_role",
		"UserID":   "user_id",
		"HTTPPort": "http_port",
		"Post":     "post",
		"A1B":      "a1_b",
	}
	for in, want := range cases {
		assert.Equal(t, want, snakeCase(in), in)
	}
}

func TestAttributeName(t *testing.T) {
	typ := reflect.TypeOf(struct {
		ID      int
		UserID  int
		URLPath string
		Name    string `json:"label,omitempty"`
	}{})
	want := []string{"id", "userID", "urlPath", "label"}
	for i := 0; i < typ.NumField(); i++ {
		assert.Equal(t, want[i], attributeName(typ.Field(i)))
	}
}
