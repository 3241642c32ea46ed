package crud

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adminkit/internal/core/apperror"
	"adminkit/internal/domain"
	"adminkit/internal/domain/query"
	"adminkit/internal/metadata"
)

type Author struct {
	ID   int64  `db:"id" admin:"id"`
	Name string `db:"name"`
	Bio  string `db:"bio" admin:"lob"`
}

type Publisher struct {
	ID   int    `db:"id" admin:"id"`
	Name string `db:"name"`
}

type Book struct {
	ID          uuid.UUID  `db:"id" admin:"id"`
	Title       string     `db:"title"`
	Pages       int        `db:"pages"`
	AuthorID    int64      `db:"author_id"`
	PublisherID int        `db:"publisher_id"`
	Author      *Author    `db:"-" admin:"many_to_one,join=author_id"`
	Publisher   *Publisher `db:"-" admin:"many_to_one,join=publisher_id"`
}

type Tag struct {
	Slug string `db:"slug" admin:"id"`
}

type Gadget struct {
	Serial float64 `db:"serial" admin:"id"`
}

// fakeExecutor evaluates the search disjunction over root columns only.
type fakeExecutor struct {
	rows    map[string][]any
	selects []query.Select
	err     error
}

func (f *fakeExecutor) match(def *metadata.EntityDef, q query.Select) []any {
	var out []any
	for _, row := range f.rows[def.Key] {
		if !q.Filtered() || matchesSearch(def, row, q.Search) {
			out = append(out, row)
		}
	}
	return out
}

func matchesSearch(def *metadata.EntityDef, row any, s *query.Search) bool {
	needle := strings.Trim(s.Pattern, "%")
	for _, ref := range s.Columns {
		if ref.Alias != query.RootAlias {
			continue
		}
		for _, a := range def.ListAttributes {
			if a.Column != ref.Column {
				continue
			}
			v, _ := def.Accessor().Value(row, a.Name)
			if str, ok := v.(string); ok && strings.Contains(strings.ToLower(str), needle) {
				return true
			}
		}
	}
	return false
}

func (f *fakeExecutor) Select(_ context.Context, def *metadata.EntityDef, q query.Select) ([]any, error) {
	f.selects = append(f.selects, q)
	if f.err != nil {
		return nil, f.err
	}
	rows := f.match(def, q)
	if q.Paged {
		from := min(int(q.Offset), len(rows))
		to := min(from+int(q.Limit), len(rows))
		rows = rows[from:to]
	}
	return rows, nil
}

func (f *fakeExecutor) Count(_ context.Context, def *metadata.EntityDef, q query.Select) (int64, error) {
	return int64(len(f.match(def, q))), nil
}

type fakeStore struct {
	registry *metadata.Registry
	rows     map[any]any
	finds    []any
	removed  []any
	merged   []any
}

func (s *fakeStore) Find(_ context.Context, _ *metadata.EntityDef, id any) (any, bool, error) {
	s.finds = append(s.finds, id)
	e, ok := s.rows[id]
	return e, ok, nil
}

func (s *fakeStore) Merge(_ context.Context, _ *metadata.EntityDef, entity any) (any, error) {
	s.merged = append(s.merged, entity)
	return entity, nil
}

func (s *fakeStore) Remove(_ context.Context, _ *metadata.EntityDef, entity any) error {
	s.removed = append(s.removed, entity)
	return nil
}

func (s *fakeStore) Identifier(entity any) (any, bool) {
	def, ok := s.registry.GetByValue(entity)
	if !ok {
		return nil, false
	}
	return def.IdentifierOf(entity)
}

type txKey struct{}

type countingTx struct{ calls int }

func (m *countingTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(context.WithValue(ctx, txKey{}, true))
}

func inTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}

type fixture struct {
	engine   *Engine
	executor *fakeExecutor
	store    *fakeStore
	tx       *countingTx
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg := metadata.NewRegistry(metadata.NewStructSource().
		Register(Author{}).
		Register(Book{}).
		Register(Tag{}).
		Register(Gadget{}))
	require.NoError(t, reg.Load())

	authors := []any{
		&Author{ID: 1, Name: "Ada Lovelace"},
		&Author{ID: 2, Name: "Grace Hopper"},
		&Author{ID: 3, Name: "Barbara Liskov"},
	}
	f := &fixture{
		executor: &fakeExecutor{rows: map[string][]any{"author": authors}},
		store:    &fakeStore{registry: reg, rows: map[any]any{int64(1): authors[0]}},
		tx:       &countingTx{},
	}
	f.engine = NewEngine(Config{Registry: reg, Executor: f.executor, Store: f.store, TxManager: f.tx})
	return f
}

func TestEngine_ListUnpagedReturnsEverything(t *testing.T) {
	f := newFixture(t)

	page, err := f.engine.List(context.Background(), "author", domain.ListRequest{Page: 0, Size: -1})
	require.NoError(t, err)
	assert.Len(t, page.Content, 3)
	assert.Equal(t, int64(len(page.Content)), page.TotalElements)
	assert.Equal(t, 1, page.TotalPages())
	assert.False(t, f.executor.selects[0].Paged)
}

func TestEngine_ListSearchWithoutMatches(t *testing.T) {
	f := newFixture(t)

	page, err := f.engine.List(context.Background(), "author", domain.ListRequest{Size: 10, Search: "zzz-no-match"})
	require.NoError(t, err)
	assert.Empty(t, page.Content)
	assert.Equal(t, int64(0), page.TotalElements)
	assert.GreaterOrEqual(t, page.TotalPages(), 1)
}

func TestEngine_ListPaging(t *testing.T) {
	f := newFixture(t)

	page, err := f.engine.List(context.Background(), "author", domain.ListRequest{Page: 1, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page.Content, 1)
	assert.Equal(t, int64(3), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages())

	q := f.executor.selects[0]
	assert.True(t, q.Paged)
	assert.Equal(t, uint64(2), q.Offset)
	assert.Equal(t, uint64(2), q.Limit)
}

func TestEngine_ListUnknownEntity(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.List(context.Background(), "nope", domain.ListRequest{})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnknownEntity))
	assert.True(t, apperror.IsNotFound(err))
}

func TestEngine_ListPropagatesBackendErrors(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection reset")
	f.executor.err = boom

	_, err := f.engine.List(context.Background(), "author", domain.ListRequest{})
	assert.ErrorIs(t, err, boom)
}

func TestEngine_BuildSelect(t *testing.T) {
	f := newFixture(t)
	book, _ := f.engine.Registry().Get("book")
	author, _ := f.engine.Registry().Get("author")

	tests := []struct {
		name      string
		def       *metadata.EntityDef
		req       domain.ListRequest
		wantOrder *query.Order
		wantPaged bool
		offset    uint64
	}{
		{
			name:      "valid sort ascending by default",
			def:       author,
			req:       domain.ListRequest{Sort: "name", Dir: "up", Size: 25},
			wantOrder: &query.Order{Column: query.ColumnRef{Alias: "x", Column: "name"}},
			wantPaged: true,
		},
		{
			name:      "desc is case-insensitive",
			def:       author,
			req:       domain.ListRequest{Sort: "name", Dir: "DeSc", Page: 2, Size: 10},
			wantOrder: &query.Order{Column: query.ColumnRef{Alias: "x", Column: "name"}, Desc: true},
			wantPaged: true,
			offset:    20,
		},
		{
			name: "unknown sort is dropped",
			def:  author,
			req:  domain.ListRequest{Sort: "name; drop table authors", Size: 0},
		},
		{
			name:      "association sort is dropped",
			def:       book,
			req:       domain.ListRequest{Sort: "author", Size: 5, Page: -3},
			wantPaged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := f.engine.BuildSelect(tt.def, tt.req)
			assert.Equal(t, tt.def.SchemaName, q.From)
			assert.Equal(t, "x", q.Alias)
			assert.Equal(t, tt.wantOrder, q.Order)
			assert.Equal(t, tt.wantPaged, q.Paged)
			assert.Equal(t, tt.offset, q.Offset)
			assert.Nil(t, q.Search)
			assert.Empty(t, q.Joins)
		})
	}
}

func TestEngine_BuildSelectSearchJoinsOneLevel(t *testing.T) {
	f := newFixture(t)
	book, _ := f.engine.Registry().Get("book")

	q := f.engine.BuildSelect(book, domain.ListRequest{Search: "  Ada_100% "})

	require.Len(t, q.Joins, 1, "unregistered publisher target is not joined")
	assert.Equal(t, query.Join{Table: "authors", Alias: "j_author", LocalColumn: "author_id", TargetColumn: "id"}, q.Joins[0])

	require.NotNil(t, q.Search)
	assert.Equal(t, `%ada\_100\%%`, q.Search.Pattern)
	assert.Equal(t, []query.ColumnRef{
		{Alias: "x", Column: "title"},
		{Alias: "j_author", Column: "name"},
	}, q.Search.Columns, "large text and non-string columns are not searched")
}

func TestEngine_BuildSelectSearchStringIdentifier(t *testing.T) {
	f := newFixture(t)
	tag, _ := f.engine.Registry().Get("tag")

	q := f.engine.BuildSelect(tag, domain.ListRequest{Search: "go"})
	require.NotNil(t, q.Search)
	assert.Equal(t, []query.ColumnRef{{Alias: "x", Column: "slug"}}, q.Search.Columns)
}

func TestCoerceID(t *testing.T) {
	f := newFixture(t)
	reg := f.engine.Registry()
	author, _ := reg.Get("author")
	book, _ := reg.Get("book")
	tag, _ := reg.Get("tag")
	gadget, _ := reg.Get("gadget")
	u := uuid.New()

	tests := []struct {
		name     string
		def      *metadata.EntityDef
		token    string
		want     any
		wantCode string
	}{
		{"int64", author, "42", int64(42), ""},
		{"int64 malformed", author, "4x2", nil, apperror.CodeInvalidID},
		{"uuid", book, u.String(), u, ""},
		{"uuid malformed", book, "not-a-uuid", nil, apperror.CodeInvalidID},
		{"string passthrough", tag, "Go Lang", "Go Lang", ""},
		{"unsupported", gadget, "1.5", nil, apperror.CodeUnsupportedIDType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CoerceID(tt.def, tt.token)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, apperror.HasCode(err, tt.wantCode), err.Error())
				assert.Equal(t, 400, apperror.GetHTTPStatus(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_FindByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, found, err := f.engine.FindByID(ctx, "author", "1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ada Lovelace", got.(*Author).Name)

	_, found, err = f.engine.FindByID(ctx, "author", "999")
	require.NoError(t, err)
	assert.False(t, found, "absent id is a negative result, not an error")

	_, _, err = f.engine.FindByID(ctx, "book", "garbage")
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidID))
	assert.Len(t, f.store.finds, 2, "malformed ids never reach the store")
}

func TestEngine_DeleteByID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.DeleteByID(ctx, "author", "999"))
	assert.Empty(t, f.store.removed)

	var events []domain.HookEvent
	record := func(ev domain.HookEvent) domain.Hook {
		return func(context.Context, *metadata.EntityDef, any) error {
			events = append(events, ev)
			return nil
		}
	}
	f.engine.Hooks().On(domain.BeforeDelete, record(domain.BeforeDelete))
	f.engine.Hooks().OnEntity("author", domain.AfterDelete, record(domain.AfterDelete))
	f.engine.Hooks().OnEntity("book", domain.AfterDelete, record("book"))

	require.NoError(t, f.engine.DeleteByID(ctx, "author", "1"))
	require.Len(t, f.store.removed, 1)
	assert.Equal(t, int64(1), f.store.removed[0].(*Author).ID)
	assert.Equal(t, []domain.HookEvent{domain.BeforeDelete, domain.AfterDelete}, events)
	assert.Equal(t, 2, f.tx.calls)
}

func TestEngine_DeleteVetoedByHook(t *testing.T) {
	f := newFixture(t)
	veto := apperror.NewConflict("author has books")
	f.engine.Hooks().On(domain.BeforeDelete, func(context.Context, *metadata.EntityDef, any) error { return veto })

	err := f.engine.DeleteByID(context.Background(), "author", "1")
	assert.ErrorIs(t, err, veto)
	assert.Empty(t, f.store.removed)
}

func TestEngine_SaveAndIdentifier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tag := &Tag{Slug: "golang"}
	saved, err := f.engine.Save(ctx, tag)
	require.NoError(t, err)
	assert.Same(t, tag, saved)
	assert.Len(t, f.store.merged, 1)
	assert.Equal(t, 1, f.tx.calls)

	idValue, ok := f.engine.Identifier(saved)
	require.True(t, ok)
	assert.Equal(t, "golang", idValue)

	_, ok = f.engine.Identifier(nil)
	assert.False(t, ok)

	_, err = f.engine.Save(ctx, &Publisher{ID: 1})
	assert.True(t, apperror.HasCode(err, apperror.CodeUnknownEntity))
}

func TestEngine_AfterHooksShareTheWriteTransaction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seen := map[domain.HookEvent]bool{}
	for _, ev := range []domain.HookEvent{domain.AfterSave, domain.AfterDelete} {
		f.engine.Hooks().On(ev, func(ctx context.Context, _ *metadata.EntityDef, _ any) error {
			seen[ev] = inTx(ctx)
			return nil
		})
	}

	_, err := f.engine.Save(ctx, &Tag{Slug: "sql"})
	require.NoError(t, err)
	require.NoError(t, f.engine.DeleteByID(ctx, "author", "1"))

	assert.True(t, seen[domain.AfterSave])
	assert.True(t, seen[domain.AfterDelete])
}

func TestEngine_AfterHookFailureFailsTheWrite(t *testing.T) {
	tests := []struct {
		name  string
		event domain.HookEvent
		run   func(f *fixture) error
	}{
		{
			name:  "save",
			event: domain.AfterSave,
			run: func(f *fixture) error {
				_, err := f.engine.Save(context.Background(), &Tag{Slug: "sql"})
				return err
			},
		},
		{
			name:  "delete",
			event: domain.AfterDelete,
			run: func(f *fixture) error {
				return f.engine.DeleteByID(context.Background(), "author", "1")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			boom := errors.New("audit insert failed")
			f.engine.Hooks().On(tt.event, func(context.Context, *metadata.EntityDef, any) error { return boom })

			err := tt.run(f)
			assert.ErrorIs(t, err, boom)
			assert.Equal(t, 1, f.tx.calls)
		})
	}
}

func TestEngine_BuildSelectHugePageSaturates(t *testing.T) {
	f := newFixture(t)
	def, err := f.engine.Describe("author")
	require.NoError(t, err)

	q := f.engine.BuildSelect(def, domain.ListRequest{Page: (1 << 62) + 1, Size: 2})
	assert.True(t, q.Paged)
	assert.Equal(t, uint64(math.MaxInt64), q.Offset)
	assert.Equal(t, uint64(2), q.Limit)
}
