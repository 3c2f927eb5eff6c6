package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dbscaffold/internal/model"
	"github.com/tordrt/dbscaffold/internal/schema"
)

func shopModel() *model.Model {
	return &model.Model{
		Entities: []model.Entity{
			{
				Name:      "Order",
				TableName: "orders",
				Properties: []model.Property{
					{Name: "ID", Column: "id", Type: "int64", IsPrimaryKey: true},
					{Name: "UserID", Column: "user_id", Type: "int64"},
					{Name: "PlacedAt", Column: "placed_at", Type: "*time.Time", Nullable: true},
				},
				Navigations: []model.Navigation{
					{Name: "User", Target: "User", ForeignKey: "user_id"},
				},
			},
			{
				Name:      "User",
				TableName: "users",
				Properties: []model.Property{
					{Name: "ID", Column: "id", Type: "int64", IsPrimaryKey: true},
					{Name: "Status", Column: "status", Type: "string", EnumValues: []string{"active", "banned"}},
				},
				Navigations: []model.Navigation{
					{Name: "Orders", Target: "Order", Collection: true, ForeignKey: "user_id"},
				},
				Indexes: []model.Index{
					{Name: "idx_users_status", Columns: []string{"status"}},
				},
			},
		},
	}
}

func TestGeneratePaths(t *testing.T) {
	out, err := Generator{}.Generate(shopModel(), &schema.Schema{}, "postgres://localhost/shop", Options{})
	require.NoError(t, err)

	assert.Equal(t, "data_context.go", out.ContextFile.Path)
	require.Len(t, out.AdditionalFiles, 2)
	assert.Equal(t, "order.go", out.AdditionalFiles[0].Path)
	assert.Equal(t, "user.go", out.AdditionalFiles[1].Path)
}

func TestGenerateContextDir(t *testing.T) {
	out, err := Generator{}.Generate(shopModel(), &schema.Schema{}, "postgres://localhost/shop", Options{
		ContextDir:  "Data",
		ContextName: "ShopContext",
	})
	require.NoError(t, err)

	assert.Equal(t, "../Data/shop_context.go", out.ContextFile.Path)
	assert.Contains(t, out.ContextFile.Content, "type ShopContext struct")
}

func TestGenerateEmbedsCallerReference(t *testing.T) {
	out, err := Generator{}.Generate(shopModel(), &schema.Schema{}, "Name=Shop", Options{})
	require.NoError(t, err)

	// The symbolic reference is preserved verbatim, with no warning marker.
	assert.Contains(t, out.ContextFile.Content, `"Name=Shop"`)
	assert.NotContains(t, strings.ToLower(out.ContextFile.Content), "warning")
}

func TestGenerateOverrideWins(t *testing.T) {
	s := &schema.Schema{}
	s.SetAnnotation(schema.ConnectionStringAnnotation, "sqlite:///srv/data/shop.db")

	out, err := Generator{}.Generate(shopModel(), s, "Name=Shop", Options{})
	require.NoError(t, err)

	assert.Contains(t, out.ContextFile.Content, "sqlite:///srv/data/shop.db")
	assert.NotContains(t, out.ContextFile.Content, "Name=Shop")
}

func TestGenerateEntityContent(t *testing.T) {
	out, err := Generator{}.Generate(shopModel(), &schema.Schema{}, "postgres://localhost/shop", Options{})
	require.NoError(t, err)

	order := out.AdditionalFiles[0].Content
	assert.Contains(t, order, "package models")
	assert.Contains(t, order, `import "time"`)
	assert.Contains(t, order, "type Order struct")
	assert.Contains(t, order, "PlacedAt *time.Time `db:\"placed_at\"`")
	assert.Contains(t, order, "User *User `db:\"-\"`")

	user := out.AdditionalFiles[1].Content
	assert.NotContains(t, user, `import "time"`)
	assert.Contains(t, user, "// one of: active, banned")
	assert.Contains(t, user, "idx_users_status (status)")
	assert.Contains(t, user, "Orders []Order `db:\"-\"`")
}

func TestGenerateDeterministic(t *testing.T) {
	s := &schema.Schema{}
	a, err := Generator{}.Generate(shopModel(), s, "postgres://localhost/shop", Options{})
	require.NoError(t, err)
	b, err := Generator{}.Generate(shopModel(), s, "postgres://localhost/shop", Options{})
	require.NoError(t, err)

	assert.Equal(t, a.ContextFile.Content, b.ContextFile.Content)
	require.Equal(t, len(a.AdditionalFiles), len(b.AdditionalFiles))
	for i := range a.AdditionalFiles {
		assert.Equal(t, a.AdditionalFiles[i].Content, b.AdditionalFiles[i].Content)
	}
}

func TestSnake(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"User", "user"},
		{"OrderItem", "order_item"},
		{"DataContext", "data_context"},
		{"DBContext", "db_context"},
		{"APIKey", "api_key"},
		{"ÜberOrder", "über_order"},
		{"OrderÜbersicht", "order_übersicht"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, snake(tt.in), tt.in)
	}
}
