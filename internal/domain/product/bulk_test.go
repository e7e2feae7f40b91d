package product

import (
	"context"
	"strings"
	"testing"

	"github.com/example/storefront/internal/infrastructure/docstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTemplateDescription(t *testing.T) {
	got := TemplateDescription(Product{Name: "Desk Lamp", Category: "Home & Garden"})
	assert.True(t, strings.HasPrefix(got, "Desk Lamp - Transform your living space"))
	assert.True(t, strings.HasSuffix(got, "Perfect for those who appreciate quality and innovation."))
}

func TestTemplateDescription_UnknownCategoryFallsBack(t *testing.T) {
	got := TemplateDescription(Product{Name: "Widget", Category: "Misc"})
	assert.Contains(t, got, descriptionTemplates["Electronics"])
}

func TestService_ApplyTemplates(t *testing.T) {
	svc := NewService(docstore.NewMemoryStore(), zap.NewNop())
	ctx := context.Background()

	p, err := svc.Create(ctx, Product{Name: "Running Shoes", Price: 89.99, Category: "Sports"})
	require.NoError(t, err)

	updated, err := svc.ApplyTemplates(ctx, []string{p.ID, "missing-id"})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	got, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, TemplateDescription(*got), got.Description)
}
