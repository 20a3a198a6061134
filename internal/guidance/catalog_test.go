package guidance_test

import (
	"testing"

	"career-agent-go/internal/guidance"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	catalog := guidance.Catalog()
	require.Len(t, catalog, 6, "职业目录应包含6个大类")

	names := guidance.CategoryNames()
	assert.Equal(t, []string{"Technology", "Healthcare", "Business", "Creative", "Engineering", "Education"}, names)

	tech := guidance.CareersFor("Technology")
	require.Len(t, tech, 10)
	assert.Contains(t, tech, "Software Engineering")
	assert.Contains(t, tech, "AI/ML Engineering")

	engineering := guidance.CareersFor("Engineering")
	assert.Len(t, engineering, 7)

	assert.Nil(t, guidance.CareersFor("Unknown"), "不存在的大类应返回nil")
}
