package api

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T, target string) *gin.Context {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", target, nil)
	return c
}

func TestPageParams(t *testing.T) {
	tests := []struct {
		name   string
		target string
		page   int
		limit  int
	}{
		{"defaults", "/api/recipes", 1, 6},
		{"explicit", "/api/recipes?page=3&limit=20", 3, 20},
		{"garbage ignored", "/api/recipes?page=soon&limit=-2", 1, 6},
		{"limit capped", "/api/recipes?limit=9999", 1, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, limit := pageParams(testContext(t, tt.target))
			assert.Equal(t, tt.page, page)
			assert.Equal(t, tt.limit, limit)
		})
	}
}

func TestNewPageLinks(t *testing.T) {
	c := testContext(t, "/api/recipes?page=2&limit=2&tags=breakfast")

	p := newPage(c, 5, 2, 2, []string{"a", "b"})
	assert.EqualValues(t, 5, p.Count)

	require.NotNil(t, p.Next)
	assert.Contains(t, *p.Next, "page=3")
	assert.Contains(t, *p.Next, "tags=breakfast")

	require.NotNil(t, p.Previous)
	assert.Contains(t, *p.Previous, "page=1")
}

func TestNewPageBoundaries(t *testing.T) {
	t.Run("single page", func(t *testing.T) {
		p := newPage(testContext(t, "/api/users"), 3, 1, 6, nil)
		assert.Nil(t, p.Next)
		assert.Nil(t, p.Previous)
	})

	t.Run("last page", func(t *testing.T) {
		p := newPage(testContext(t, "/api/users?page=2"), 8, 2, 6, nil)
		assert.Nil(t, p.Next)
		require.NotNil(t, p.Previous)
	})
}
