package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodgram/backend/internal/database"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/testhelpers"
)

func TestMigrateCreatesSchema(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)

	for _, table := range []string{
		"users",
		"subscriptions",
		"tags",
		"ingredients",
		"recipes",
		"recipe_ingredients",
		"recipe_tags",
		"favorites",
		"shopping_carts",
	} {
		assert.Truef(t, db.Migrator().HasTable(table), "missing table %s", table)
	}
}

func TestHealthCheck(t *testing.T) {
	db := testhelpers.SetupTestDatabase(t)

	assert.NoError(t, database.HealthCheck(context.Background(), db))

	require.NoError(t, database.Close(db))
	assert.Error(t, database.HealthCheck(context.Background(), db))
}

// TestPostgresRoundtrip runs the schema and a write path against a real
// Postgres instance. Skipped when docker is unavailable.
func TestPostgresRoundtrip(t *testing.T) {
	db := testhelpers.SetupPostgresDatabase(t)

	author := testhelpers.CreateUser(t, db, "author")
	tag := testhelpers.CreateTag(t, db, "Breakfast", "breakfast")
	eggs := testhelpers.CreateIngredient(t, db, "eggs", "pcs")

	recipe := models.Recipe{
		AuthorID:    author.ID,
		Name:        "Omelette",
		Image:       "/media/recipes/omelette.png",
		Text:        "Whisk and cook.",
		CookingTime: 10,
		Tags:        []models.Tag{*tag},
		Ingredients: []models.RecipeIngredient{
			{IngredientID: eggs.ID, Amount: 3},
		},
	}
	require.NoError(t, db.Create(&recipe).Error)

	var got models.Recipe
	err := db.Preload("Author").Preload("Tags").Preload("Ingredients.Ingredient").First(&got, "id = ?", recipe.ID).Error
	require.NoError(t, err)

	assert.Equal(t, "author", got.Author.Username)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "breakfast", got.Tags[0].Slug)
	require.Len(t, got.Ingredients, 1)
	assert.Equal(t, "eggs", got.Ingredients[0].Ingredient.Name)
	assert.Equal(t, 3, got.Ingredients[0].Amount)
}

// TestPostgresEnforcesConstraints verifies that the unique and check
// constraints land in the real schema.
func TestPostgresEnforcesConstraints(t *testing.T) {
	db := testhelpers.SetupPostgresDatabase(t)

	author := testhelpers.CreateUser(t, db, "author")

	bad := models.Recipe{
		AuthorID:    author.ID,
		Name:        "Instant",
		Image:       "/media/recipes/instant.png",
		Text:        "Done before you start.",
		CookingTime: 0,
	}
	assert.Error(t, db.Create(&bad).Error)

	dup := models.User{
		Email:        author.Email,
		Username:     "someone-else",
		FirstName:    "Dup",
		LastName:     "Licate",
		PasswordHash: "x",
	}
	assert.Error(t, db.Create(&dup).Error)
}
