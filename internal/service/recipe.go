package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/foodgram/backend/internal/models"
)

const (
	maxRecipeNameLen = 200
	maxCookingTime   = 600
)

type RecipeIngredientParams struct {
	IngredientID uuid.UUID
	Amount       int
}

// RecipeParams is a full recipe write: update replaces the tag and ingredient
// sets wholesale with what is given here. An empty Image keeps the stored one
// on update.
type RecipeParams struct {
	Name        string
	Text        string
	CookingTime int
	Image       string
	TagIDs      []uuid.UUID
	Ingredients []RecipeIngredientParams
}

// RecipeFilter narrows recipe listings. The membership flags only apply when
// a viewer is known.
type RecipeFilter struct {
	TagSlugs         []string
	Author           *uuid.UUID
	IsFavorited      *bool
	IsInShoppingCart *bool
	Viewer           uuid.UUID
}

// ShoppingListItem is one aggregated line of the shopping list download.
type ShoppingListItem struct {
	Name            string
	MeasurementUnit string
	Total           int
}

// RecipeService handles recipe operations
type RecipeService struct {
	db     *gorm.DB
	images *ImageService
}

// NewRecipeService creates a new RecipeService instance
func NewRecipeService(db *gorm.DB, images *ImageService) *RecipeService {
	return &RecipeService{
		db:     db,
		images: images,
	}
}

// Get retrieves a recipe with its author, tags and ingredient amounts.
func (s *RecipeService) Get(id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	err := s.db.
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		First(&recipe, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

// List returns a page of recipes, newest first.
func (s *RecipeService) List(filter RecipeFilter, limit, offset int) ([]models.Recipe, int64, error) {
	filtered := func() *gorm.DB {
		q := s.db.Model(&models.Recipe{})
		if len(filter.TagSlugs) > 0 {
			q = q.Where(
				"EXISTS (SELECT 1 FROM recipe_tags rt INNER JOIN tags t ON t.id = rt.tag_id WHERE rt.recipe_id = recipes.id AND t.slug IN ?)",
				filter.TagSlugs)
		}
		if filter.Author != nil {
			q = q.Where("recipes.author_id = ?", *filter.Author)
		}
		if filter.Viewer != uuid.Nil {
			if filter.IsFavorited != nil && *filter.IsFavorited {
				q = q.Where("EXISTS (SELECT 1 FROM favorites f WHERE f.recipe_id = recipes.id AND f.user_id = ?)", filter.Viewer)
			}
			if filter.IsInShoppingCart != nil && *filter.IsInShoppingCart {
				q = q.Where("EXISTS (SELECT 1 FROM shopping_carts sc WHERE sc.recipe_id = recipes.id AND sc.user_id = ?)", filter.Viewer)
			}
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var recipes []models.Recipe
	err := filtered().
		Preload("Author").
		Preload("Tags").
		Preload("Ingredients.Ingredient").
		Order("recipes.created_at DESC").
		Limit(limit).Offset(offset).
		Find(&recipes).Error
	if err != nil {
		return nil, 0, err
	}
	return recipes, total, nil
}

// Create validates and stores a new recipe with its associations.
func (s *RecipeService) Create(ctx context.Context, authorID uuid.UUID, params RecipeParams) (*models.Recipe, error) {
	tags, err := s.validateParams(params, true)
	if err != nil {
		return nil, err
	}

	imageURL, err := s.images.SaveRecipeImage(ctx, params.Image)
	if err != nil {
		return nil, err
	}

	recipe := models.Recipe{
		AuthorID:    authorID,
		Name:        params.Name,
		Image:       imageURL,
		Text:        params.Text,
		CookingTime: params.CookingTime,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&recipe).Error; err != nil {
			return err
		}
		if err := tx.Model(&recipe).Association("Tags").Replace(tags); err != nil {
			return err
		}
		rows := ingredientRows(recipe.ID, params.Ingredients)
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	return s.Get(recipe.ID)
}

// Update rewrites the recipe. Tag and ingredient associations are cleared and
// replaced with the submitted sets inside one transaction.
func (s *RecipeService) Update(ctx context.Context, actorID, recipeID uuid.UUID, params RecipeParams) (*models.Recipe, error) {
	recipe, err := s.getPlain(recipeID)
	if err != nil {
		return nil, err
	}
	if err := s.canModify(actorID, recipe); err != nil {
		return nil, err
	}

	tags, err := s.validateParams(params, false)
	if err != nil {
		return nil, err
	}

	imageURL := recipe.Image
	oldImage := ""
	if params.Image != "" {
		imageURL, err = s.images.SaveRecipeImage(ctx, params.Image)
		if err != nil {
			return nil, err
		}
		oldImage = recipe.Image
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"name":         params.Name,
			"image":        imageURL,
			"text":         params.Text,
			"cooking_time": params.CookingTime,
		}
		if err := tx.Model(recipe).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Model(recipe).Association("Tags").Replace(tags); err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		rows := ingredientRows(recipe.ID, params.Ingredients)
		return tx.Create(&rows).Error
	})
	if err != nil {
		return nil, err
	}

	if oldImage != "" && oldImage != imageURL {
		_ = s.images.Delete(ctx, oldImage)
	}

	return s.Get(recipeID)
}

// Delete removes the recipe and every row referencing it.
func (s *RecipeService) Delete(ctx context.Context, actorID, recipeID uuid.UUID) error {
	recipe, err := s.getPlain(recipeID)
	if err != nil {
		return err
	}
	if err := s.canModify(actorID, recipe); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(recipe).Association("Tags").Clear(); err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.RecipeIngredient{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.Favorite{}).Error; err != nil {
			return err
		}
		if err := tx.Where("recipe_id = ?", recipe.ID).Delete(&models.ShoppingCart{}).Error; err != nil {
			return err
		}
		return tx.Delete(recipe).Error
	})
}

// AddFavorite marks the recipe as a favorite of the user.
func (s *RecipeService) AddFavorite(userID, recipeID uuid.UUID) (*models.Recipe, error) {
	recipe, err := s.getPlain(recipeID)
	if err != nil {
		return nil, err
	}

	var existing models.Favorite
	err = s.db.Where("user_id = ? AND recipe_id = ?", userID, recipeID).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyFavorited
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	fav := models.Favorite{UserID: userID, RecipeID: recipeID}
	if err := s.db.Create(&fav).Error; err != nil {
		return nil, err
	}
	return recipe, nil
}

// RemoveFavorite withdraws the favorite mark.
func (s *RecipeService) RemoveFavorite(userID, recipeID uuid.UUID) error {
	if _, err := s.getPlain(recipeID); err != nil {
		return err
	}

	res := s.db.Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(&models.Favorite{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFavorited
	}
	return nil
}

// AddToCart puts the recipe into the user's shopping cart.
func (s *RecipeService) AddToCart(userID, recipeID uuid.UUID) (*models.Recipe, error) {
	recipe, err := s.getPlain(recipeID)
	if err != nil {
		return nil, err
	}

	var existing models.ShoppingCart
	err = s.db.Where("user_id = ? AND recipe_id = ?", userID, recipeID).First(&existing).Error
	if err == nil {
		return nil, ErrAlreadyInCart
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	entry := models.ShoppingCart{UserID: userID, RecipeID: recipeID}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return recipe, nil
}

// RemoveFromCart takes the recipe out of the user's shopping cart.
func (s *RecipeService) RemoveFromCart(userID, recipeID uuid.UUID) error {
	if _, err := s.getPlain(recipeID); err != nil {
		return err
	}

	res := s.db.Where("user_id = ? AND recipe_id = ?", userID, recipeID).Delete(&models.ShoppingCart{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotInCart
	}
	return nil
}

// ShoppingList sums ingredient amounts across every carted recipe, grouped by
// ingredient name and unit.
func (s *RecipeService) ShoppingList(userID uuid.UUID) ([]ShoppingListItem, error) {
	var carted int64
	err := s.db.Model(&models.ShoppingCart{}).Where("user_id = ?", userID).Count(&carted).Error
	if err != nil {
		return nil, err
	}
	if carted == 0 {
		return nil, ErrEmptyCart
	}

	var items []ShoppingListItem
	err = s.db.Table("recipe_ingredients as ri").
		Select("i.name as name, i.measurement_unit as measurement_unit, sum(ri.amount) as total").
		Joins("INNER JOIN ingredients i ON i.id = ri.ingredient_id").
		Joins("INNER JOIN shopping_carts sc ON sc.recipe_id = ri.recipe_id").
		Where("sc.user_id = ?", userID).
		Group("i.name, i.measurement_unit").
		Order("i.name").
		Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ByAuthor returns the author's recipes, newest first, capped when limit > 0.
func (s *RecipeService) ByAuthor(authorID uuid.UUID, limit int) ([]models.Recipe, error) {
	q := s.db.Where("author_id = ?", authorID).Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var recipes []models.Recipe
	if err := q.Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

// CountByAuthor returns how many recipes the author has published.
func (s *RecipeService) CountByAuthor(authorID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.Model(&models.Recipe{}).Where("author_id = ?", authorID).Count(&count).Error
	return count, err
}

// FavoriteSet resolves the favorite flag for a batch of recipes in one query.
func (s *RecipeService) FavoriteSet(userID uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	set := make(map[uuid.UUID]bool, len(recipeIDs))
	if userID == uuid.Nil || len(recipeIDs) == 0 {
		return set, nil
	}

	var rows []models.Favorite
	err := s.db.Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		set[r.RecipeID] = true
	}
	return set, nil
}

// CartSet resolves the shopping cart flag for a batch of recipes in one query.
func (s *RecipeService) CartSet(userID uuid.UUID, recipeIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	set := make(map[uuid.UUID]bool, len(recipeIDs))
	if userID == uuid.Nil || len(recipeIDs) == 0 {
		return set, nil
	}

	var rows []models.ShoppingCart
	err := s.db.Where("user_id = ? AND recipe_id IN ?", userID, recipeIDs).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		set[r.RecipeID] = true
	}
	return set, nil
}

// getPlain loads the bare recipe row, without associations.
func (s *RecipeService) getPlain(recipeID uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := s.db.First(&recipe, "id = ?", recipeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return &recipe, nil
}

func (s *RecipeService) canModify(actorID uuid.UUID, recipe *models.Recipe) error {
	if recipe.AuthorID == actorID {
		return nil
	}

	var actor models.User
	if err := s.db.First(&actor, "id = ?", actorID).Error; err != nil {
		return ErrNotRecipeAuthor
	}
	if actor.IsStaff {
		return nil
	}
	return ErrNotRecipeAuthor
}

// validateParams checks every writable field and resolves the submitted tag
// ids to rows. Failures come back per field on a single error.
func (s *RecipeService) validateParams(params RecipeParams, requireImage bool) ([]models.Tag, error) {
	vErr := NewValidationError()

	if params.Name == "" {
		vErr.Add("name", "this field is required")
	} else if len(params.Name) > maxRecipeNameLen {
		vErr.Add("name", "must be 200 characters or fewer")
	}

	if params.Text == "" {
		vErr.Add("text", "this field is required")
	}

	if params.CookingTime < 1 || params.CookingTime > maxCookingTime {
		vErr.Add("cooking_time", "must be between 1 and 600 minutes")
	}

	if params.Image == "" {
		if requireImage {
			vErr.Add("image", "this field is required")
		}
	} else if _, _, _, err := decodeDataURL(params.Image); err != nil {
		vErr.Add("image", "submit a valid base64-encoded image")
	}

	var tags []models.Tag
	if len(params.TagIDs) == 0 {
		vErr.Add("tags", "at least one tag is required")
	} else {
		seen := make(map[uuid.UUID]bool, len(params.TagIDs))
		for _, id := range params.TagIDs {
			if seen[id] {
				vErr.Add("tags", "duplicate tags are not allowed")
				break
			}
			seen[id] = true
		}

		if err := s.db.Where("id IN ?", params.TagIDs).Find(&tags).Error; err != nil {
			return nil, err
		}
		if len(tags) != len(seen) {
			vErr.Add("tags", "tag does not exist")
		}
	}

	if len(params.Ingredients) == 0 {
		vErr.Add("ingredients", "at least one ingredient is required")
	} else {
		seen := make(map[uuid.UUID]bool, len(params.Ingredients))
		ids := make([]uuid.UUID, 0, len(params.Ingredients))
		for _, ing := range params.Ingredients {
			if seen[ing.IngredientID] {
				vErr.Add("ingredients", "duplicate ingredients are not allowed")
				break
			}
			seen[ing.IngredientID] = true
			ids = append(ids, ing.IngredientID)
		}

		for _, ing := range params.Ingredients {
			if ing.Amount < 1 {
				vErr.Add("ingredients", "amount must be greater than 0")
				break
			}
		}

		var count int64
		if err := s.db.Model(&models.Ingredient{}).Where("id IN ?", ids).Count(&count).Error; err != nil {
			return nil, err
		}
		if count != int64(len(seen)) {
			vErr.Add("ingredients", "ingredient does not exist")
		}
	}

	if err := vErr.ErrOrNil(); err != nil {
		return nil, err
	}
	return tags, nil
}

func ingredientRows(recipeID uuid.UUID, params []RecipeIngredientParams) []models.RecipeIngredient {
	rows := make([]models.RecipeIngredient, 0, len(params))
	for _, p := range params {
		rows = append(rows, models.RecipeIngredient{
			RecipeID:     recipeID,
			IngredientID: p.IngredientID,
			Amount:       p.Amount,
		})
	}
	return rows
}
