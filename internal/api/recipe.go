package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.openly.dev/pointy"

	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
)

// RecipeHandler serves recipe CRUD, favorites and the shopping cart.
type RecipeHandler struct {
	auth    *service.AuthService
	users   *service.UserService
	recipes *service.RecipeService
	limiter *middleware.RateLimiter
}

// NewRecipeHandler wires the recipe routes. The limiter throttles recipe
// writes and may be nil when rate limiting is disabled.
func NewRecipeHandler(auth *service.AuthService, users *service.UserService, recipes *service.RecipeService, limiter *middleware.RateLimiter) *RecipeHandler {
	return &RecipeHandler{
		auth:    auth,
		users:   users,
		recipes: recipes,
		limiter: limiter,
	}
}

func (h *RecipeHandler) RegisterRoutes(router *gin.RouterGroup) {
	recipes := router.Group("/recipes")
	{
		recipes.GET("", middleware.OptionalAuthMiddleware(h.auth), h.List)
		recipes.GET("/download_shopping_cart", middleware.AuthMiddleware(h.auth), h.DownloadShoppingCart)
		recipes.GET("/:id", middleware.OptionalAuthMiddleware(h.auth), h.Get)
		recipes.POST("", h.guarded(h.Create)...)
		recipes.PATCH("/:id", h.guarded(h.Update)...)
		recipes.PUT("/:id", h.guarded(h.Update)...)
		recipes.DELETE("/:id", h.guarded(h.Delete)...)
		recipes.POST("/:id/favorite", middleware.AuthMiddleware(h.auth), h.AddFavorite)
		recipes.DELETE("/:id/favorite", middleware.AuthMiddleware(h.auth), h.RemoveFavorite)
		recipes.POST("/:id/shopping_cart", middleware.AuthMiddleware(h.auth), h.AddToCart)
		recipes.DELETE("/:id/shopping_cart", middleware.AuthMiddleware(h.auth), h.RemoveFromCart)
	}
}

// guarded builds the middleware chain for recipe writes.
func (h *RecipeHandler) guarded(handler gin.HandlerFunc) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{middleware.AuthMiddleware(h.auth)}
	if h.limiter != nil {
		chain = append(chain, h.limiter.RateLimitMiddleware())
	}
	return append(chain, handler)
}

// List returns a page of recipes, newest first, narrowed by the tag, author
// and membership filters.
func (h *RecipeHandler) List(c *gin.Context) {
	page, limit := pageParams(c)
	viewer := viewerID(c)

	filter := service.RecipeFilter{
		TagSlugs: c.QueryArray("tags"),
		Viewer:   viewer,
	}
	if author := c.Query("author"); author != "" {
		// A malformed id parses to the nil uuid, which matches no rows.
		id, _ := uuid.Parse(author)
		filter.Author = &id
	}
	if flagQuery(c, "is_favorited") {
		filter.IsFavorited = pointy.Bool(true)
	}
	if flagQuery(c, "is_in_shopping_cart") {
		filter.IsInShoppingCart = pointy.Bool(true)
	}

	recipes, total, err := h.recipes.List(filter, limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}

	ids := make([]uuid.UUID, 0, len(recipes))
	authorIDs := make([]uuid.UUID, 0, len(recipes))
	for i := range recipes {
		ids = append(ids, recipes[i].ID)
		authorIDs = append(authorIDs, recipes[i].AuthorID)
	}

	favorited, err := h.recipes.FavoriteSet(viewer, ids)
	if err != nil {
		respondError(c, err)
		return
	}
	inCart, err := h.recipes.CartSet(viewer, ids)
	if err != nil {
		respondError(c, err)
		return
	}
	subscribed, err := h.users.SubscribedSet(viewer, authorIDs)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]RecipeResponse, 0, len(recipes))
	for i := range recipes {
		r := &recipes[i]
		results = append(results, newRecipeResponse(r, subscribed[r.AuthorID], favorited[r.ID], inCart[r.ID]))
	}
	c.JSON(http.StatusOK, newPage(c, total, page, limit, results))
}

// Get returns a single recipe with viewer flags resolved.
func (h *RecipeHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrRecipeNotFound.Error()})
		return
	}

	recipe, err := h.recipes.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.recipeResponse(viewerID(c), recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create stores a new recipe and answers with its full read representation.
func (h *RecipeHandler) Create(c *gin.Context) {
	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	recipe, err := h.recipes.Create(c.Request.Context(), viewerID(c), recipeParams(req))
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.recipeResponse(viewerID(c), recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Update replaces the recipe fields and its tag and ingredient sets.
func (h *RecipeHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrRecipeNotFound.Error()})
		return
	}

	var req RecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	recipe, err := h.recipes.Update(c.Request.Context(), viewerID(c), id, recipeParams(req))
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.recipeResponse(viewerID(c), recipe)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete removes the viewer's own recipe.
func (h *RecipeHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrRecipeNotFound.Error()})
		return
	}

	if err := h.recipes.Delete(c.Request.Context(), viewerID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddFavorite marks the recipe as a favorite of the viewer.
func (h *RecipeHandler) AddFavorite(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrRecipeNotFound.Error()})
		return
	}

	recipe, err := h.recipes.AddFavorite(viewerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newShortRecipeResponse(recipe))
}

// RemoveFavorite drops the recipe from the viewer's favorites.
func (h *RecipeHandler) RemoveFavorite(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrRecipeNotFound.Error()})
		return
	}

	if err := h.recipes.RemoveFavorite(viewerID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AddToCart puts the recipe into the viewer's shopping cart.
func (h *RecipeHandler) AddToCart(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrRecipeNotFound.Error()})
		return
	}

	recipe, err := h.recipes.AddToCart(viewerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newShortRecipeResponse(recipe))
}

// RemoveFromCart drops the recipe from the viewer's shopping cart.
func (h *RecipeHandler) RemoveFromCart(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrRecipeNotFound.Error()})
		return
	}

	if err := h.recipes.RemoveFromCart(viewerID(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadShoppingCart aggregates the cart into a plain text shopping list
// and serves it as an attachment.
func (h *RecipeHandler) DownloadShoppingCart(c *gin.Context) {
	user, err := h.users.GetByID(viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	items, err := h.recipes.ShoppingList(user.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	doc := renderShoppingList(user, items, time.Now())
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", user.Username+"_shopping_list.txt"))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(doc))
}

// renderShoppingList lays out the downloadable document: a header naming the
// user and the date, one line per aggregated ingredient, and a footer.
func renderShoppingList(user *models.User, items []service.ShoppingListItem, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shopping list for: %s\n", user.FullName())
	fmt.Fprintf(&b, "Date: %s\n\n", now.Format("2006-01-02"))
	for _, item := range items {
		fmt.Fprintf(&b, "- %s (%s) - %d\n", item.Name, item.MeasurementUnit, item.Total)
	}
	fmt.Fprintf(&b, "\nFoodgram (%d)", now.Year())
	return b.String()
}

// recipeResponse resolves the viewer flags for a single recipe body.
func (h *RecipeHandler) recipeResponse(viewer uuid.UUID, recipe *models.Recipe) (RecipeResponse, error) {
	favorited, err := h.recipes.FavoriteSet(viewer, []uuid.UUID{recipe.ID})
	if err != nil {
		return RecipeResponse{}, err
	}
	inCart, err := h.recipes.CartSet(viewer, []uuid.UUID{recipe.ID})
	if err != nil {
		return RecipeResponse{}, err
	}
	subscribed, err := h.users.IsSubscribed(viewer, recipe.AuthorID)
	if err != nil {
		return RecipeResponse{}, err
	}
	return newRecipeResponse(recipe, subscribed, favorited[recipe.ID], inCart[recipe.ID]), nil
}

// recipeParams converts the request body into service parameters. Malformed
// ids parse to the nil uuid and fail the existence checks downstream.
func recipeParams(req RecipeRequest) service.RecipeParams {
	params := service.RecipeParams{
		Name:        req.Name,
		Text:        req.Text,
		CookingTime: req.CookingTime,
		Image:       req.Image,
	}
	for _, raw := range req.Tags {
		id, _ := uuid.Parse(raw)
		params.TagIDs = append(params.TagIDs, id)
	}
	for _, ing := range req.Ingredients {
		id, _ := uuid.Parse(ing.ID)
		params.Ingredients = append(params.Ingredients, service.RecipeIngredientParams{
			IngredientID: id,
			Amount:       ing.Amount,
		})
	}
	return params
}

// flagQuery reads a boolean query parameter the frontend sends as 1 or true.
func flagQuery(c *gin.Context, name string) bool {
	v := c.Query(name)
	return v == "1" || strings.EqualFold(v, "true")
}
