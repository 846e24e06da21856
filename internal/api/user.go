package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/models"
	"github.com/foodgram/backend/internal/service"
)

// UserHandler serves registration, profiles and the subscription graph.
type UserHandler struct {
	auth    *service.AuthService
	users   *service.UserService
	recipes *service.RecipeService
}

func NewUserHandler(auth *service.AuthService, users *service.UserService, recipes *service.RecipeService) *UserHandler {
	return &UserHandler{
		auth:    auth,
		users:   users,
		recipes: recipes,
	}
}

func (h *UserHandler) RegisterRoutes(router *gin.RouterGroup) {
	users := router.Group("/users")
	{
		users.POST("", h.Register)
		users.GET("", middleware.OptionalAuthMiddleware(h.auth), h.List)
		users.GET("/me", middleware.AuthMiddleware(h.auth), h.Me)
		users.PUT("/me/avatar", middleware.AuthMiddleware(h.auth), h.UpdateAvatar)
		users.DELETE("/me/avatar", middleware.AuthMiddleware(h.auth), h.DeleteAvatar)
		users.POST("/set_password", middleware.AuthMiddleware(h.auth), h.SetPassword)
		users.GET("/subscriptions", middleware.AuthMiddleware(h.auth), h.Subscriptions)
		users.GET("/:id", middleware.OptionalAuthMiddleware(h.auth), h.Get)
		users.POST("/:id/subscribe", middleware.AuthMiddleware(h.auth), h.Subscribe)
		users.DELETE("/:id/subscribe", middleware.AuthMiddleware(h.auth), h.Unsubscribe)
	}
}

// Register creates a new account and answers with the trimmed profile.
func (h *UserHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.auth.Register(service.RegisterParams{
		Email:     req.Email,
		Username:  req.Username,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newRegisterResponse(user))
}

// List returns a page of profiles with follow flags for the viewer.
func (h *UserHandler) List(c *gin.Context) {
	page, limit := pageParams(c)

	users, total, err := h.users.List(limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}

	ids := make([]uuid.UUID, 0, len(users))
	for i := range users {
		ids = append(ids, users[i].ID)
	}
	subscribed, err := h.users.SubscribedSet(viewerID(c), ids)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]UserResponse, 0, len(users))
	for i := range users {
		results = append(results, newUserResponse(&users[i], subscribed[users[i].ID]))
	}
	c.JSON(http.StatusOK, newPage(c, total, page, limit, results))
}

// Get returns a single profile.
func (h *UserHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrUserNotFound.Error()})
		return
	}

	user, err := h.users.GetByID(id)
	if err != nil {
		respondError(c, err)
		return
	}

	subscribed, err := h.users.IsSubscribed(viewerID(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user, subscribed))
}

// Me returns the authenticated user's own profile.
func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.users.GetByID(viewerID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, newUserResponse(user, false))
}

// UpdateAvatar replaces the profile image from a base64 payload.
func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	var req AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	user, err := h.users.UpdateAvatar(c.Request.Context(), viewerID(c), req.Avatar)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar": user.Avatar})
}

// DeleteAvatar removes the profile image.
func (h *UserHandler) DeleteAvatar(c *gin.Context) {
	if err := h.users.DeleteAvatar(c.Request.Context(), viewerID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetPassword changes the password after verifying the current one.
func (h *UserHandler) SetPassword(c *gin.Context) {
	var req SetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.users.SetPassword(viewerID(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Subscriptions lists the authors the user follows, each with a recipe
// preview capped by the recipes_limit query parameter.
func (h *UserHandler) Subscriptions(c *gin.Context) {
	page, limit := pageParams(c)

	authors, total, err := h.users.Subscriptions(viewerID(c), limit, (page-1)*limit)
	if err != nil {
		respondError(c, err)
		return
	}

	results := make([]SubscriptionResponse, 0, len(authors))
	for i := range authors {
		resp, err := h.subscriptionResponse(&authors[i], c.Query("recipes_limit"))
		if err != nil {
			respondError(c, err)
			return
		}
		results = append(results, resp)
	}
	c.JSON(http.StatusOK, newPage(c, total, page, limit, results))
}

// Subscribe makes the viewer follow the author.
func (h *UserHandler) Subscribe(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrUserNotFound.Error()})
		return
	}

	author, err := h.users.Subscribe(viewerID(c), authorID)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := h.subscriptionResponse(author, c.Query("recipes_limit"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Unsubscribe removes the follow relation.
func (h *UserHandler) Unsubscribe(c *gin.Context) {
	authorID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrUserNotFound.Error()})
		return
	}

	if err := h.users.Unsubscribe(viewerID(c), authorID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// subscriptionResponse assembles an author body with their recipe preview.
// An unset or invalid recipes_limit means the preview is not capped.
func (h *UserHandler) subscriptionResponse(author *models.User, recipesLimit string) (SubscriptionResponse, error) {
	previewLimit := 0
	if v, err := strconv.Atoi(recipesLimit); err == nil && v > 0 {
		previewLimit = v
	}

	recipes, err := h.recipes.ByAuthor(author.ID, previewLimit)
	if err != nil {
		return SubscriptionResponse{}, err
	}
	count, err := h.recipes.CountByAuthor(author.ID)
	if err != nil {
		return SubscriptionResponse{}, err
	}
	return newSubscriptionResponse(author, recipes, count), nil
}
