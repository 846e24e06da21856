package api

import (
	"github.com/gin-gonic/gin"

	"github.com/foodgram/backend/internal/middleware"
	"github.com/foodgram/backend/internal/service"
)

// Services carries the wired service layer into the route setup.
type Services struct {
	Auth    *service.AuthService
	Users   *service.UserService
	Catalog *service.CatalogService
	Recipes *service.RecipeService
}

// SetupAPI registers every route group under /api. The limiter throttles
// recipe writes and may be nil when rate limiting is disabled.
func SetupAPI(router *gin.Engine, svcs Services, limiter *middleware.RateLimiter) {
	root := router.Group("/api")
	{
		NewAuthHandler(svcs.Auth).RegisterRoutes(root)
		NewUserHandler(svcs.Auth, svcs.Users, svcs.Recipes).RegisterRoutes(root)
		NewCatalogHandler(svcs.Catalog).RegisterRoutes(root)
		NewRecipeHandler(svcs.Auth, svcs.Users, svcs.Recipes, limiter).RegisterRoutes(root)
	}
}
