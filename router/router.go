package router

import (
	"github.com/NomadCrew/climapro-backend/config"
	"github.com/NomadCrew/climapro-backend/handlers"
	"github.com/NomadCrew/climapro-backend/internal/websocket"
	"github.com/NomadCrew/climapro-backend/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies struct holds all dependencies required for setting up routes.
type Dependencies struct {
	Config *config.Config
	// CurrentConfig returns the latest hot-reloaded config. Defaults to Config.
	CurrentConfig    func() *config.Config
	HealthHandler    *handlers.HealthHandler
	WeatherHandler   *handlers.WeatherHandler
	CityHandler      *handlers.CityHandler
	FavoritesHandler *handlers.FavoritesHandler
	SettingsHandler  *handlers.SettingsHandler
	SummaryHandler   *handlers.SummaryHandler
	WSHandler        *websocket.Handler
}

// SetupRouter configures and returns the main Gin engine with all routes defined.
func SetupRouter(deps Dependencies) *gin.Engine {
	r := gin.Default()

	// Global Middleware
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(&deps.Config.Server))
	r.Use(middleware.SecurityHeadersMiddleware(&deps.Config.Server))

	// Health and Metrics Routes
	r.GET("/health", deps.HealthHandler.DetailedHealth)
	r.GET("/health/liveness", deps.HealthHandler.LivenessCheck)
	r.GET("/health/readiness", deps.HealthHandler.ReadinessCheck)
	r.GET("/health/components/:component", deps.HealthHandler.ComponentHealth)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Debug routes (only in non-production)
	if deps.Config.Server.Environment != config.EnvProduction {
		current := deps.CurrentConfig
		if current == nil {
			cfg := deps.Config
			current = func() *config.Config { return cfg }
		}
		r.GET("/debug/config", handlers.DebugConfigHandler(current))
	}

	v1 := r.Group("/v1")
	{
		v1.GET("/state", deps.WeatherHandler.GetStateHandler)
		if deps.WSHandler != nil {
			v1.GET("/ws", deps.WSHandler.HandleWebSocket)
		}

		weatherRoutes := v1.Group("/weather")
		{
			weatherRoutes.POST("/city/:id", deps.WeatherHandler.FetchCityHandler)
			weatherRoutes.POST("/location", deps.WeatherHandler.FetchLocationHandler)
			weatherRoutes.POST("/refresh", deps.WeatherHandler.RefreshHandler)
		}

		cityRoutes := v1.Group("/cities")
		{
			cityRoutes.GET("", deps.CityHandler.ListCitiesHandler)
			cityRoutes.GET("/search", deps.CityHandler.SearchCitiesHandler)
			cityRoutes.GET("/:id", deps.CityHandler.GetCityHandler)
		}

		favoriteRoutes := v1.Group("/favorites")
		{
			favoriteRoutes.GET("", deps.FavoritesHandler.ListFavoritesHandler)
			favoriteRoutes.POST("", deps.FavoritesHandler.AddFavoriteHandler)
			favoriteRoutes.PUT("/order", deps.FavoritesHandler.ReorderFavoritesHandler)
			favoriteRoutes.DELETE("/:id", deps.FavoritesHandler.RemoveFavoriteHandler)
			favoriteRoutes.GET("/:id/status", deps.FavoritesHandler.FavoriteStatusHandler)
		}

		recentRoutes := v1.Group("/recents")
		{
			recentRoutes.GET("", deps.FavoritesHandler.ListRecentsHandler)
			recentRoutes.POST("", deps.FavoritesHandler.AddRecentHandler)
			recentRoutes.DELETE("", deps.FavoritesHandler.ClearRecentsHandler)
		}

		settingsRoutes := v1.Group("/settings")
		{
			settingsRoutes.GET("", deps.SettingsHandler.GetSettingsHandler)
			settingsRoutes.PATCH("", deps.SettingsHandler.PatchSettingsHandler)
			settingsRoutes.PUT("/:key", deps.SettingsHandler.UpdateSettingHandler)
		}

		v1.GET("/theme", deps.SettingsHandler.GetThemeHandler)
		v1.PUT("/theme/mode", deps.SettingsHandler.SetThemeModeHandler)

		v1.GET("/format/temperature", deps.WeatherHandler.FormatTemperatureHandler)
		v1.GET("/format/speed", deps.WeatherHandler.FormatSpeedHandler)

		v1.POST("/summary", deps.SummaryHandler.SummaryHandler)
		v1.GET("/config/client", deps.SettingsHandler.ClientConfigHandler)
	}

	return r
}
