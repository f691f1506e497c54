package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"

	"bedtime-server/internal/ai"
	"bedtime-server/internal/apikeys"
	"bedtime-server/internal/auth"
	"bedtime-server/internal/config"
	"bedtime-server/internal/interfaces"
	"bedtime-server/internal/messaging"
	"bedtime-server/internal/models"
	"bedtime-server/internal/music"
	"bedtime-server/internal/playback"
)

// Handler объединяет все HTTP обработчики API сервера.
type Handler struct {
	cfg         *config.Config
	logger      *zap.Logger
	authService *auth.Service
	storyRepo   interfaces.StoryRepository
	keyRepo     interfaces.APIKeyRepository
	keyResolver *apikeys.Resolver
	quizGen     *ai.QuizGenerator
	musicLib    *music.Library
	sessions    *playback.Manager
	publisher   messaging.TaskPublisher
	wsManager   *ConnectionManager
}

// New создает HTTP обработчик со всеми зависимостями.
func New(
	cfg *config.Config,
	logger *zap.Logger,
	authService *auth.Service,
	storyRepo interfaces.StoryRepository,
	keyRepo interfaces.APIKeyRepository,
	keyResolver *apikeys.Resolver,
	quizGen *ai.QuizGenerator,
	musicLib *music.Library,
	sessions *playback.Manager,
	publisher messaging.TaskPublisher,
	wsManager *ConnectionManager,
) *Handler {
	return &Handler{
		cfg:         cfg,
		logger:      logger.Named("HTTP"),
		authService: authService,
		storyRepo:   storyRepo,
		keyRepo:     keyRepo,
		keyResolver: keyResolver,
		quizGen:     quizGen,
		musicLib:    musicLib,
		sessions:    sessions,
		publisher:   publisher,
		wsManager:   wsManager,
	}
}

// NewRouter настраивает gin со всеми middleware и маршрутами.
func NewRouter(h *Handler, cfg *config.Config, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(GinZapLogger(logger))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	prom := ginprometheus.NewPrometheus("gin")
	prom.Use(router)

	// Синтезированное аудио раздаётся как статика
	router.Static(cfg.AudioBaseURL, cfg.AudioDir)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	h.RegisterRoutes(router)
	return router
}

// RegisterRoutes вешает маршруты API на роутер.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.handleRegister)
		authGroup.POST("/login", h.handleLogin)
		authGroup.POST("/refresh", h.handleRefresh)
		authGroup.POST("/logout", h.handleLogout)
	}

	api.GET("/music", h.handleListMusic)

	authorized := api.Group("")
	authorized.Use(AuthMiddleware(h.authService))
	{
		authorized.POST("/stories", h.handleCreateStory)
		authorized.GET("/stories", h.handleListStories)
		authorized.GET("/stories/:id", h.handleGetStory)
		authorized.POST("/stories/:id/quiz", h.handleGenerateQuiz)

		authorized.POST("/playback", h.handleCreatePlayback)
		authorized.GET("/playback/:id", h.handleGetPlayback)
		authorized.POST("/playback/:id/tracks/:track/:action", h.handlePlaybackAction)

		authorized.GET("/ws", h.handleWebSocket)
	}

	admin := api.Group("/admin")
	admin.Use(AuthMiddleware(h.authService), RequireRole(models.RoleAdmin))
	{
		admin.GET("/keys", h.handleListKeys)
		admin.PUT("/keys/:name", h.handleUpsertKey)
		admin.POST("/keys/:name/active", h.handleSetKeyActive)
	}
}

// userIDFromContext достаёт аутентифицированного пользователя из контекста.
func userIDFromContext(c *gin.Context) (uuid.UUID, bool) {
	raw := c.GetString(contextKeyUserID)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// respondError переводит доменные ошибки в HTTP статусы.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidCredentials),
		errors.Is(err, models.ErrUnauthorized),
		errors.Is(err, models.ErrTokenInvalid),
		errors.Is(err, models.ErrTokenExpired),
		errors.Is(err, models.ErrTokenNotFound):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrUserAlreadyExists),
		errors.Is(err, models.ErrEmailAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, models.ErrRateLimit):
		status = http.StatusTooManyRequests
	case errors.Is(err, models.ErrParse), errors.Is(err, models.ErrProvider):
		status = http.StatusBadGateway
	case errors.Is(err, models.ErrConfiguration):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		h.logger.Error("Unhandled error", zap.Error(err))
		c.JSON(status, gin.H{"error": models.ErrInternalServer.Error()})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
