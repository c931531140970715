package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"linkary/auth"
	"linkary/config"
	"linkary/models"
	"linkary/services"
	"linkary/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	newLinksCounter         prometheus.Counter
	metadataFailuresCounter prometheus.Counter
)

func init() {
	newLinksCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "links_created_total",
			Help: "Total number of links saved.",
		},
	)
	metadataFailuresCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "metadata_extraction_failures_total",
			Help: "Total number of metadata extractions that fell back to degraded values.",
		},
	)
	prometheus.MustRegister(newLinksCounter, metadataFailuresCounter)
}

// jwtAuthMiddleware prüft das Bearer-Token und legt die User-ID in den Kontext.
func jwtAuthMiddleware(tokens *auth.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		userID, err := tokens.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set("userID", userID)
		c.Next()
	}
}

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	// Setup Database Connection
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(&models.User{}, &models.Link{}); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}

	// Setup Services
	extractor := services.NewMetadataExtractor(logging)
	extractor.FailureCounter = metadataFailuresCounter
	linkService := services.NewLinkService(db, logging, extractor)

	tokens := auth.NewJWTManager(cfg.JWTSecret, time.Duration(cfg.JWTExpiryHours)*time.Hour)
	authService := auth.NewService(db, logging, auth.NewGoogleVerifier(cfg.GoogleClientID), tokens)

	// Setup Router
	router := gin.Default()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "linkary"})
	})

	// Setup Routes
	setupAuthRoutes(router, authService, tokens, logging)
	setupLinkRoutes(router, linkService, tokens, logging)

	// Setup Cron: nächtlicher Link-Export nach S3
	if cfg.ExportEnabled {
		s3Client, err := storage.NewS3Client(cfg)
		if err != nil {
			logging.Fatal("S3 client creation failed", zap.Error(err))
		}
		exportService := services.NewExportService(cfg, db, s3Client, logging)

		cronScheduler := cron.New()
		cronScheduler.AddFunc(cfg.ExportCronSchedule, func() {
			logging.Info("Running scheduled link export...")
			count, err := exportService.Run(context.Background())
			if err != nil {
				logging.Error("Export job failed", zap.Error(err))
			} else {
				logging.Info("Export job completed", zap.Int("links", count))
			}
		})
		cronScheduler.Start()
	} else {
		logging.Info("Link export disabled via EXPORT_ENABLED=false")
	}

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func setupAuthRoutes(router *gin.Engine, authService *auth.Service, tokens *auth.JWTManager, log *zap.Logger) {
	rg := router.Group("/auth")

	// POST - Google-Credential gegen Session-Token tauschen
	rg.POST("/google", func(c *gin.Context) {
		var req struct {
			Credential string `json:"credential" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'credential' field is required."})
			return
		}

		token, user, err := authService.Login(c.Request.Context(), req.Credential)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredential) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid Google credential"})
				return
			}
			log.Error("Google login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"access_token": token,
			"token_type":   "bearer",
			"user":         user,
		})
	})

	rg.GET("/me", jwtAuthMiddleware(tokens), func(c *gin.Context) {
		user, err := authService.CurrentUser(c.GetString("userID"))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
				return
			}
			log.Error("Failed to load current user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, user)
	})
}

func setupLinkRoutes(router *gin.Engine, linkService *services.LinkService, tokens *auth.JWTManager, log *zap.Logger) {
	rg := router.Group("/links")
	rg.Use(jwtAuthMiddleware(tokens))

	// GET - alle Links des eingeloggten Owners
	rg.GET("", func(c *gin.Context) {
		links, err := linkService.ListLinks(c.GetString("userID"))
		if err != nil {
			log.Error("Database query for links failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, links)
	})

	// GET - Graph-Projektion für die Visualisierung. Muss vor /:id stehen.
	rg.GET("/graph", func(c *gin.Context) {
		graph, err := linkService.Graph(c.GetString("userID"))
		if err != nil {
			log.Error("Graph projection failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, graph)
	})

	rg.GET("/:id", func(c *gin.Context) {
		link, err := linkService.GetLink(c.Param("id"), c.GetString("userID"))
		if err != nil {
			if errors.Is(err, services.ErrLinkNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
				return
			}
			log.Error("Failed to load link", zap.String("id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, link)
	})

	// POST - Link anlegen; Metadaten werden synchron extrahiert
	rg.POST("", func(c *gin.Context) {
		var input services.CreateLinkInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body. 'url' field is required."})
			return
		}

		link, err := linkService.CreateLink(c.GetString("userID"), input)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrInvalidURL):
				c.JSON(http.StatusBadRequest, gin.H{"error": "url must be absolute http or https"})
			case errors.Is(err, services.ErrInvalidCategory):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			case errors.Is(err, services.ErrDuplicateURL):
				c.JSON(http.StatusConflict, gin.H{"error": "url already saved"})
			default:
				log.Error("Failed to create link", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create link"})
			}
			return
		}

		newLinksCounter.Inc()
		c.JSON(http.StatusCreated, link)
	})

	// PUT - Teil-Update; nur mitgesendete Felder werden angefasst
	rg.PUT("/:id", func(c *gin.Context) {
		var input services.UpdateLinkInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		link, err := linkService.UpdateLink(c.Param("id"), c.GetString("userID"), input)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrLinkNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
			case errors.Is(err, services.ErrInvalidCategory):
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			default:
				log.Error("Failed to update link", zap.String("id", c.Param("id")), zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update link"})
			}
			return
		}
		c.JSON(http.StatusOK, link)
	})

	rg.DELETE("/:id", func(c *gin.Context) {
		err := linkService.DeleteLink(c.Param("id"), c.GetString("userID"))
		if err != nil {
			if errors.Is(err, services.ErrLinkNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "link not found"})
				return
			}
			log.Error("Failed to delete link", zap.String("id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete link"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "link deleted"})
	})
}
