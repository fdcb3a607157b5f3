package main

import (
	"net/http"
	"time"

	"github.com/blockblockers/Deadblock-sub003/internal/game"
	"github.com/blockblockers/Deadblock-sub003/internal/matchmaking"
	"github.com/blockblockers/Deadblock-sub003/internal/migrations"
	"github.com/blockblockers/Deadblock-sub003/internal/pkg/middleware"
	"github.com/blockblockers/Deadblock-sub003/internal/profile"
	"github.com/blockblockers/Deadblock-sub003/internal/rematch"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	setupViper()
	setupZerolog()
	db := setupDb()
	apiRouter := setupApiRouter(db)

	port := viper.GetString("PORT")
	server := &http.Server{
		Addr:         port,
		Handler:      apiRouter,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	if err := server.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}

func setupDb() *gorm.DB {
	dbUrl := viper.GetString("DB_URL")

	db, err := gorm.Open(postgres.Open(dbUrl), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}

	sqlDb, err := db.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to access underlying database handle")
	}

	sqlDb.SetMaxOpenConns(50)
	sqlDb.SetConnMaxLifetime(time.Minute * 10)

	if err := migrations.Run(sqlDb); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	return db
}

func setupApiRouter(db *gorm.DB) *gin.Engine {
	apiRouter := gin.Default()
	routerGroup := apiRouter.Group("/deadblock-api")

	middleware.RegisterGlobalMiddleware(apiRouter)

	matchmaking.RegisterRoutes(routerGroup, db)
	rematch.RegisterRoutes(routerGroup, db)
	game.RegisterRoutes(routerGroup, db)
	profile.RegisterRoutes(routerGroup, db)

	return apiRouter
}

func setupViper() {
	viper.AutomaticEnv()
	viper.SetConfigFile("./.env")
	_ = viper.ReadInConfig()
}

func setupZerolog() {
	zerolog.LevelFieldName = "severity"
	zerolog.TimestampFieldName = "time"
	zerolog.TimeFieldFormat = time.RFC3339Nano
}
