package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"zenstream/config"
	"zenstream/handlers"
	"zenstream/internal/localstore"
	"zenstream/services/backend"
	"zenstream/services/comments"
	"zenstream/services/history"
	"zenstream/services/metadata"
	"zenstream/services/searches"
	"zenstream/services/suggest"
	"zenstream/services/watchlist"
	"zenstream/utils"
)

func main() {
	configPath := os.Getenv("ZENSTREAM_CONFIG")
	if configPath == "" {
		configPath = "config.json"
	}
	configManager := config.NewManager(configPath)

	settings, err := configManager.Load()
	if err != nil {
		log.Fatalf("[main] failed to load settings: %v", err)
	}

	if settings.LogFile != "" {
		log.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   settings.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}))
	}

	if settings.Backend.URL == "" || settings.Backend.AnonKey == "" {
		log.Fatalf("[main] backend url and anon key must be configured")
	}

	store := localstore.New(filepath.Join(settings.DataDir, "localstore"))

	backendClient := backend.NewClient(settings.Backend.URL, settings.Backend.AnonKey)
	authService := backend.NewAuthService(backendClient, store)

	catalogClient := metadata.NewClient(
		settings.Catalog.APIKey,
		settings.Catalog.BaseURL,
		time.Duration(settings.Catalog.CacheTTLMins)*time.Minute,
	)
	suggestClient := suggest.NewClient(settings.Suggest.APIKey, settings.Suggest.Model)

	watchlistService := watchlist.NewService(backendClient, authService)
	searchesService := searches.NewService(backendClient, store, authService)
	historyService := history.NewService(store)
	commentsService := comments.NewService(backendClient, backendClient, store, authService)

	// Hydrate stores for the restored session, then follow future changes.
	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	authService.Start(startCtx)
	cancel()
	watchlistService.Start()
	searchesService.Start()

	if settings.Server.APIKey == "" && os.Getenv("ZENSTREAM_REQUIRE_API_KEY") != "" {
		key, err := utils.GenerateAPIKey()
		if err != nil {
			log.Fatalf("[main] failed to generate api key: %v", err)
		}
		settings.Server.APIKey = key
		if err := configManager.Save(settings); err != nil {
			log.Printf("[main] warning: could not persist generated api key: %v", err)
		}
		log.Printf("[main] generated api key: %s", key)
	}

	router := utils.NewRouter()
	if settings.Server.APIKey != "" {
		router.Use(utils.APIKeyMiddleware(settings.Server.APIKey))
	}

	authHandler := handlers.NewAuthHandler(authService)
	profileHandler := handlers.NewProfileHandler(backendClient, authService)
	catalogHandler := handlers.NewCatalogHandler(catalogClient)
	suggestHandler := handlers.NewSuggestHandler(suggestClient, catalogClient)
	watchlistHandler := handlers.NewWatchlistHandler(watchlistService)
	historyHandler := handlers.NewHistoryHandler(historyService)
	searchesHandler := handlers.NewSearchesHandler(searchesService)
	commentsHandler := handlers.NewCommentsHandler(commentsService)

	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/auth/signup", authHandler.SignUp).Methods(http.MethodPost)
	api.HandleFunc("/auth/signin", authHandler.SignIn).Methods(http.MethodPost)
	api.HandleFunc("/auth/signout", authHandler.SignOut).Methods(http.MethodPost)
	api.HandleFunc("/auth/session", authHandler.Session).Methods(http.MethodGet)

	api.HandleFunc("/profile", profileHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/profile/avatar", profileHandler.UploadAvatar).Methods(http.MethodPost)

	api.HandleFunc("/catalog/trending", catalogHandler.Trending).Methods(http.MethodGet)
	api.HandleFunc("/catalog/genres", catalogHandler.Genres).Methods(http.MethodGet)
	api.HandleFunc("/catalog/search", catalogHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/catalog/discover", catalogHandler.Discover).Methods(http.MethodGet)
	api.HandleFunc("/catalog/anime", catalogHandler.Anime).Methods(http.MethodGet)
	api.HandleFunc("/catalog/tv/{id:[0-9]+}/season/{season:[0-9]+}", catalogHandler.SeasonEpisodes).Methods(http.MethodGet)
	api.HandleFunc("/catalog/{type}/{id:[0-9]+}", catalogHandler.Details).Methods(http.MethodGet)
	api.HandleFunc("/catalog/{type}/{id:[0-9]+}/similar", catalogHandler.Similar).Methods(http.MethodGet)

	api.HandleFunc("/suggest", suggestHandler.Mood).Methods(http.MethodPost)
	api.HandleFunc("/suggest/similar", suggestHandler.Similar).Methods(http.MethodPost)
	api.HandleFunc("/suggest/correct", suggestHandler.Correct).Methods(http.MethodPost)

	api.HandleFunc("/watchlist", watchlistHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/watchlist/toggle", watchlistHandler.Toggle).Methods(http.MethodPost)
	api.HandleFunc("/watchlist/contains/{id:[0-9]+}", watchlistHandler.Contains).Methods(http.MethodGet)

	api.HandleFunc("/history", historyHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/history", historyHandler.Add).Methods(http.MethodPost)
	api.HandleFunc("/history", historyHandler.Clear).Methods(http.MethodDelete)

	api.HandleFunc("/searches", searchesHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/searches", searchesHandler.Record).Methods(http.MethodPost)
	api.HandleFunc("/searches", searchesHandler.Remove).Methods(http.MethodDelete)

	api.HandleFunc("/comments/{type}/{id:[0-9]+}", commentsHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/comments/{type}/{id:[0-9]+}", commentsHandler.Post).Methods(http.MethodPost)
	api.HandleFunc("/comments/{type}/{id:[0-9]+}/vote", commentsHandler.Vote).Methods(http.MethodPost)
	api.HandleFunc("/comments/{type}/{id:[0-9]+}/reply-target", commentsHandler.ReplyTarget).Methods(http.MethodPost)
	api.HandleFunc("/comments/{type}/{id:[0-9]+}/release", commentsHandler.Release).Methods(http.MethodPost)
	api.HandleFunc("/comments/{type}/{id:[0-9]+}/{commentId}", commentsHandler.Delete).Methods(http.MethodDelete)

	server := &http.Server{
		Addr:              settings.Server.Address,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[main] listening on %s", settings.Server.Address)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("[main] shutting down")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[main] shutdown error: %v", err)
	}
	commentsService.Close()
	authService.Close()
}
