package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/camden-git/tryonbackend/config"
	"github.com/camden-git/tryonbackend/database"
	"github.com/camden-git/tryonbackend/device"
	"github.com/camden-git/tryonbackend/handlers"
	"github.com/camden-git/tryonbackend/media"
	"github.com/camden-git/tryonbackend/realtime"
	"github.com/camden-git/tryonbackend/removal"
	"github.com/camden-git/tryonbackend/repository"
	"github.com/camden-git/tryonbackend/tryon"
	"github.com/camden-git/tryonbackend/workers"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	storagePaths := []string{cfg.SubjectsPath, cfg.CutoutsPath, cfg.CapturesPath, cfg.GarmentLibraryPath, filepath.Dir(cfg.DatabasePath)}
	for _, p := range storagePaths {
		log.Printf("Ensuring storage directory exists: %s", p)
		if err := os.MkdirAll(p, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create storage directory %s: %v", p, err)
		}
	}

	gormDB, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(gormDB); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}

	garmentDB, err := database.InitGarmentDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize garment index: %v", err)
	}
	defer garmentDB.Close()

	mediaSubDirs := map[media.AssetType]string{
		media.AssetTypeSubject: filepath.Base(cfg.SubjectsPath),
		media.AssetTypeCutout:  filepath.Base(cfg.CutoutsPath),
		media.AssetTypeCapture: filepath.Base(cfg.CapturesPath),
	}
	mediaStore, err := media.NewLocalStorage(cfg.MediaStoragePath, mediaSubDirs)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}
	assetSource := media.NewAssetSource(mediaStore, cfg.GarmentLibraryPath)

	detector := device.NewDetector(cfg.DeviceTierOverride, cfg.SegmentationModel)
	caps := detector.Detect()

	method, err := removal.ParseMethod(cfg.RemovalMethod)
	if err != nil {
		log.Fatalf("FATAL: Invalid REMOVAL_METHOD '%s': %v", cfg.RemovalMethod, err)
	}
	modelCache := removal.NewModelCache(cfg.SegmentationModel, cfg.PersonClassIndex)
	localRemover := removal.NewLocalRemover(modelCache, detector)
	remoteRemover := removal.NewRemoteRemover(cfg.SegmentationAPIURL, cfg.SegmentationAPIKey)
	pipeline := removal.NewPipeline(remoteRemover, localRemover)
	resultCache := removal.NewResultCache(cfg.RedisAddr, cfg.RedisTTL)
	removalOpts := removal.Options{
		Method:               method,
		FallbackToLocalModel: cfg.RemovalFallbackLocal && caps.LocalModelEnabled,
	}

	hub := realtime.NewHub()
	go hub.Run()

	sessions := tryon.NewSessionManager()
	captureRepo := repository.NewGormCaptureRepository(gormDB)

	log.Printf("Initializing removal worker pool (Workers: %d, Queue Size: %d)...", cfg.NumRemovalWorkers, cfg.RemovalQueueSize)
	processor := workers.NewRemovalProcessor(pipeline, resultCache, removalOpts,
		sessions, mediaStore, hub, cfg.RemovalQueueSize, cfg.NumRemovalWorkers)
	defer processor.Stop()

	log.Printf("Using database: %s", cfg.DatabasePath)
	log.Printf("Garment library: %s", cfg.GarmentLibraryPath)
	log.Printf("Removal method: %s (local fallback: %t)", method, removalOpts.FallbackToLocalModel)

	r := chi.NewRouter()

	corsOptions := cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173"}, //TODO: configurable
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}

	corsHandler := cors.New(corsOptions)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(corsHandler.Handler)

	sessionHandler := &handlers.SessionHandler{
		Cfg:       cfg,
		Sessions:  sessions,
		Store:     mediaStore,
		Source:    assetSource,
		Processor: processor,
		Hub:       hub,
		Caps:      caps,
	}
	captureHandler := &handlers.CaptureHandler{
		Sessions: sessions,
		Store:    mediaStore,
		Repo:     captureRepo,
		Hub:      hub,
	}
	libraryHandler := &handlers.GarmentLibraryHandler{LibraryPath: cfg.GarmentLibraryPath, DB: garmentDB}
	deviceHandler := &handlers.DeviceHandler{Caps: caps}

	r.Route("/api", func(r chi.Router) {
		r.Route("/sessions", func(r chi.Router) {
			r.Post("/", sessionHandler.CreateSession)
			r.Route("/{session_id}", func(r chi.Router) {
				r.Delete("/", sessionHandler.DeleteSession)
				r.Post("/photo", sessionHandler.UploadPhoto)
				r.Get("/subject", sessionHandler.GetSubject)
				r.Post("/retry-removal", sessionHandler.RetryRemoval)
				r.Get("/frame", sessionHandler.GetFrame)
				r.Post("/pointer", sessionHandler.Pointer)

				r.Route("/garments", func(r chi.Router) {
					r.Post("/", sessionHandler.AddGarment)
					r.Get("/", sessionHandler.ListGarments)
					r.Route("/{layer_id}", func(r chi.Router) {
						r.Patch("/", sessionHandler.UpdateGarment)
						r.Put("/order", sessionHandler.ReorderGarment)
						r.Delete("/", sessionHandler.RemoveGarment)
					})
				})

				r.Route("/capture", func(r chi.Router) {
					r.Post("/", captureHandler.StartCapture)
					r.Delete("/", captureHandler.CancelCapture)
				})
				r.Get("/captures", captureHandler.ListCaptures)
			})
		})

		r.Route("/captures", func(r chi.Router) {
			r.Get("/", captureHandler.ListAllCaptures)
			r.Route("/{capture_id}", func(r chi.Router) {
				r.Get("/", captureHandler.GetCapture)
				r.Get("/image", captureHandler.GetCaptureImage)
				r.Delete("/", captureHandler.DeleteCapture)
			})
		})

		r.Get("/garment-library", libraryHandler.ListLibrary)
		r.Get("/device", deviceHandler.GetCapabilities)

		subjectSubDir := filepath.Base(cfg.SubjectsPath)
		r.Get(fmt.Sprintf("/%s/*", subjectSubDir), handlers.AssetServer(cfg.MediaStoragePath, subjectSubDir))
		log.Printf("Registered subject server at /%s/*", subjectSubDir)

		cutoutSubDir := filepath.Base(cfg.CutoutsPath)
		r.Get(fmt.Sprintf("/%s/*", cutoutSubDir), handlers.AssetServer(cfg.MediaStoragePath, cutoutSubDir))
		log.Printf("Registered cutout server at /%s/*", cutoutSubDir)

		captureSubDir := filepath.Base(cfg.CapturesPath)
		r.Get(fmt.Sprintf("/%s/*", captureSubDir), handlers.AssetServer(cfg.MediaStoragePath, captureSubDir))
		log.Printf("Registered capture server at /%s/*", captureSubDir)

		librarySubDir := filepath.Base(cfg.GarmentLibraryPath)
		r.Get(fmt.Sprintf("/%s/*", librarySubDir), handlers.AssetServer(filepath.Dir(cfg.GarmentLibraryPath), librarySubDir))
		log.Printf("Registered garment library server at /%s/*", librarySubDir)
	})

	r.Get("/ws", hub.ServeWS)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	serverAddr := ":" + port
	fmt.Printf("Server starting on http://localhost:%s\n", port)
	log.Printf("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Fatal(server.ListenAndServe())
}
