package main

import (
	"context"
	"log"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	fbapp "firebase.google.com/go/v4"

	"vaultdrive/internal/adapter/api"
	"vaultdrive/internal/adapter/api/handler"
	apimiddleware "vaultdrive/internal/adapter/api/middleware"
	"vaultdrive/internal/adapter/api/router"
	"vaultdrive/internal/adapter/repository"
	"vaultdrive/internal/domain/entity"
	domainrepo "vaultdrive/internal/domain/repository"
	"vaultdrive/internal/infrastructure/storage"
	"vaultdrive/internal/usecase"
	"vaultdrive/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opt option.ClientOption
	credentialsPath := ""

	// Service account from environment variable (for production), file path
	// as the local-development fallback.
	serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if serviceAccountJSON != "" {
		log.Printf("Using Firebase service account from environment variable")
		opt = option.WithCredentialsJSON([]byte(serviceAccountJSON))
	} else {
		credentialsPath = os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
		if credentialsPath == "" {
			log.Fatalf("Either FIREBASE_SERVICE_ACCOUNT_JSON or FIREBASE_SERVICE_ACCOUNT_PATH must be set")
		}
		if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", credentialsPath)
		}
		log.Printf("Using Firebase service account from file: %s", credentialsPath)
		opt = option.WithCredentialsFile(credentialsPath)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	var fileRepo domainrepo.FileRepository
	var shareRepo domainrepo.ShareRepository

	switch cfg.StorageBackend {
	case "postgres":
		db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		if err := db.AutoMigrate(&entity.FileRecord{}, &entity.ShareGrant{}); err != nil {
			log.Fatalf("Failed to migrate database schema: %v", err)
		}
		fileRepo = repository.NewPostgresFileRepository(db)
		shareRepo = repository.NewPostgresShareRepository(db)
		log.Printf("Using Postgres metadata backend")

	default:
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()
		fileRepo = repository.NewFirestoreFileRepository(firestoreClient)
		shareRepo = repository.NewFirestoreShareRepository(firestoreClient)
		log.Printf("Using Firestore metadata backend")
	}

	storageClient, err := storage.NewCloudStorageClient(ctx, cfg.StorageBucket, credentialsPath)
	if err != nil {
		log.Fatalf("Failed to initialize Cloud Storage: %v", err)
	}
	defer storageClient.Close()

	quotaUseCase := usecase.NewQuotaUseCase(fileRepo, cfg.QuotaBytes())
	uploadUseCase := usecase.NewUploadUseCase(fileRepo, storageClient, quotaUseCase, usecase.AllowAllPermissions{})
	fileUseCase := usecase.NewFileUseCase(fileRepo, shareRepo, storageClient, time.Duration(cfg.SignedURLTTLSecs)*time.Second)
	shareUseCase := usecase.NewShareUseCase(shareRepo, fileRepo)

	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient)

	fileHandler := handler.NewFileHandler(fileUseCase, uploadUseCase)
	shareHandler := handler.NewShareHandler(shareUseCase)
	quotaHandler := handler.NewQuotaHandler(quotaUseCase)

	router.Setup(e, authMiddleware, fileHandler, shareHandler, quotaHandler)

	log.Printf("Starting server on port %s...", cfg.ServerPort)
	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
