package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"project-tracker/config"
	"project-tracker/db"
	"project-tracker/handlers"
	"project-tracker/logging"
	"project-tracker/repositories"
	"project-tracker/services"
	"project-tracker/storage"
	"project-tracker/utils"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/mongo"
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogFile, cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	client, err := db.Connect(ctx, cfg.MongoURI)
	cancel()
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECT_FAILED, Description: MongoDB connection failed: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logging.Logger.Errorf("Event ID: DB_DISCONNECT_FAILED, Description: %v", err)
		}
	}()

	database := client.Database(cfg.MongoDBName)
	ctx, cancel = context.WithTimeout(context.Background(), 30*time.Second)
	err = db.EnsureIndexes(ctx, database)
	cancel()
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_INDEX_FAILED, Description: Failed to create indexes: %v", err)
	}

	store, err := openStore(cfg, database)
	if err != nil {
		logging.Logger.Fatalf("Event ID: STORAGE_INIT_FAILED, Description: %v", err)
	}

	blackList, err := utils.LoadBlackList(cfg.PasswordBlackList)
	if err != nil {
		logging.Logger.Fatalf("Event ID: BLACKLIST_LOAD_FAILED, Description: %v", err)
	}

	users := repositories.NewUserRepository(database.Collection(db.UsersCollection))
	projects := repositories.NewProjectRepository(database.Collection(db.ProjectsCollection))
	tasks := repositories.NewTaskRepository(database.Collection(db.TasksCollection))
	tokens := utils.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	router := handlers.NewRouter(handlers.Deps{
		Users:       services.NewUserService(users, tokens, blackList),
		Projects:    services.NewProjectService(projects, tasks, users, store),
		Tasks:       services.NewTaskService(tasks, projects, store),
		Attachments: services.NewAttachmentService(tasks, projects, store, cfg.MaxUploadBytes, cfg.AllowedMimeTypes),
		Reports:     services.NewReportService(projects, tasks, users),
		Views:       services.NewViewService(users, projects, tasks),
		Tokens:      tokens,
		Ping: func(ctx context.Context) error {
			return db.Ping(ctx, client)
		},
		CORSOrigins:    cfg.CORSOrigins,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Dev:            cfg.IsDevelopment(),
	})

	// Uploads and report downloads may take longer than a JSON request, so
	// only reading the headers is bounded tightly.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: cfg.HTTPTimeout,
		IdleTimeout:       4 * cfg.HTTPTimeout,
	}

	go func() {
		logging.Logger.Infof("Event ID: SERVER_STARTED, Description: Listening on %s with %s attachment storage", srv.Addr, store.Name())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Fatalf("Event ID: SERVER_FAILED, Description: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logging.Logger.Info("Event ID: SERVER_SHUTDOWN, Description: Shutting down")
	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_FAILED, Description: %v", err)
	}
}

// openStore builds the configured attachment backend behind a circuit breaker.
func openStore(cfg config.Config, database *mongo.Database) (*storage.BreakerStore, error) {
	var next storage.Store
	switch cfg.AttachmentBackend {
	case storage.BackendDisk:
		s, err := storage.NewLocalStore(cfg.UploadsDir)
		if err != nil {
			return nil, err
		}
		next = s
	case storage.BackendGridFS:
		s, err := storage.NewGridFSStore(database, cfg.GridFSBucket)
		if err != nil {
			return nil, err
		}
		next = s
	default:
		return nil, fmt.Errorf("unknown attachment backend %q", cfg.AttachmentBackend)
	}

	settings := storage.DefaultBreakerSettings("attachments-"+next.Name(), func(name string, from, to gobreaker.State) {
		logging.Logger.Warnf("Event ID: STORAGE_BREAKER_STATE, Description: Circuit breaker %s changed from %s to %s", name, from, to)
	})
	return storage.NewBreakerStore(next, settings), nil
}
