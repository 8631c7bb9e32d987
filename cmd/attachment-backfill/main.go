// Command attachment-backfill copies every attachment stored on local disk
// into GridFS and rewrites the task records to point at the new blobs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"project-tracker/config"
	"project-tracker/db"
	"project-tracker/logging"
	"project-tracker/repositories"
	"project-tracker/services"
	"project-tracker/storage"
)

func main() {
	var (
		envFile    string
		dryRun     bool
		keepSource bool
	)
	flag.StringVar(&envFile, "env", ".env", "environment file")
	flag.BoolVar(&dryRun, "dry-run", false, "report what would be migrated without writing")
	flag.BoolVar(&keepSource, "keep-source", false, "leave the disk files in place after copying")
	flag.Parse()

	cfg, err := config.Load(envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogFile, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := db.Connect(ctx, cfg.MongoURI)
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECT_FAILED, Description: MongoDB connection failed: %v", err)
	}
	defer client.Disconnect(context.Background())
	database := client.Database(cfg.MongoDBName)

	from, err := storage.NewLocalStore(cfg.UploadsDir)
	if err != nil {
		logging.Logger.Fatalf("Event ID: STORAGE_INIT_FAILED, Description: %v", err)
	}
	to, err := storage.NewGridFSStore(database, cfg.GridFSBucket)
	if err != nil {
		logging.Logger.Fatalf("Event ID: STORAGE_INIT_FAILED, Description: %v", err)
	}

	tasks := repositories.NewTaskRepository(database.Collection(db.TasksCollection))
	res, err := services.NewBackfillService(tasks, from, to).Run(ctx, dryRun, keepSource)
	logging.Logger.Infof("Event ID: BACKFILL_FINISHED, Description: tasks=%d migrated=%d missing=%d failed=%d dryRun=%t",
		res.Tasks, res.Migrated, res.Missing, res.Failed, dryRun)
	if err != nil {
		logging.Logger.Fatalf("Event ID: BACKFILL_FAILED, Description: %v", err)
	}
	if res.Failed > 0 {
		os.Exit(2)
	}
}
