package main

import (
	"context"
	"log"
	"os"

	"backend/config"
	"backend/controllers"
	"backend/routes"
	"backend/services"
	"backend/utils"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

func main() {
	config.LoadEnv()
	logger := config.NewLogger()
	defer logger.Sync()

	db := config.InitDB()

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		log.Fatalf("AWS config load failed: %v", err)
	}

	users := services.NewGormUserStore(db)
	authSvc := services.NewAuthService(users)
	alertLog := services.NewAlertLogService(db)
	hub := services.NewRealtimeHub()

	detector := services.NewRekognitionDetector(awsCfg, os.Getenv("FIRE_MODEL_ARN"), logger)
	notifier := services.NewNotifier(authSvc, utils.NewSESMailer(awsCfg), services.NewSNSSMSSender(awsCfg), logger)
	snapshots := services.NewSnapshotService(os.Getenv("SNAPSHOT_DIR"), awsCfg, logger)
	pipeline := services.NewPipelineService(detector, alertLog, snapshots, notifier, hub, logger)

	r := routes.SetupRouter(
		controllers.NewAuthController(authSvc),
		controllers.NewMonitorController(pipeline),
		controllers.NewAlertController(alertLog),
		controllers.NewRealtimeController(hub),
	)
	r.Run(":8080")
}
