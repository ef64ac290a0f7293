package main

import (
	"github.com/flowvahq/rewards/config"
	"github.com/flowvahq/rewards/models"
	"github.com/flowvahq/rewards/routes"
	"github.com/flowvahq/rewards/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	// A broken reward catalog is a boot failure, not a runtime surprise.
	catalog, err := config.LoadCatalog(cfg.RewardCatalogPath)
	if err != nil {
		utils.Sugar.Fatalf("reward catalog: %v", err)
	}

	db := config.InitDatabase(
		&models.User{},
		&models.PointEvent{},
		&models.ReferralLink{},
		&models.DailyClaim{},
		&models.ClaimedReward{},
		&models.DailyUsage{},
	)

	r := routes.SetupRouter(db, catalog)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
