package wire

import (
	"OurSpace/internal/api"
	"OurSpace/internal/api/config"
	"OurSpace/internal/api/handler"
	"OurSpace/internal/job"
	"OurSpace/internal/pkg/cron"
	"OurSpace/internal/pkg/kafka"
	"OurSpace/internal/pkg/minio"
	pkgmongo "OurSpace/internal/pkg/mongo"
	"OurSpace/internal/realtime"
	"OurSpace/internal/repository"
	"OurSpace/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	Router       *gin.Engine
	DB           *gorm.DB
	Registry     *realtime.Registry
	CronMgr      *cron.Manager
	KafkaManager *kafka.ConsumerManager // 未启用 CDC 时为 nil
}

func BuildApplication(db *gorm.DB, mongoDB *mongo.Database, cfg *config.Config) (*ApplicationContainer, error) {
	userRepo := repository.NewUserRepo(db)
	listingRepo := repository.NewListingRepo(db)
	orphanRepo := repository.NewMediaOrphanRepo()
	messageRepo := pkgmongo.NewMessageRepo(mongoDB)
	mediaStore := minio.NewMediaStore(cfg.MinIO.ExternalEndpoint)

	registry := realtime.NewRegistry(cfg.WebSocket)
	router := realtime.NewRouter(registry)
	presence := realtime.NewPresence(registry)

	imService := service.NewIMService(cfg.IM, userRepo, listingRepo, orphanRepo, messageRepo, mediaStore, router)
	dispatcher := realtime.NewDispatcher(registry, router, presence, imService)

	handlers := &api.HandlersGroup{
		IMHandler: handler.NewIMHandler(imService, presence),
		WSHandler: handler.NewWsHandler(dispatcher, cfg.WebSocket),
	}
	engine := api.SetupRouter(handlers, cfg.Server, cfg.Logstash)

	sweepJob := job.NewMediaSweepJob(orphanRepo, mediaStore, cfg.MediaSweep.MaxAge)
	cronMgr := cron.NewCronManager(sweepJob, cfg.MediaSweep.Spec)

	app := &ApplicationContainer{
		Router:   engine,
		DB:       db,
		Registry: registry,
		CronMgr:  cronMgr,
	}

	if cfg.KafkaDirectory.Enable {
		kafkaMgr, err := kafka.NewConsumerManager(cfg, userRepo, listingRepo)
		if err != nil {
			return nil, err
		}
		app.KafkaManager = kafkaMgr
	}

	return app, nil
}
