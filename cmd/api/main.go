package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"Tweeter/internal/config"
	"Tweeter/internal/logging"
	"Tweeter/internal/pkg"
	"Tweeter/internal/repository/mysql"
	"Tweeter/internal/repository/redis"
	"Tweeter/internal/router"
	"Tweeter/internal/service"
	"Tweeter/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	flush, err := logging.Init(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer flush()
	log := logging.AppLogger

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 连接数据库
	db, err := mysql.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	defer mysql.Close(db)
	if err = mysql.Migrate(db); err != nil {
		log.Fatal("migrate failed", zap.Error(err))
	}

	// 连接redis
	rdb, err := redis.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	images, err := storage.NewMinIOClient(ctx, cfg.MinIO)
	if err != nil {
		log.Fatal("failed to init minio", zap.Error(err))
	}

	mailer := pkg.NewSMTPMailer(pkg.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	tokens := pkg.NewTokenManager(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTTL, cfg.JWT.RefreshTTL)

	userRepo := mysql.NewUserRepository(db)
	postRepo := mysql.NewPostRepository(db)
	likeRepo := mysql.NewPostLikeRepository(db)
	followRepo := mysql.NewFollowRepository(db)
	sessions := redis.NewSessionRepository(rdb)
	sessions.TTL = cfg.JWT.AccessTTL
	codes := redis.NewEmailRepository(rdb)

	followSvc := service.NewFollowService(followRepo, userRepo)
	likeSvc := service.NewPostLikeService(likeRepo, redis.NewLikeCacheRepository(rdb), redis.NewDistLock(rdb))

	// outbox 投递和计数对账
	sender := service.Sender(service.LogSender)
	if cfg.Kafka.Enabled() {
		producer := pkg.NewKafkaProducer(pkg.KafkaConfig{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
		defer producer.Close()
		sender = service.KafkaSender(producer)
	}
	relayer := service.NewOutboxRelayer(mysql.NewOutboxRepository(db), sender, cfg.Worker.OutboxBatch, cfg.Worker.OutboxInterval)
	reconciler := service.NewFollowCountReconciler(mysql.NewFollowCountReconcilerRepo(db), cfg.Worker.ReconcileBatch, cfg.Worker.ReconcileInterval)
	go relayer.Run(ctx)
	go reconciler.Run(ctx)

	gin.SetMode(cfg.HTTP.Mode)
	r := router.InitRouter(router.Deps{
		Tokens:   tokens,
		Sessions: sessions,
		Users:    service.NewUserService(userRepo, sessions, tokens, images),
		Verify:   service.NewVerifyService(userRepo, codes, mailer, codes.TTL),
		Follow:   followSvc,
		Posts:    service.NewPostService(postRepo, userRepo),
		Likes:    likeSvc,
		Feed:     service.NewFeedService(postRepo, userRepo, likeSvc, cfg.Feed.HomeSuggestions, cfg.Feed.FollowingSuggestions),
		Search:   service.NewSearchService(postRepo),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("server shutdown failed", zap.Error(err))
	}
}
