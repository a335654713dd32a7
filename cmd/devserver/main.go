// Package main 是开发后端的入口点，提供客户端调用的全部 HTTP 接口。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quickplan-go/internal/backend"
	"quickplan-go/internal/config"
	"quickplan-go/internal/model"
	"quickplan-go/internal/repository"
	"quickplan-go/internal/router"
	"quickplan-go/pkg/database"
	"quickplan-go/pkg/llm"
	"quickplan-go/pkg/log"
	"quickplan-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	envFile := flag.String("env", ".env", ".env 文件路径")
	flag.Parse()

	// .env 不存在时忽略
	if err := godotenv.Load(*envFile); err != nil {
		fmt.Printf("Warning: .env file not loaded: %v\n", err)
	}

	// 1. 初始化配置
	config.Init(*configPath)
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("日志记录器初始化成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. 初始化存储
	users, schedules, conversations := openStorage(cfg)
	blacklist := openBlacklist(ctx, cfg)

	// 4. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	accountService := backend.NewAccountService(users, jwtManager, blacklist, backend.AccountOptions{
		CodeTTL:      cfg.Server.CodeTTL,
		SendInterval: cfg.Server.SendCodeInterval,
		ExposeCode:   cfg.Server.Mode == gin.DebugMode,
	})
	scheduleService := backend.NewScheduleService(schedules)
	assistant := backend.NewAssistant(scheduleService)
	if cfg.LLM.BaseURL != "" {
		log.Infof("助手使用大模型 %s", cfg.LLM.Model)
		assistant.WithLLM(llm.NewClient(cfg.LLM))
	}
	conversationService := backend.NewConversationService(conversations, assistant)

	// 5. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	deps := router.Deps{
		Accounts:      accountService,
		Schedules:     scheduleService,
		Conversations: conversationService,
		RequestLog:    true,
		CORSOrigins:   cfg.Server.CORSOrigins,
	}
	if cfg.Server.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		deps.Registry = reg
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router.New(deps),
	}

	go func() {
		log.Infof("服务启动于 %s (storage=%s, blacklist=%s)", srv.Addr, cfg.Server.Storage, cfg.Server.Blacklist)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}

// openStorage 按 server.storage 选择内存或 MySQL 存储
func openStorage(cfg config.Config) (repository.UserRepository, repository.ScheduleStore, repository.ConversationRepository) {
	if cfg.Server.Storage != "mysql" {
		log.Info("使用内存存储，重启后数据丢失")
		return repository.NewMemoryUserRepository(), repository.NewMemoryScheduleStore(), repository.NewMemoryConversationRepository()
	}

	db, err := database.NewMySQL(cfg.Database.MySQL.DSN)
	if err != nil {
		log.Fatal("MySQL 初始化失败", err)
	}
	if err := db.AutoMigrate(&model.User{}, &model.ScheduleRecord{}, &model.ConversationRecord{}, &model.MessageRecord{}); err != nil {
		log.Fatal("数据表迁移失败", err)
	}
	return repository.NewUserRepository(db), repository.NewScheduleStore(db), repository.NewConversationRepository(db)
}

// openBlacklist 按 server.blacklist 选择 token 黑名单的实现
func openBlacklist(ctx context.Context, cfg config.Config) backend.TokenBlacklist {
	if cfg.Server.Blacklist != "redis" {
		return backend.NewMemoryBlacklist()
	}
	rdb, err := database.NewRedis(ctx, cfg.Database.Redis)
	if err != nil {
		log.Fatal("Redis 初始化失败", err)
	}
	return backend.NewRedisBlacklist(rdb)
}
