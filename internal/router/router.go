// Package router 组装开发后端的 Gin 引擎与全部路由。
package router

import (
	"net/http"
	"time"

	"quickplan-go/internal/backend"
	"quickplan-go/internal/handler"
	"quickplan-go/internal/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps 是路由需要的业务服务
type Deps struct {
	Accounts      backend.AccountService
	Schedules     backend.ScheduleService
	Conversations backend.ConversationService
	// Registry 为 nil 时不暴露 /metrics
	Registry *prometheus.Registry
	// RequestLog 为 true 时记录每个请求的请求体与响应体
	RequestLog bool
	// CORSOrigins 允许跨域访问的来源，为空时不启用 CORS
	CORSOrigins []string
}

// New 创建一个不带默认中间件的引擎并注册全部路由。
func New(deps Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     deps.CORSOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if deps.RequestLog {
		r.Use(middleware.RequestLogger())
	}
	if deps.Registry != nil {
		r.Use(middleware.NewHTTPMetrics(deps.Registry).Middleware())
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	SetupAuthRouter(r, handler.NewAuthHandler(deps.Accounts), handler.NewUserHandler(), middleware.AuthMiddleware(deps.Accounts))
	SetupScheduleRouter(r, handler.NewScheduleHandler(deps.Schedules))
	SetupConversationRouter(r, handler.NewConversationHandler(deps.Conversations), handler.NewChatHandler(deps.Conversations))
	return r
}

// SetupAuthRouter 注册认证与用户资料路由，登出和资料需要 Bearer token
func SetupAuthRouter(r *gin.Engine, authHandler *handler.AuthHandler, userHandler *handler.UserHandler, authed gin.HandlerFunc) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/phone/send-code", authHandler.SendCode)
		auth.POST("/phone/register", authHandler.PhoneRegister)
		auth.POST("/email/register", authHandler.EmailRegister)
		auth.POST("/phone/login", authHandler.PhoneLogin)
		auth.POST("/email/login", authHandler.EmailLogin)
		auth.POST("/wechat/login", authHandler.WechatLogin)
		auth.POST("/qq/login", authHandler.QQLogin)
		auth.POST("/refresh-token", authHandler.RefreshToken)
		auth.POST("/logout", authed, authHandler.Logout)
	}
	r.GET("/api/user/info", authed, userHandler.Info)
}

func SetupScheduleRouter(r *gin.Engine, scheduleHandler *handler.ScheduleHandler) {
	schedule := r.Group("/api/schedule")
	{
		schedule.GET("/list/:userId", scheduleHandler.List)
		schedule.POST("/create", scheduleHandler.Create)
		schedule.PUT("/update", scheduleHandler.Update)
		schedule.DELETE("/delete/:id", scheduleHandler.Delete)
		schedule.GET("/date", scheduleHandler.ByDate)
		schedule.GET("/range", scheduleHandler.ByDateRange)
		schedule.GET("/detail/:id", scheduleHandler.Detail)
	}
}

func SetupConversationRouter(r *gin.Engine, conversationHandler *handler.ConversationHandler, chatHandler *handler.ChatHandler) {
	conversation := r.Group("/api/conversation")
	{
		conversation.GET("/list/:userId", conversationHandler.List)
		conversation.GET("/messages/:id", conversationHandler.Messages)
		conversation.DELETE("/delete/:id", conversationHandler.Delete)
	}
	r.POST("/api/ai/chat/new", chatHandler.New)
	r.POST("/api/ai/chat", chatHandler.Chat)
}
