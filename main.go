package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"

	"quickchat/config"
	"quickchat/database"
	"quickchat/handlers"
	"quickchat/middleware"
	"quickchat/service"
	"quickchat/websocket"
)

func main() {
	config.Load()

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.CreateTables(db); err != nil {
		log.Fatalf("Failed to create tables: %v", err)
	}

	if err := os.MkdirAll(config.Cfg.UploadDir, 0755); err != nil {
		log.Fatalf("Failed to create upload directory: %v", err)
	}

	hub := websocket.NewHub()
	go hub.Run()

	authz := service.NewAuthorizer(db)
	friendSvc := service.NewFriendService(db, hub)
	messageSvc := service.NewMessageService(db, authz, hub)
	convSvc := service.NewConversationService(db)
	hub.Bind(db, messageSvc)

	authHandler := handlers.NewAuth(db)
	userHandler := handlers.NewUsers(db)
	friendHandler := handlers.NewFriends(friendSvc)
	messageHandler := handlers.NewMessages(messageSvc, convSvc)
	fileHandler := handlers.NewFiles(messageSvc)

	r := gin.Default()

	r.Use(middleware.CORSMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	auth := r.Group("/api/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", middleware.AuthMiddleware(), authHandler.RefreshToken)
	}

	users := r.Group("/api/users")
	users.Use(middleware.AuthMiddleware())
	{
		users.GET("/me", userHandler.Me)
		users.PUT("/me", userHandler.UpdateMe)
		users.PUT("/me/privacy", userHandler.UpdatePrivacy)
		users.GET("/search", userHandler.Search)
	}

	friends := r.Group("/api/friends")
	friends.Use(middleware.AuthMiddleware())
	{
		friends.POST("/send-request/:userId", friendHandler.SendRequest)
		friends.POST("/accept-request/:requestId", friendHandler.AcceptRequest)
		friends.POST("/reject-request/:requestId", friendHandler.RejectRequest)
		friends.DELETE("/cancel-request/:userId", friendHandler.CancelRequest)
		friends.DELETE("/remove/:friendId", friendHandler.RemoveFriend)
		friends.POST("/block/:userId", friendHandler.Block)
		friends.POST("/unblock/:userId", friendHandler.Unblock)
		friends.GET("/blocked", friendHandler.ListBlocked)
		friends.GET("/requests", friendHandler.ListRequests)
		friends.GET("/requests/sent", friendHandler.ListSentRequests)
		friends.GET("/friends", friendHandler.ListFriends)
	}

	messages := r.Group("/api/messages")
	messages.Use(middleware.AuthMiddleware())
	{
		messages.POST("/send", messageHandler.Send)
		messages.GET("/chat/:userId", messageHandler.Chat)
		messages.GET("/conversations", messageHandler.Conversations)
		messages.PUT("/read", messageHandler.MarkRead)
		messages.POST("/send-file", fileHandler.SendFile)
	}

	r.GET("/files/:filename", fileHandler.ServeFile)

	r.GET("/ws", hub.HandleWebSocket)

	log.Printf("Server starting on %s", config.Cfg.ServerAddr)
	if err := r.Run(config.Cfg.ServerAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
