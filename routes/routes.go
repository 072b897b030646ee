package routes

import (
	"brawlhub/controllers"
	"brawlhub/middleware"
	"brawlhub/services/connections"
	"brawlhub/services/directory"
	"brawlhub/services/events"
	"brawlhub/services/gameserver"
	"brawlhub/services/lobby"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// Deps bundles the lifetime-scoped services handlers depend on. Everything is
// constructed once at startup and passed by reference, never reached through
// globals.
type Deps struct {
	DB          *gorm.DB
	Store       directory.Store
	Bus         events.Publisher
	Registry    *connections.Registry
	Lobbies     *lobby.Service
	GameServers *gameserver.Service
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, deps Deps) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group("/")

	api.GET("/ping", controllers.Ping)

	api.POST("/user/create", controllers.SignUp(deps.DB))
	api.POST("/user/login", controllers.Login(deps.DB))

	// The websocket endpoint authenticates via query token since browsers
	// cannot set headers on the upgrade request.
	api.GET("/ws", controllers.HandleWebSocket(deps.DB, deps.Lobbies, deps.Registry))

	authenticated := api.Group("/")
	authenticated.Use(middleware.AuthRequired)
	{
		authenticated.POST("/user/logout", controllers.Logout(deps.DB, deps.Lobbies, deps.Registry))

		authenticated.GET("/friendlist/get", controllers.GetFriendList(deps.DB))
		authenticated.GET("/friend_request/get", controllers.GetFriendRequests(deps.DB))
		authenticated.POST("/friend_request/send", controllers.SendFriendRequest(deps.DB, deps.Bus))
		authenticated.POST("/friend_request/accept", controllers.AcceptFriendRequest(deps.DB, deps.Bus))
		authenticated.POST("/friend_request/decline", controllers.DeclineFriendRequest(deps.DB, deps.Bus))
		authenticated.POST("/friend/remove", controllers.RemoveFriend(deps.DB, deps.Bus))

		authenticated.POST("/lobby/create", controllers.CreateLobby(deps.Lobbies))
		authenticated.GET("/lobby/get", controllers.GetLobby(deps.Lobbies))
		authenticated.POST("/lobby/invite", controllers.InviteToLobby(deps.Lobbies))
		authenticated.POST("/lobby/accept", controllers.AcceptLobbyInvitation(deps.Lobbies))
		authenticated.POST("/lobby/decline", controllers.DeclineLobbyInvitation(deps.Lobbies))
		authenticated.POST("/lobby/leave", controllers.LeaveLobby(deps.Lobbies))
		authenticated.POST("/lobby/kick", controllers.KickMember(deps.Lobbies))
		authenticated.POST("/lobby/make_leader", controllers.MakeLeader(deps.Lobbies))

		authenticated.POST("/game_server/create", controllers.CreateGameServer(deps.GameServers))
		authenticated.POST("/game_server/drop", controllers.DropGameServer(deps.GameServers))

		authenticated.GET("/in_game/character_stats/get", controllers.GetCharacterStats(deps.Store))
		authenticated.POST("/in_game/character_stats/save", controllers.SaveCharacterStats(deps.Store))
		authenticated.POST("/in_game/character_stats/remove", controllers.RemoveCharacterStats(deps.Store))
	}
}
