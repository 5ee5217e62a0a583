package router

import (
	"github.com/gin-gonic/gin"

	"Tweeter/internal/handler"
	"Tweeter/internal/middleware"
	"Tweeter/internal/pkg"
	"Tweeter/internal/service"
)

// Deps 路由需要的服务
type Deps struct {
	Tokens   *pkg.TokenManager
	Sessions service.SessionStore
	Users    *service.UserService
	Verify   *service.VerifyService
	Follow   *service.FollowService
	Posts    *service.PostService
	Likes    *service.PostLikeService
	Feed     *service.FeedService
	Search   *service.SearchService
}

func InitRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(), middleware.Recovery())

	auth := middleware.Auth(d.Tokens, d.Sessions)
	optional := middleware.OptionalAuth(d.Tokens, d.Sessions)

	user := handler.NewUserHandler(d.Users, d.Follow)
	email := handler.NewEmailHandler(d.Verify)
	post := handler.NewPostHandler(d.Posts, d.Likes)
	like := handler.NewPostLikeHandler(d.Likes)
	follow := handler.NewFollowHandler(d.Follow)
	feed := handler.NewFeedHandler(d.Feed, d.Search)

	// 用户相关接口
	userGroup := r.Group("/api/user")
	{
		userGroup.POST("/register", user.Register)
		userGroup.POST("/login", user.Login)
		userGroup.POST("/logout", auth, user.Logout)
		userGroup.GET("/profile", auth, user.Profile)
		userGroup.POST("/photo", auth, user.UpdatePhoto)
		userGroup.POST("/password", auth, user.ChangePassword)
		userGroup.POST("/verify/code", auth, email.SendCode)
		userGroup.POST("/verify", auth, email.VerifyCode)
	}

	// token相关接口
	tokenGroup := r.Group("/api/token")
	{
		tokenGroup.POST("/refresh", user.TokenRefresh)
	}

	usersGroup := r.Group("/api/users")
	{
		usersGroup.GET("/:id/followers", user.Followers)
		usersGroup.GET("/:id/following", user.Following)
	}

	feedGroup := r.Group("/api/feed")
	{
		feedGroup.GET("", optional, feed.Home)
		feedGroup.GET("/following", auth, feed.Following)
	}
	r.GET("/api/search", feed.Search)

	// 帖子相关接口
	postGroup := r.Group("/api/post")
	{
		postGroup.POST("", auth, post.CreatePost)
		postGroup.GET("/:id", optional, post.GetPost)
		postGroup.POST("/:id/like", auth, like.Toggle)
		postGroup.GET("/:id/likes", like.Likers)
	}

	// 用户关注相关接口
	followGroup := r.Group("/api")
	followGroup.Use(auth)
	{
		followGroup.POST("/follow/:id", follow.Follow)
		followGroup.POST("/unfollow/:id", follow.Unfollow)
		followGroup.GET("/follow/relation", follow.Relation)
		followGroup.GET("/follow/followings", follow.ListFollowings)
		followGroup.GET("/follow/followers", follow.ListFollowers)
	}

	return r
}
