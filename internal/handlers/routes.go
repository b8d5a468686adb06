package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Videos        VideoStore
	Comments      CommentStore
	Likes         LikeToggler
	Subscriptions SubscriptionToggler
	Playlists     PlaylistStore
	History       HistoryStore
	Views         Views
	Uploads       Uploader
	Prober        Prober
	Cleanup       Cleaner

	Logger        *slog.Logger
	LoginLimiter  middleware.RateLimiter
	UploadTempDir string
	NowFunc       func() time.Time
}

// NewRouter wires every endpoint under /api/v1 behind the shared middleware
// stack. Read endpoints take an optional principal to widen visibility; write
// endpoints require one.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	users := UserHandler{
		Users:    deps.Users,
		Sessions: deps.Sessions,
		Views:    deps.Views,
		Uploads:  deps.Uploads,
		Cleanup:  deps.Cleanup,
		TempDir:  deps.UploadTempDir,
		NowFunc:  deps.NowFunc,
	}
	videos := VideoHandler{
		Videos:  deps.Videos,
		Views:   deps.Views,
		History: deps.History,
		Uploads: deps.Uploads,
		Prober:  deps.Prober,
		Cleanup: deps.Cleanup,
		TempDir: deps.UploadTempDir,
		NowFunc: deps.NowFunc,
	}
	comments := CommentHandler{Comments: deps.Comments, Videos: deps.Videos, Views: deps.Views, NowFunc: deps.NowFunc}
	likes := LikeHandler{Likes: deps.Likes, Views: deps.Views}
	subscriptions := SubscriptionHandler{Subscriptions: deps.Subscriptions, Views: deps.Views}
	playlists := PlaylistHandler{Playlists: deps.Playlists, Videos: deps.Videos, Views: deps.Views, NowFunc: deps.NowFunc}
	dashboard := DashboardHandler{Views: deps.Views}
	health := HealthHandler{}

	requireAuth := RequireAuth(deps.Sessions)
	optionalAuth := OptionalAuth(deps.Sessions)

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))

	r.Get("/healthz", health.Handle)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if deps.LoginLimiter != nil {
					r.Use(middleware.Throttle(deps.LoginLimiter))
				}
				r.Post("/register", users.Register)
				r.Post("/login", users.Login)
			})
			r.Get("/refresh-token", users.RefreshToken)

			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/user-channel/{username}", users.UserChannel)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/logout", users.Logout)
				r.Post("/change-password", users.ChangePassword)
				r.Get("/current-user", users.CurrentUser)
				r.Patch("/update-account", users.UpdateAccount)
				r.Patch("/update-avatar", users.UpdateAvatar)
				r.Patch("/update-coverImg", users.UpdateCoverImage)
				r.Get("/watch-history", users.WatchHistory)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/", videos.Feed)
				r.Get("/{videoId}", videos.Get)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", videos.Publish)
				r.Patch("/{videoId}", videos.Update)
				r.Delete("/{videoId}", videos.Delete)
				r.Patch("/toggle/publish/{videoId}", videos.TogglePublish)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/{videoId}", comments.List)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/{videoId}", comments.Add)
				r.Patch("/c/{commentId}", comments.Update)
				r.Delete("/c/{commentId}", comments.Delete)
			})
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/toggle/v/{videoId}", likes.ToggleVideo)
			r.Post("/toggle/c/{commentId}", likes.ToggleComment)
			r.Post("/toggle/t/{tweetId}", likes.ToggleTweet)
			r.Get("/videos", likes.LikedVideos)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Get("/c/{channelId}", subscriptions.Subscribers)
			r.Get("/u/{subscriberId}", subscriptions.SubscribedChannels)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/c/{channelId}", subscriptions.Toggle)
			})
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/{playlistId}", playlists.Get)
			r.Get("/user/{userId}", playlists.ByUser)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/", playlists.Mine)
				r.Post("/", playlists.Create)
				r.Patch("/{playlistId}", playlists.Update)
				r.Delete("/{playlistId}", playlists.Delete)
				r.Patch("/add/{videoId}/{playlistId}", playlists.AddVideo)
				r.Patch("/remove/{videoId}/{playlistId}", playlists.RemoveVideo)
			})
		})

		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/stats/{channelId}", dashboard.Stats)
			r.Get("/videos/{channelId}", dashboard.Videos)
		})
	})

	return r
}
