package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"blogapi/internal/auth"
	"blogapi/internal/config"
	"blogapi/internal/db"
	apperrors "blogapi/internal/errors"
	"blogapi/internal/logger"
	"blogapi/internal/repository"
	"blogapi/internal/service"
	"blogapi/internal/validation"
)

type seedUser struct {
	Username string
	Email    string
	Password string
	Bio      string
	Location string
}

type seedPost struct {
	Author  string
	Title   string
	Content string
	Tags    string
}

var demoUsers = []seedUser{
	{Username: "alice", Email: "alice@example.com", Password: "pw1", Bio: "Writes about Go.", Location: "Lisbon"},
	{Username: "bob", Email: "bob@example.com", Password: "pw2", Bio: "Backend and coffee.", Location: "Berlin"},
}

var demoPosts = []seedPost{
	{Author: "alice", Title: "Hello", Content: "First post", Tags: "intro"},
	{Author: "alice", Title: "Context everywhere", Content: "Pass ctx as the first argument.", Tags: "go,style"},
	{Author: "bob", Title: "Caching refresh tokens", Content: "Redis keeps revocation cheap.", Tags: "redis,auth"},
}

// app holds what the seed commands share.
type app struct {
	log   *slog.Logger
	users repository.UserRepository
	auth  service.AuthService
	posts service.PostService
}

var (
	resetDB bool
	current *app
)

var rootCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seeds the blog database with demo users and posts",
	Long: `Seeds the blog database with demo users and posts. Usage:

	seed          # users then posts
	seed users
	seed posts
`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(resetDB)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := current.seedUsers(cmd.Context()); err != nil {
			return err
		}
		return current.seedPosts(cmd.Context())
	},
}

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Register the demo users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.seedUsers(cmd.Context())
	},
}

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Create the demo posts for already registered users",
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.seedPosts(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&resetDB, "reset", false, "drop and recreate all tables first")
	rootCmd.AddCommand(usersCmd, postsCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
}

func newApp(reset bool) (*app, error) {
	cfg := config.Load()
	log := logger.New(os.Stdout, cfg.IsDev(), cfg.LogLevel)

	gormDB, err := db.NewMySQL(cfg.MySQLDSN, log)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(gormDB, reset || cfg.ResetDB); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	userRepo := repository.NewUserRepository(gormDB)
	validator := validation.New()
	media := service.NewMedia(nil, cfg.Storage.MaxUploadBytes, log)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	return &app{
		log:   log,
		users: userRepo,
		auth:  service.NewAuthService(userRepo, jwtService, nil, media, validator, nil, log),
		posts: service.NewPostService(repository.NewPostRepository(gormDB), media, validator, nil, log),
	}, nil
}

func (a *app) seedUsers(ctx context.Context) error {
	created, skipped := 0, 0
	for _, u := range demoUsers {
		user, err := a.auth.Register(ctx, service.RegisterInput{
			Username: u.Username,
			Email:    u.Email,
			Password: u.Password,
			Bio:      u.Bio,
			Location: u.Location,
		})
		var verr *apperrors.ValidationError
		if errors.As(err, &verr) {
			a.log.Info("user rejected, skipping", slog.String("username", u.Username), slog.Any("fields", verr.Fields))
			skipped++
			continue
		}
		if err != nil {
			return fmt.Errorf("register %s: %w", u.Username, err)
		}
		a.log.Info("user created", slog.String("username", user.Username), slog.Uint64("id", uint64(user.ID)))
		created++
	}
	a.log.Info("users seeded", slog.Int("created", created), slog.Int("skipped", skipped))
	return nil
}

func (a *app) seedPosts(ctx context.Context) error {
	created := 0
	for _, p := range demoPosts {
		author, err := a.users.FindByUsername(ctx, p.Author)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			a.log.Warn("author not registered, run `seed users` first", slog.String("username", p.Author))
			continue
		}
		if err != nil {
			return fmt.Errorf("find %s: %w", p.Author, err)
		}

		tags := p.Tags
		post, err := a.posts.Create(ctx, author.ID, service.PostInput{
			Title:   p.Title,
			Content: p.Content,
			Tags:    &tags,
		})
		if err != nil {
			return fmt.Errorf("create post %q: %w", p.Title, err)
		}
		a.log.Info("post created", slog.Uint64("id", uint64(post.ID)), slog.String("author", p.Author))
		created++
	}
	a.log.Info("posts seeded", slog.Int("created", created))
	return nil
}
