// Command seed fills a development deployment with demo data.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"geosm/internal/bootstrap"
	"geosm/internal/config"
	"geosm/internal/logger"
	"geosm/internal/seed"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	defaults := seed.DefaultOptions()
	numUsers := flag.Int("users", defaults.NumUsers, "Number of users to create")
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	comments := flag.Int("comments", defaults.CommentsPerPost, "Comments per post")
	votes := flag.Int("votes", defaults.VotesPerPost, "Votes per post")
	lat := flag.Float64("lat", defaults.Center.Latitude, "Latitude posts are scattered around")
	long := flag.Float64("long", defaults.Center.Longitude, "Longitude posts are scattered around")
	spread := flag.Float64("spread", defaults.SpreadMeters, "Scatter radius in meters, 0 for posts without location")
	randSeed := flag.Int64("seed", defaults.Seed, "Faker seed")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.IsProduction() {
		return fmt.Errorf("refusing to seed a production deployment")
	}
	if err := logger.Init(cfg.Env); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()
	lg := logger.Get()

	ctx := context.Background()
	rt, err := bootstrap.InitRuntime(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	opts := seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		CommentsPerPost: *comments,
		VotesPerPost:    *votes,
		SpreadMeters:    *spread,
		Seed:            *randSeed,
	}
	opts.Center.Latitude, opts.Center.Longitude = *lat, *long

	sum, err := seed.NewSeeder(rt.TrustedIdentity(), rt.Content, opts, lg.Named("seed")).Run(ctx)
	if err != nil {
		return err
	}
	lg.Info("database seeded",
		zap.Int("users", sum.Users),
		zap.Int("posts", sum.Posts),
		zap.String("password", seed.DefaultPassword),
	)
	return nil
}
