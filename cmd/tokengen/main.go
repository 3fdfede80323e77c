// Command tokengen issues a bearer token for a user, for local testing of the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/temcen/reelshelf/internal/config"
	"github.com/temcen/reelshelf/internal/services"
)

func main() {
	userFlag := flag.String("user", "", "user id (UUID)")
	tier := flag.String("tier", "free", "user tier: free or premium")
	flag.Parse()

	userID, err := uuid.Parse(*userFlag)
	if err != nil {
		logrus.Fatalf("Invalid -user %q: %v", *userFlag, err)
	}

	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	// Session bookkeeping is best effort; the token is valid without it
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Hot.URL})
	defer redisClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	token, err := services.NewAuthService(cfg, logger, redisClient).GenerateToken(ctx, userID, *tier)
	if err != nil {
		logrus.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Println(token)
}
