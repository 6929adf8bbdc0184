// Command admin is the operations CLI: ban and unban users, confirm
// reports, and print dashboard counters without going through HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/zn4editz-pixel/z-app-sub003/internal/config"
	"github.com/zn4editz-pixel/z-app-sub003/internal/moderation"
	"github.com/zn4editz-pixel/z-app-sub003/internal/storage"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, ban flags will not be touched")
		rdb = nil
	}

	store := storage.NewService(db, rdb)
	mod := moderation.New(store, nil)

	if len(os.Args) < 2 {
		usage()
	}

	switch os.Args[1] {
	case "ban":
		if len(os.Args) != 3 {
			usage()
		}
		userID := os.Args[2]
		user, err := store.GetUserByID(userID)
		if err != nil {
			log.Fatal().Err(err).Msg("user lookup failed")
		}
		// Force the reputation below the threshold so the standard
		// escalation path applies.
		user.ReputationScore = 0
		if err := store.UpdateUser(user); err != nil {
			log.Fatal().Err(err).Msg("failed to update user")
		}
		if err := mod.CheckForBan(userID); err != nil {
			log.Fatal().Err(err).Msg("ban failed")
		}
		fmt.Printf("user %s has been banned\n", userID)

	case "unban":
		if len(os.Args) != 3 {
			usage()
		}
		userID := os.Args[2]
		if err := mod.Unban(userID); err != nil {
			log.Fatal().Err(err).Msg("unban failed")
		}
		fmt.Printf("user %s has been unbanned\n", userID)

	case "confirm-report":
		if len(os.Args) != 3 {
			usage()
		}
		reportID, err := strconv.Atoi(os.Args[2])
		if err != nil {
			log.Fatal().Msg("report id must be an integer")
		}
		if err := mod.ConfirmReport(uint(reportID)); err != nil {
			log.Fatal().Err(err).Msg("confirm failed")
		}
		fmt.Printf("report %d confirmed\n", reportID)

	case "stats":
		users, err := store.CountUsers()
		if err != nil {
			log.Fatal().Err(err).Msg("stats query failed")
		}
		sessions, _ := store.CountSessionRecords()
		active, _ := store.CountActiveSessionRecords()
		fmt.Printf("users:           %d\n", users)
		fmt.Printf("sessions total:  %d\n", sessions)
		fmt.Printf("sessions active: %d\n", active)
		if rdb != nil {
			if waiting, err := store.CountWaiting(); err == nil {
				fmt.Printf("waiting now:     %d\n", waiting)
			}
		}

	default:
		usage()
	}
}

func usage() {
	fmt.Println("Usage: admin <ban|unban|confirm-report|stats> [args]")
	fmt.Println("  ban <user_id>")
	fmt.Println("  unban <user_id>")
	fmt.Println("  confirm-report <report_id>")
	fmt.Println("  stats")
	os.Exit(1)
}
