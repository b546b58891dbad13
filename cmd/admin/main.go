package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"orderchat/backend/internal/auth"
	"orderchat/backend/internal/config"
	"orderchat/backend/internal/models"
	"orderchat/backend/internal/storage"
)

const usage = `Usage: admin <command> [args]

Commands:
  seed-admin [email] [password]          create the admin account (defaults to ADMIN_EMAIL/ADMIN_PASSWORD)
  close-order <order_id> <COMPLETED|CANCELLED>
                                         finish an order and close its chat
  active-chats                           list chats that still accept messages`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.LoadForAdmin()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// Redis is only used to tell running servers about closed chats.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		defer rdb.Close()
	}
	storageSvc := storage.NewStorageService(db, rdb)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, storageSvc, cfg, os.Args[1:], os.Stdout); err != nil {
		cancel()
		log.Fatalf("Error: %v", err)
	}
}

var errUsage = errors.New("invalid arguments")

func run(ctx context.Context, s storage.Storage, cfg *config.Config, args []string, out io.Writer) error {
	switch args[0] {
	case "seed-admin":
		email, password := cfg.AdminEmail, cfg.AdminPassword
		if len(args) == 3 {
			email, password = args[1], args[2]
		}
		if email == "" || password == "" {
			fmt.Fprintln(out, "Usage: admin seed-admin [email] [password]")
			return errUsage
		}
		return seedAdmin(ctx, s, email, password, out)

	case "close-order":
		if len(args) != 3 {
			fmt.Fprintln(out, "Usage: admin close-order <order_id> <COMPLETED|CANCELLED>")
			return errUsage
		}
		return closeOrder(ctx, s, args[1], models.OrderStatus(strings.ToUpper(args[2])), out)

	case "active-chats":
		return activeChats(ctx, s, out)
	}

	fmt.Fprintln(out, usage)
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func seedAdmin(ctx context.Context, s storage.Storage, email, password string, out io.Writer) error {
	hash, err := auth.NewPasswordHasher().Hash(password)
	if err != nil {
		return err
	}
	created, err := s.EnsureAdmin(ctx, email, hash)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintf(out, "Admin %s has been created.\n", email)
	} else {
		fmt.Fprintf(out, "Admin %s already exists.\n", email)
	}
	return nil
}

func closeOrder(ctx context.Context, s storage.Storage, orderID string, status models.OrderStatus, out io.Writer) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: status must be COMPLETED or CANCELLED", errUsage)
	}

	order, chat, err := s.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Order %s is now %s.\n", order.ID, order.Status)
	if chat == nil {
		return nil
	}

	if err := s.PublishRoomClosed(ctx, chat.ID); err != nil {
		// The chat is closed in the database either way. Servers pick it up on the next send.
		log.Printf("WARNING: Could not notify servers that chat %s closed: %v", chat.ID, err)
		return nil
	}
	fmt.Fprintf(out, "Chat %s has been closed.\n", chat.ID)
	return nil
}

func activeChats(ctx context.Context, s storage.Storage, out io.Writer) error {
	chats, err := s.FindActiveRooms(ctx)
	if err != nil {
		return err
	}
	for _, c := range chats {
		fmt.Fprintf(out, "%s\torder=%s\tparticipants=%s\n", c.ID, c.OrderID, strings.Join(c.Participants, ","))
	}
	fmt.Fprintf(out, "%d active chat(s)\n", len(chats))
	return nil
}
