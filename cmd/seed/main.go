// cmd/seed/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"punchclock_backend/internal/config"
	"punchclock_backend/internal/directory"
	"punchclock_backend/internal/models"
	"punchclock_backend/internal/registry"
	"punchclock_backend/internal/storage"
	"punchclock_backend/internal/utils"
)

func main() {
	email := flag.String("email", "admin@example.com", "administrator email")
	name := flag.String("name", "Administrator", "administrator full name")
	password := flag.String("password", "", "administrator password (required)")
	withTOTP := flag.Bool("totp", false, "enroll TOTP for the administrator")
	deviceID := flag.String("device", "", "also register a physical device with this id")
	deviceLabel := flag.String("label", "", "label for the registered device")
	deactivate := flag.String("deactivate", "", "disable the device with this id and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	db, err := storage.Open(cfg)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	ctx := context.Background()

	if *deactivate != "" {
		if err := registry.New(db).SetActive(ctx, *deactivate, false); err != nil {
			log.Fatalf("failed to deactivate device: %v", err)
		}
		fmt.Println("Device deactivated:", *deactivate)
		return
	}

	if err := utils.ValidatePasswordStrong(*password); err != nil {
		log.Fatalf("password: %v", err)
	}

	_, err = directory.New(db).FindByEmail(ctx, *email)
	switch {
	case err == nil:
		fmt.Println("Admin already exists:", strings.ToLower(strings.TrimSpace(*email)))
	case errors.Is(err, directory.ErrEmployeeNotFound):
		hash, err := utils.HashPassword(*password)
		if err != nil {
			log.Fatalf("failed to hash password: %v", err)
		}
		admin := models.Employee{
			Role:         models.RoleOwner,
			Status:       models.StatusActive,
			FullName:     strings.TrimSpace(*name),
			Email:        strings.ToLower(strings.TrimSpace(*email)),
			PasswordHash: hash,
		}
		if *withTOTP {
			secret, url, err := utils.GenerateTOTPSecret(admin.Email)
			if err != nil {
				log.Fatalf("totp: %v", err)
			}
			admin.TOTPSecret = secret
			admin.TOTPEnabled = true
			fmt.Println("TOTP enrollment URL:", url)
		}
		if err := db.WithContext(ctx).Create(&admin).Error; err != nil {
			log.Fatalf("failed to insert admin: %v", err)
		}
		fmt.Printf("Admin created: id=%d email=%s\n", admin.ID, admin.Email)
	default:
		log.Fatalf("failed to query employees: %v", err)
	}

	if *deviceID == "" {
		return
	}
	dev, err := registry.New(db).Register(ctx, *deviceID, *deviceLabel)
	if errors.Is(err, registry.ErrDeviceAlreadyExists) {
		fmt.Println("Device already exists:", *deviceID)
		os.Exit(0)
	}
	if err != nil {
		log.Fatalf("failed to register device: %v", err)
	}
	fmt.Println("Device registered:", dev.ID)
	fmt.Println("  Secret:", dev.Secret, "(load it onto the display, it is not shown again)")
}
