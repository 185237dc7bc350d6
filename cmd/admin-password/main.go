package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/angelmondragon/herbstore-backend/pkg/config"
	"github.com/angelmondragon/herbstore-backend/pkg/logger"
	"github.com/angelmondragon/herbstore-backend/pkg/security"
)

// admin-password prints an argon2id hash for HERBSTORE_ADMIN_PASSWORD_HASH.
// The password is read from the first line of stdin.
func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "admin-password", Output: os.Stderr})

	_ = godotenv.Load()

	verify := flag.String("verify", "", "existing hash to check the password against instead of hashing")
	flag.Parse()

	var pwCfg config.PasswordConfig
	if err := envconfig.Process(config.EnvPrefix, &pwCfg); err != nil {
		logg.Error(ctx, "failed to load password config", err)
		os.Exit(1)
	}

	password, err := readPassword()
	if err != nil {
		logg.Error(ctx, "failed to read password", err)
		os.Exit(1)
	}

	hasher := security.NewHasher(pwCfg)
	if *verify != "" {
		ok, err := hasher.Verify(password, *verify)
		if err != nil {
			logg.Error(ctx, "failed to verify password", err)
			os.Exit(1)
		}
		if !ok {
			fmt.Println("mismatch")
			os.Exit(2)
		}
		fmt.Println("match")
		if hasher.NeedsRehash(*verify) {
			logg.Warn(ctx, "hash uses weaker costs than the current config; consider rehashing")
		}
		return
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		logg.Error(ctx, "failed to hash password", err)
		os.Exit(1)
	}
	fmt.Println(hash)
}

func readPassword() (string, error) {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	return password, nil
}
