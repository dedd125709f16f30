package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/sudo-init-do/skillflow/internal/config"
	"github.com/sudo-init-do/skillflow/internal/middleware"
)

func main() {
	account := flag.String("account", "", "Principal the token is issued for")
	role := flag.String("role", "", "Role claim: admin, operator or empty")
	ttl := flag.Duration("ttl", 24*time.Hour, "Token lifetime")
	flag.Parse()

	if *account == "" {
		log.Fatalf("usage: go run ./cmd/adminutil/issue_token -account SP2... [-role admin] [-ttl 1h]")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatalf("JWT_SECRET is not set")
	}

	token, err := middleware.IssueToken([]byte(cfg.JWTSecret), *account, *role, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	if *role == "admin" && !contains(cfg.Admins(), *account) {
		log.Printf("warning: %s is not in ADMIN_ACCOUNTS; admin routes will still reject it", *account)
	}
	fmt.Println(token)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
