// Command apitoken issues a bearer token for the order API, signed with JWT_SECRET.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/example/order-orchestrator/internal/auth"
	"github.com/example/order-orchestrator/internal/config"
)

func main() {
	subject := flag.String("subject", "", "caller identity placed in the sub claim")
	role := flag.String("role", auth.RoleOperator, "role claim (operator or admin)")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if *subject == "" {
		log.Fatal("[apitoken] -subject is required")
	}
	if *role != auth.RoleOperator && *role != auth.RoleAdmin {
		log.Fatalf("[apitoken] unknown role %q", *role)
	}

	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Fatal("[apitoken] JWT_SECRET environment variable is required")
	}

	token, expiresAt, err := auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, *ttl).GenerateToken(*subject, *role)
	if err != nil {
		log.Fatalf("[apitoken] %v", err)
	}

	fmt.Fprintln(os.Stdout, token)
	fmt.Fprintf(os.Stderr, "expires at %s\n", expiresAt.Format(time.RFC3339))
}
