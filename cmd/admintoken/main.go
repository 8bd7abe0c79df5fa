// Command admintoken mints a back-office access token signed with the
// server's JWT_SIGNING_KEY.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "ecommerce/internal/jwt_token"
	"ecommerce/internal/platform/config"
	"ecommerce/pkg/platform/middleware/admin"
	strs "ecommerce/pkg/platform/strings"
)

func main() {
	subject := flag.String("subject", "back-office", "token subject")
	roles := flag.String("roles", admin.Role, "comma-separated roles")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	svc := jwttoken.NewJWTService(cfg.JWTSigningKey, jwttoken.Issuer, jwttoken.Audience)
	token, err := svc.GenerateAccessToken(*subject, strs.SplitList(*roles), *ttl)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(token)
}
