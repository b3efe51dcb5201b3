// Command tokenctl buys a token plan through the API and follows the
// purchase until it is approved, cancelled or expired.
//
//	tokenctl -plan vip -token $ACCESS_TOKEN
//	tokenctl -purchase 6f1c2b9e-... -token $ACCESS_TOKEN
//	tokenctl -plans
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/localmarket/tokens-backend/internal/auth"
	"github.com/localmarket/tokens-backend/internal/client"
	"github.com/localmarket/tokens-backend/internal/plans"
	"github.com/localmarket/tokens-backend/internal/poller"
	"github.com/localmarket/tokens-backend/internal/sysutil"
)

func main() {
	_ = godotenv.Load()

	var (
		baseURL   = flag.String("api", sysutil.FirstNonEmpty(os.Getenv("TOKENS_API_URL"), "http://localhost:8080/api/v1"), "API base URL")
		token     = flag.String("token", os.Getenv("TOKENS_ACCESS_TOKEN"), "bearer access token")
		as        = flag.String("as", "", "mint a local token for \"id:email\" with AUTH_JWT_SECRET")
		apiKey    = flag.String("apikey", os.Getenv("AUTH_API_KEY"), "project api key sent as apikey")
		planID    = flag.String("plan", "", "plan to buy")
		purchase  = flag.String("purchase", "", "follow an existing purchase instead of creating one")
		key       = flag.String("key", "", "idempotency key (default: random)")
		role      = flag.String("role", "profissional", "profile role, picks the destination on approval")
		functions = flag.Bool("functions", false, "use the function-style routes")
		listPlans = flag.Bool("plans", false, "list plans and exit")
		interval  = flag.Duration("interval", envDuration("POLL_INTERVAL", poller.DefaultInterval), "status poll interval")
		timeout   = flag.Duration("timeout", 30*time.Minute, "give up after this long")
		pretty    = flag.Bool("pretty", true, "human-readable logs")
	)
	flag.Parse()

	sysutil.SetupLogger(sysutil.FirstNonEmpty(os.Getenv("LOG_LEVEL"), "info"), *pretty)

	if *as != "" {
		tok, err := mint(*as)
		if err != nil {
			log.Fatal().Err(err).Msg("mint token")
		}
		*token = tok
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()
	ctx = log.Logger.WithContext(ctx)

	c := client.New(*baseURL, *token, 15*time.Second)
	c.APIKey = *apiKey
	if *functions {
		c.Paths = client.FunctionPaths
	}

	if *listPlans {
		ps, err := c.Plans(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("list plans")
		}
		for _, p := range ps {
			fmt.Printf("%-10s %-9s %4d tokens  %s  (R$ %s/token)\n", p.ID, p.Name, p.Tokens, plans.FormatBRL(p.Price), p.RateText)
		}
		return
	}

	if strings.TrimSpace(*token) == "" {
		log.Fatal().Msg("an access token is required (-token, TOKENS_ACCESS_TOKEN or -as)")
	}

	id := *purchase
	if id == "" {
		if *planID == "" {
			log.Fatal().Msg("use -plan to buy or -purchase to follow a purchase")
		}
		if *key == "" {
			*key = uuid.NewString()
		}
		res, err := c.CreatePurchase(ctx, *planID, *key)
		switch {
		case errors.Is(err, client.ErrIncompleteCharge):
			log.Fatal().Msg("A cobrança foi iniciada, mas os dados Pix não foram retornados corretamente.")
		case err != nil:
			log.Fatal().Err(err).Str("reason", client.ReasonOf(err)).Msg("Não foi possível iniciar a cobrança Pix agora. Tente novamente.")
		}
		id = res.PurchaseID
		fmt.Println(poller.MsgCreated)
		fmt.Printf("purchase: %s\nplan:     %s (%d tokens, %s)\n", id, res.Plan.Name, res.Plan.Tokens, plans.FormatBRL(res.Plan.Price))
		if res.QRCode != "" {
			fmt.Printf("pix:      %s\n", res.QRCode)
		}
		if res.TicketURL != "" {
			fmt.Printf("ticket:   %s\n", res.TicketURL)
		}
		if res.ExpiresAt != nil {
			fmt.Printf("expires:  %s\n", res.ExpiresAt.Local().Format(time.RFC3339))
		}
	}

	ctl := &poller.Controller{
		Check:    poller.ClientCheck(c),
		Interval: *interval,
		Role:     *role,
		OnUpdate: func(u poller.Update) {
			ev := log.Info()
			if u.State == poller.StateError {
				ev = log.Error().Err(u.Err)
			}
			if u.Balance != nil {
				ev = ev.Int64("balance", *u.Balance)
			}
			ev.Str("state", string(u.State)).Msg(u.Message)
		},
	}
	out, err := ctl.Run(ctx, id)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Str("purchase_id", id).Msg("stopped waiting; the purchase may still be confirmed later")
		}
		log.Fatal().Err(err).Msg("polling stopped")
	}
	if out.Status != "approved" {
		os.Exit(2)
	}
	fmt.Printf("destination: %s\n", out.Destination)
}

// mint signs a short-lived access token for "id:email".
func mint(who string) (string, error) {
	userID, email, ok := strings.Cut(who, ":")
	if !ok || userID == "" || email == "" {
		return "", fmt.Errorf("-as wants id:email, got %q", who)
	}
	secret := os.Getenv("AUTH_JWT_SECRET")
	if secret == "" {
		return "", errors.New("AUTH_JWT_SECRET is not set")
	}
	return auth.IssueToken(secret, auth.Identity{ID: userID, Email: email}, time.Hour, time.Now())
}

func envDuration(k string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
